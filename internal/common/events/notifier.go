// Package events carries the "metadata updated" notification from the registry
// to the views derived from it.
package events

import (
	"sync"
	"time"
)

// MetadataUpdated is published after a registry change has been committed.
type MetadataUpdated struct {
	Version    uint64
	Backends   int
	OccurredAt time.Time
}

// Subscriber reacts to metadata updates. Implementations must not block.
type Subscriber interface {
	OnMetadataUpdated(event MetadataUpdated)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(event MetadataUpdated)

func (f SubscriberFunc) OnMetadataUpdated(event MetadataUpdated) { f(event) }

// Notifier fans one event out to every subscriber.
type Notifier struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Subscribe(s Subscriber) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subscribers = append(n.subscribers, s)
}

// Publish delivers the event synchronously in subscription order.
func (n *Notifier) Publish(event MetadataUpdated) {
	n.mu.RLock()
	subs := append([]Subscriber(nil), n.subscribers...)
	n.mu.RUnlock()

	for _, s := range subs {
		s.OnMetadataUpdated(event)
	}
}
