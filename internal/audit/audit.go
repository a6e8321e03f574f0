// internal/audit/audit.go
package audit

import (
	"context"
	"errors"
	"time"

	"beacon-network/internal/common/logger"

	"github.com/google/uuid"
)

// Store persists audit entries.
type Store interface {
	Name() string
	Save(ctx context.Context, entry *Entry) error
}

// LastResponseStore can answer the last successful response recorded for a URL.
type LastResponseStore interface {
	LastResponse(ctx context.Context, url string) (*Entry, error)
}

// Log applies the verbosity level and fans entries out to every store.
type Log struct {
	level   Level
	stores  []Store
	logger  logger.Logger
	timeout time.Duration
}

func NewLog(level Level, log logger.Logger, stores ...Store) *Log {
	return &Log{
		level:   level,
		stores:  stores,
		logger:  log.WithFields(map[string]interface{}{"component": "audit"}),
		timeout: 5 * time.Second,
	}
}

func (l *Log) Level() Level {
	return l.level
}

// Record filters the entry by level and writes it to every store. Store
// failures are logged and never returned to the caller.
func (l *Log) Record(ctx context.Context, entry Entry) {
	if !l.accepts(&entry) {
		return
	}
	if entry.Type == RequestQuery && l.level < LevelResponses {
		entry.Message = ""
		entry.Response = ""
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	for _, s := range l.stores {
		if err := s.Save(ctx, &entry); err != nil {
			l.logger.Warn("audit store write failed", map[string]interface{}{
				"store": s.Name(),
				"url":   entry.URL,
				"error": err.Error(),
			})
		}
	}
}

func (l *Log) accepts(entry *Entry) bool {
	switch {
	case l == nil || l.level == LevelNone:
		return false
	case l.level == LevelMetadata && entry.Type != RequestMetadata:
		return false
	case entry.Code == StatusNotModified && l.level < LevelAll:
		return false
	}
	return true
}

// LastResponse asks each capable store in order and returns the first hit.
func (l *Log) LastResponse(ctx context.Context, url string) (*Entry, error) {
	if l == nil {
		return nil, ErrNotFound
	}
	for _, s := range l.stores {
		lr, ok := s.(LastResponseStore)
		if !ok {
			continue
		}
		entry, err := lr.LastResponse(ctx, url)
		if err == nil && entry != nil {
			return entry, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			l.logger.Warn("audit lookup failed", map[string]interface{}{
				"store": s.Name(),
				"url":   url,
				"error": err.Error(),
			})
		}
	}
	return nil, ErrNotFound
}
