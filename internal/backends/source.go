// internal/backends/source.go
package backends

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"beacon-network/internal/common/logger"

	"github.com/fsnotify/fsnotify"
)

// Registry receives backend list changes and periodic refresh ticks.
type Registry interface {
	ApplyBackendListChange(ctx context.Context, urls []string)
	Refresh(ctx context.Context)
}

// Source feeds the registry from the backend list file. The file is watched
// for changes and the registry is refreshed on a fixed interval.
type Source struct {
	config   *Config
	registry Registry
	logger   logger.Logger

	mu      sync.Mutex
	current []string
	loaded  bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSource(config *Config, registry Registry, log logger.Logger) *Source {
	return &Source{
		config:   config,
		registry: registry,
		logger:   log.WithFields(map[string]interface{}{"component": "backend-source", "path": config.Path}),
	}
}

// Load reads the list file and hands it to the registry.
func (s *Source) Load(ctx context.Context) error {
	urls, err := ReadList(s.config.Path)
	if err != nil {
		return err
	}
	s.apply(ctx, urls)
	return nil
}

// Backends returns the list last handed to the registry.
func (s *Source) Backends() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.current)
}

// Start begins watching the list file and ticking refreshes. The watch is
// registered before Start returns.
func (s *Source) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// The directory is watched so that files replaced by rename are seen.
	dir := filepath.Dir(s.config.Path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, watcher)

	s.logger.Info("backend source started", map[string]interface{}{
		"refreshInterval": s.config.RefreshInterval.String(),
	})
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (s *Source) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Source) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer close(s.done)
	defer watcher.Close()

	var tick <-chan time.Time
	if s.config.RefreshInterval > 0 {
		ticker := time.NewTicker(s.config.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	target := filepath.Clean(s.config.Path)
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if err := s.Load(ctx); err != nil {
				s.logger.Warn("backend list not applied, keeping current", map[string]interface{}{
					"error": err.Error(),
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Error("file watcher error", map[string]interface{}{"error": err.Error()})

		case <-tick:
			s.logger.Debug("scheduled metadata refresh", nil)
			s.registry.Refresh(ctx)
		}
	}
}

func (s *Source) apply(ctx context.Context, urls []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && slices.Equal(urls, s.current) {
		s.logger.Debug("backend list unchanged", nil)
		return
	}
	s.current = urls
	s.loaded = true
	s.registry.ApplyBackendListChange(ctx, slices.Clone(urls))
	s.logger.Info("backend list applied", map[string]interface{}{"backends": len(urls)})
}
