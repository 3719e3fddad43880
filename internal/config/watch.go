package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Watcher reloads a YAML config file whenever it changes on disk and hands
// the new Config to the registered callbacks. Environment variables keep
// their precedence over file values on every reload. Only the refresh
// section takes effect without a restart.
type Watcher struct {
	path   string
	logger *slog.Logger

	mu        sync.RWMutex
	current   *Config
	onChange  []func(*Config)
	onRefresh []func(domain.RefreshConfig)
}

// NewWatcher performs the initial load of path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, logger: logger, current: cfg}, nil
}

// Config returns the latest successfully loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// OnRefreshChange registers a callback invoked after a reload whose refresh
// section differs from the previously loaded one. Edits to other keys do not
// trigger it, so settings changed at runtime are not overwritten by them.
func (w *Watcher) OnRefreshChange(fn func(domain.RefreshConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onRefresh = append(w.onRefresh, fn)
}

// Reload re-reads the file immediately. On error the previous
// configuration stays in effect.
func (w *Watcher) Reload() (*Config, error) {
	cfg, err := LoadFile(w.path)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	prev := w.current
	w.current = cfg
	callbacks := slices.Clone(w.onChange)
	var refreshCallbacks []func(domain.RefreshConfig)
	if prev == nil || prev.Refresh() != cfg.Refresh() {
		refreshCallbacks = slices.Clone(w.onRefresh)
	}
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	for _, fn := range refreshCallbacks {
		fn(cfg.Refresh())
	}
	return cfg, nil
}

// Watch starts a background goroutine that reloads the file on change. The
// parent directory is watched so that editors replacing the file by rename
// are picked up. Call the returned stop function to clean up.
func (w *Watcher) Watch() (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("config watcher add %s: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	done := make(chan struct{})
	go func() {
		defer fw.Close()
		for {
			select {
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				prev := w.Config().Refresh()
				cfg, err := w.Reload()
				if err != nil {
					w.logger.Warn("config reload failed, keeping previous config", "path", w.path, "error", err)
					continue
				}
				w.logger.Info("config reloaded; only refresh settings apply without restart",
					"path", w.path, "refresh_changed", cfg.Refresh() != prev)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", "error", err)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }, nil
}
