package config

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dshills/redline/internal/watcher"
)

// ChangeHandler receives the reloaded configuration, or the error that
// prevented loading it.
type ChangeHandler func(cfg Config, err error)

// Watcher reloads a configuration file when it changes. The file may be
// created after watching starts.
type Watcher struct {
	path    string
	handler ChangeHandler
	logger  *slog.Logger
	w       *watcher.Watcher
}

// WatchOption configures a Watcher.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	logger   *slog.Logger
}

// WithDebounce sets the debounce duration for rapid changes.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		o.debounce = d
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(o *watchOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// Watch starts watching the configuration at path. handler is called on its
// own goroutine after each settled change.
func Watch(path string, handler ChangeHandler, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	o := watchOptions{
		debounce: watcher.DefaultDebounce,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&o)
	}

	cw := &Watcher{
		path:    abs,
		handler: handler,
		logger:  o.logger,
	}
	fw, err := watcher.New(func(string) { cw.reload() },
		watcher.WithDebounce(o.debounce),
		watcher.WithLogger(o.logger))
	if err != nil {
		return nil, err
	}
	if err := fw.Add(abs); err != nil {
		_ = fw.Close()
		return nil, err
	}
	cw.w = fw
	return cw, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. A pending reload is discarded.
func (w *Watcher) Close() error {
	return w.w.Close()
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
	} else {
		w.logger.Info("config reloaded", "path", w.path)
	}
	w.handler(cfg, err)
}
