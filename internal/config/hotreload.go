package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces editor write bursts into a single reload.
const reloadDebounce = 300 * time.Millisecond

// ChangeHandler receives the freshly loaded config after the file on
// disk changes.
type ChangeHandler func(cfg *Config)

// Watcher reloads the control room config when it changes and fans the
// new Config out to registered handlers. The parent directory is
// watched rather than the file itself, since editors replace the file
// by rename and that would drop a direct watch.
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	done     chan struct{}
	mu       sync.Mutex
	handlers []ChangeHandler
	timer    *time.Timer
}

// NewWatcher prepares a watcher for the config file at path.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{path: path, fsw: fsw}, nil
}

// OnChange registers a handler invoked after each successful reload.
func (w *Watcher) OnChange(handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start begins watching. The config file itself may not exist yet; the
// reload fires once it appears.
func (w *Watcher) Start() error {
	if err := w.fsw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.done = make(chan struct{})
	go w.loop()
	slog.Info("config reload watcher started", "config", w.path)
	return nil
}

// Stop halts the watcher and cancels any pending reload.
func (w *Watcher) Stop() {
	if w.done != nil {
		close(w.done)
	}
	w.fsw.Close()
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("config reload watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Error("config reload failed", "config", w.path, "error", err)
		return
	}

	w.mu.Lock()
	handlers := make([]ChangeHandler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	for _, handler := range handlers {
		handler(cfg)
	}
	slog.Info("config reloaded", "config", w.path)
}
