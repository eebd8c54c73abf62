package status

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the delay before rebuilding after a change burst.
// Producers often rewrite several files back to back (temp write plus
// rename), so a single rebuild per burst is enough.
const watchDebounce = 750 * time.Millisecond

// Watcher rebuilds the status payload whenever a watched input changes.
type Watcher struct {
	inputs  Inputs
	rebuild func(context.Context)
	fsw     *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// debounce state
	mu      sync.Mutex
	timer   *time.Timer
	pending bool
}

// NewWatcher creates a watcher that invokes rebuild after input changes.
func NewWatcher(inputs Inputs, rebuild func(context.Context)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		inputs:  inputs,
		rebuild: rebuild,
		fsw:     fsw,
	}, nil
}

// watchDirs lists the directories whose contents feed the payload.
// fsnotify watches directories rather than files so atomic renames
// from producers still surface as events.
func (w *Watcher) watchDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if dir == "" || dir == "." || seen[dir] {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	add(w.inputs.WorkspaceRoot)
	add(filepath.Join(w.inputs.WorkspaceRoot, "memory"))
	add(filepath.Dir(w.inputs.JobsFile))
	add(filepath.Dir(w.inputs.SessionsFile))
	add(filepath.Dir(w.inputs.RuntimeStateFile))
	add(filepath.Dir(w.inputs.ReliabilityLogFile))
	return dirs
}

// Start begins watching and blocks until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watched := 0
	for _, dir := range w.watchDirs() {
		if err := w.fsw.Add(dir); err != nil {
			if !os.IsNotExist(err) {
				slog.Warn("status watcher: cannot watch dir", "path", dir, "error", err)
			}
			continue
		}
		watched++
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)

	slog.Info("status watcher started", "watched", watched)

	<-ctx.Done()
	return nil
}

// Stop shuts down the watcher.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("status watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Skip our own atomic-write temp files to avoid rebuild feedback.
	base := filepath.Base(event.Name)
	if len(base) > 0 && base[0] == '.' {
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.scheduleRebuild(ctx)
}

// scheduleRebuild debounces rebuilds across event bursts.
func (w *Watcher) scheduleRebuild(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = true

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		w.flush(ctx)
	})
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	if !w.pending {
		w.mu.Unlock()
		return
	}
	w.pending = false
	w.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	w.rebuild(ctx)
	slog.Debug("status payload rebuilt after change")
}
