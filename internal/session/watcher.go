package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"factlex/internal/logging"
)

// UpdateFunc is called after each triggered re-analysis, with the error
// from the pipeline if it failed.
type UpdateFunc func(s *Session, err error)

// Watcher re-analyzes a session's file whenever it changes on disk. The
// containing directory is watched rather than the file itself: editors
// that save via rename would otherwise silently detach the watch.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	session  *Session
	onUpdate UpdateFunc
	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher for an already-analyzed session.
func NewWatcher(s *Session, onUpdate UpdateFunc) (*Watcher, error) {
	if s.Path == "" {
		return nil, fmt.Errorf("session: watch requires a prior AnalyzeFile")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("session: watcher: %w", err)
	}
	return &Watcher{
		fsw:      fsw,
		session:  s,
		onUpdate: onUpdate,
		debounce: 200 * time.Millisecond, // coalesces rapid editor saves
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; events are handled on a dedicated
// goroutine until Stop or context cancellation. A failed Start leaves the
// watcher stopped: Stop is then a no-op, not a hang.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	dir := filepath.Dir(w.session.Path)
	if err := w.fsw.Add(dir); err != nil {
		w.fsw.Close()
		return fmt.Errorf("session: watch %s: %w", dir, err)
	}
	logging.Get(logging.CategoryWatch).Debugw("watching", "dir", dir, "file", w.session.Path)

	w.running = true
	go w.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the event loop to exit. Safe to
// call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.fsw.Close()
	<-w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	log := logging.Get(logging.CategoryWatch)
	target := filepath.Clean(w.session.Path)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			log.Debugw("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(w.debounce)
		case <-timer.C:
			err := w.session.Reanalyze(ctx)
			if err != nil {
				log.Warnw("re-analysis failed", "file", target, "error", err)
			} else {
				log.Debugw("re-analysis complete", "file", target,
					"facts", w.session.Store.Len(), "generation", w.session.Cache.Generation())
			}
			if w.onUpdate != nil {
				w.onUpdate(w.session, err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnw("watcher error", "error", err)
		}
	}
}
