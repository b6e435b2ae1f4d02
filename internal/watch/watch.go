// Package watch re-runs work when a single document changes on disk.
package watch

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher uses fsnotify to watch one file and calls onChange, with
// debouncing, after the file is written or replaced.
type Watcher struct {
	onChange  func(path string)
	watcher   *fsnotify.Watcher
	target    string
	debounce  time.Duration
	changedAt time.Time
	mu        sync.Mutex
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	now       func() time.Time
}

// New creates a watcher for path. The parent directory is watched
// so that editors which save by renaming a temp file over path are
// still noticed.
func New(
	path string, debounce time.Duration, onChange func(path string),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}

	return &Watcher{
		onChange: onChange,
		watcher:  fsw,
		target:   target,
		debounce: debounce,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}, nil
}

// Target returns the absolute path being watched.
func (w *Watcher) Target() string {
	return w.target
}

// Start begins processing file events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop stops the watcher and waits for it to finish.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) tick() time.Duration {
	if w.debounce <= 0 {
		return 10 * time.Millisecond
	}
	return w.debounce
}

// handleEvent records a pending change when the event is a write
// or create of the target.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if filepath.Clean(event.Name) != w.target {
		return
	}

	w.mu.Lock()
	w.changedAt = w.now()
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.changedAt.IsZero() || w.now().Sub(w.changedAt) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.changedAt = time.Time{}
	w.mu.Unlock()

	log.Printf("watcher: %s changed, re-extracting", w.target)
	w.onChange(w.target)
}
