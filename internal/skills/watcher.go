package skills

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"steward/internal/logging"
)

// Watcher monitors the instruction directories and reloads the loader when
// a document settles after editing. Rapid saves are debounced per path.
type Watcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	loader      *Loader
	onReload    func(count int)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats WatcherStats
}

// WatcherStats tracks watcher activity for the status command.
type WatcherStats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	Reloads       int
	Errors        int
	LastEventTime time.Time
	LastEventPath string
}

// NewWatcher creates a watcher over the loader's directories. onReload is
// called after every successful reload with the new document count; it may
// be nil.
func NewWatcher(loader *Loader, onReload func(count int)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fw,
		loader:      loader,
		onReload:    onReload,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, dir := range []string{w.loader.commandDir, w.loader.skillDir} {
		if dir == "" {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			// Directory may not exist yet; reload will pick it up later
			logging.Get(logging.CategorySkills).Warn("watch failed for %s: %v", dir, err)
			continue
		}
		logging.Skills("watching %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.Get(logging.CategorySkills).Error("error closing watcher: %v", err)
	}
	logging.Skills("watcher stopped")
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
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
			logging.Get(logging.CategorySkills).Error("watcher error: %v", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-debounceTicker.C:
			w.processDebounced()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(event.Name, ".md") {
		return
	}

	var relevant bool
	w.mu.Lock()
	switch {
	case event.Op&fsnotify.Create != 0:
		w.stats.FilesCreated++
		relevant = true
	case event.Op&fsnotify.Write != 0:
		w.stats.FilesModified++
		relevant = true
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		w.stats.FilesDeleted++
		relevant = true
	}
	if relevant {
		w.stats.LastEventTime = time.Now()
		w.stats.LastEventPath = event.Name
		w.debounceMap[event.Name] = time.Now()
	}
	w.mu.Unlock()

	if relevant {
		logging.SkillsDebug("event %s for %s", event.Op, event.Name)
	}
}

// processDebounced reloads once any pending event settles past the window.
// A reload rescans both directories, so multiple settled paths collapse
// into a single reload.
func (w *Watcher) processDebounced() {
	w.mu.Lock()
	now := time.Now()
	settled := 0
	for path, eventTime := range w.debounceMap {
		if now.Sub(eventTime) >= w.debounceDur {
			delete(w.debounceMap, path)
			settled++
		}
	}
	w.mu.Unlock()

	if settled == 0 {
		return
	}

	count, err := w.loader.LoadAll()
	if err != nil {
		logging.Get(logging.CategorySkills).Error("reload failed: %v", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
		return
	}

	w.mu.Lock()
	w.stats.Reloads++
	w.mu.Unlock()

	logging.Skills("reloaded %d documents", count)
	if w.onReload != nil {
		w.onReload(count)
	}
}
