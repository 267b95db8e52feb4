package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mattjoyce/slackagent/internal/log"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads a ChannelStore when files in its directory change.
// Bursts of events within the debounce window collapse into one reload.
type Watcher struct {
	store    *ChannelStore
	debounce time.Duration
	onReload func(count int)

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	stopped bool
}

// WatcherOption customizes watcher behavior.
type WatcherOption func(*Watcher)

// WithDebounce sets the debounce window for reloads.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadHook registers a callback run after every reload.
func WithReloadHook(fn func(count int)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher constructs a watcher for the store's directory.
func NewWatcher(store *ChannelStore, opts ...WatcherOption) (*Watcher, error) {
	if store == nil {
		return nil, fmt.Errorf("channel store required")
	}
	if store.Dir() == "" {
		return nil, fmt.Errorf("channel store has no directory to watch")
	}
	w := &Watcher{
		store:    store,
		debounce: defaultWatchDebounce,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. The watcher stops when ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsWatcher.Add(w.store.Dir()); err != nil {
		_ = fsWatcher.Close()
		return fmt.Errorf("watch %s: %w", w.store.Dir(), err)
	}

	w.mu.Lock()
	w.watcher = fsWatcher
	w.mu.Unlock()

	go w.watchLoop(fsWatcher)
	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-w.stopCh:
		}
	}()
	return nil
}

// Stop terminates the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	fsWatcher := w.watcher
	w.mu.Unlock()

	if fsWatcher != nil {
		_ = fsWatcher.Close()
		<-w.doneCh
	}
}

func (w *Watcher) watchLoop(fsWatcher *fsnotify.Watcher) {
	defer close(w.doneCh)
	logger := log.WithComponent("config-watcher")
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return
			}
			logger.Warn("channel watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !isYAMLFile(filepath.Base(event.Name)) {
		return
	}
	w.scheduleReload()
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		n := w.store.Reload()
		if w.onReload != nil {
			w.onReload(n)
		}
	})
}
