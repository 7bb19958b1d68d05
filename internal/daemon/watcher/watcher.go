// Package watcher watches the Tailray directory for settings changes.
package watcher

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/watchfire-io/tailray/internal/config"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// EventType represents the type of file system event.
type EventType int

const (
	EventSettingsChanged EventType = iota
	EventSettingsRemoved
)

func (t EventType) String() string {
	switch t {
	case EventSettingsChanged:
		return "settings_changed"
	case EventSettingsRemoved:
		return "settings_removed"
	default:
		return "unknown"
	}
}

// Event represents a file system change event.
type Event struct {
	Type EventType
	Path string
}

// Watcher watches a directory for changes to settings.yaml.
type Watcher struct {
	dir        string
	debounce   time.Duration
	fsWatcher  *fsnotify.Watcher
	eventsChan chan Event
	done       chan struct{}
	stopOnce   sync.Once
	timers     map[string]*time.Timer
	timersMu   sync.Mutex
	logger     *slog.Logger
}

// New creates a watcher for dir. An empty dir means the global Tailray
// directory.
func New(dir string) (*Watcher, error) {
	if dir == "" {
		d, err := config.GlobalDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		dir:        dir,
		debounce:   DefaultDebounce,
		fsWatcher:  fsWatcher,
		eventsChan: make(chan Event, 16),
		done:       make(chan struct{}),
		timers:     make(map[string]*time.Timer),
		logger:     slog.With("component", "watcher"),
	}, nil
}

// Events returns the channel for receiving events.
func (w *Watcher) Events() <-chan Event {
	return w.eventsChan
}

// Start begins watching. The directory must exist.
func (w *Watcher) Start() error {
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching settings", "dir", w.dir)

	go w.processEvents()
	return nil
}

// Stop stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fsWatcher.Close()

		w.timersMu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.timersMu.Unlock()
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.logger.Debug("fsnotify", "op", event.Op.String(), "path", event.Name)
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != config.SettingsFileName {
		return
	}

	var typ EventType
	switch {
	// Atomic saves (write tmp, rename over target) show up as Create on the target.
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		typ = EventSettingsChanged
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		typ = EventSettingsRemoved
	default:
		return
	}

	w.debounceEvent(event.Name, func() {
		w.emit(Event{Type: typ, Path: event.Name})
	})
}

// debounceEvent debounces events for the same path. The last event wins.
func (w *Watcher) debounceEvent(path string, fn func()) {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()

	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.timersMu.Lock()
		delete(w.timers, path)
		w.timersMu.Unlock()
		fn()
	})
}

func (w *Watcher) emit(e Event) {
	w.logger.Debug("debounce fired", "event", e.Type.String(), "path", e.Path)
	select {
	case <-w.done:
	case w.eventsChan <- e:
	}
}
