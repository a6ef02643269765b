package autostart

import (
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ChangeCallback is invoked whenever a *.desktop file under a watched
// directory is created, written, or removed.
type ChangeCallback func(path string, removed bool)

// Watcher notifies a callback of autostart directory changes, grounded on
// the teranos-QNTX config watcher's fsnotify event-loop shape.
type Watcher struct {
	watcher   *fsnotify.Watcher
	callbacks []ChangeCallback
	logger    *zap.SugaredLogger
	done      chan struct{}
}

// NewWatcher creates a Watcher over dirs. Call Start to begin delivering
// events and Stop to tear it down.
func NewWatcher(dirs []string, logger *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return &Watcher{watcher: fw, logger: logger, done: make(chan struct{})}, nil
}

// OnChange registers a callback invoked for every subsequent event.
func (w *Watcher) OnChange(cb ChangeCallback) {
	w.callbacks = append(w.callbacks, cb)
}

// Start begins the event loop in its own goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".desktop") {
				continue
			}
			removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 && !removed {
				continue
			}
			for _, cb := range w.callbacks {
				cb(event.Name, removed)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warnw("autostart watcher error", "error", err)
			}
		case <-w.done:
			return
		}
	}
}

// Stop closes the underlying watcher and ends the event loop.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
