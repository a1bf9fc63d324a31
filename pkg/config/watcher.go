package config

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watcher notifies when the config file changes on disk, so edits made by
// an external configurator (or a text editor) take effect without a
// restart. Events are debounced because editors typically write in several
// operations, and the watch is on the parent directory because many editors
// replace the file by rename.
type Watcher struct {
	fw   *fsnotify.Watcher
	path string

	changes chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// Watch starts watching the given config file path.
func Watch(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:      fw,
		path:    filepath.Clean(path),
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers one signal per (debounced) config file modification.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleNotify()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			slog.Debug("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) scheduleNotify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		select {
		case w.changes <- struct{}{}:
		default:
		}
	})
}
