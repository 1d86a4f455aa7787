package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"halmon/internal/logger"
)

// AlarmFileWatcher reloads the store when the alarm file is edited outside the process
type AlarmFileWatcher struct {
	path     string
	store    *AlarmStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAlarmFileWatcher watches the directory holding path so that atomic
// replace-by-rename writes are seen
func NewAlarmFileWatcher(path string, store *AlarmStore) (*AlarmFileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	return &AlarmFileWatcher{
		path:     abs,
		store:    store,
		watcher:  w,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start runs the watch loop until Stop
func (aw *AlarmFileWatcher) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	aw.cancel = cancel
	aw.done = make(chan struct{})
	go aw.loop(ctx)
}

// Stop ends the watch loop and closes the watcher
func (aw *AlarmFileWatcher) Stop() error {
	if aw.cancel != nil {
		aw.cancel()
		<-aw.done
	}
	return aw.watcher.Close()
}

func (aw *AlarmFileWatcher) loop(ctx context.Context) {
	defer close(aw.done)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-aw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != aw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(aw.debounce)
			} else {
				timer.Reset(aw.debounce)
			}
			fire = timer.C
		case err, ok := <-aw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("[ALARMS] watcher error: %v", err)
		case <-fire:
			fire = nil
			rctx, cancel := context.WithTimeout(ctx, persistTimeout)
			if err := aw.store.Reload(rctx); err != nil {
				logger.Warnf("[ALARMS] reload after external edit failed: %v", err)
			} else {
				logger.Debugf("[ALARMS] reloaded %s", aw.path)
			}
			cancel()
		}
	}
}
