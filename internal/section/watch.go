package section

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/scrollmorph/internal/logger"
)

// Reload is delivered when the watched sections file changed. Err is set
// when the new contents failed to parse; the previous sections stay valid.
type Reload struct {
	Sections []Descriptor
	Err      error
}

// Watcher reloads a sections file when it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	updates  chan Reload

	running  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher watches the directory containing path. Editors often replace
// files on save, so the directory is watched rather than the file itself.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{
		path:     abs,
		debounce: debounce,
		watcher:  fw,
		updates:  make(chan Reload, 1),
		done:     make(chan struct{}),
	}, nil
}

// Updates returns the channel reloads are delivered on. Only the newest
// pending reload is kept.
func (w *Watcher) Updates() <-chan Reload {
	return w.updates
}

// Run processes file events until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	w.running.Store(true)
	defer close(w.done)
	log := logger.Named("section")

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("file watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			sections, err := LoadFile(w.path)
			if err != nil {
				log.Warn("sections reload failed", zap.String("path", w.path), zap.Error(err))
			} else {
				log.Info("sections reloaded", zap.String("path", w.path), zap.Int("count", len(sections)))
			}
			w.publish(Reload{Sections: sections, Err: err})
		}
	}
}

// publish replaces any undelivered reload with r.
func (w *Watcher) publish(r Reload) {
	for {
		select {
		case w.updates <- r:
			return
		default:
		}
		select {
		case <-w.updates:
		default:
		}
	}
}

// Close stops the watcher. It is safe to call more than once. If Run is
// active, Close returns after it has exited.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		err = w.watcher.Close()
		if w.running.Load() {
			<-w.done
		}
	})
	return err
}
