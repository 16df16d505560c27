package debuginfo

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/wippyai/debug-eval/errors"
	"go.uber.org/zap"
)

// Watcher reloads a record file whenever it is written or replaced.
// Editors that save by rename are covered because the file's directory is
// watched rather than the file itself.
type Watcher struct {
	w      *fsnotify.Watcher
	images chan *Image
	errs   chan error
	done   chan struct{}
	path   string
	once   sync.Once
	wg     sync.WaitGroup
}

// Watch starts watching path. The current contents are not loaded; call
// LoadFile for the initial image.
func Watch(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, "resolve "+path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.IO(errors.PhaseLoad, "create watcher", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.IO(errors.PhaseLoad, "watch "+filepath.Dir(abs), err)
	}

	w := &Watcher{
		w:      fw,
		images: make(chan *Image, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
		path:   filepath.Clean(abs),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Images delivers each successfully reloaded image. It is closed by Close.
func (w *Watcher) Images() <-chan *Image { return w.images }

// Errors delivers reload and watch failures. It is closed by Close.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.w.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.images)
	defer close(w.errs)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			img, err := LoadFile(w.path)
			if err != nil {
				Logger().Warn("reload failed", zap.String("path", w.path), zap.Error(err))
				if !w.send(nil, err) {
					return
				}
				continue
			}
			Logger().Info("debug info reloaded", zap.String("path", w.path))
			if !w.send(img, nil) {
				return
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			if !w.send(nil, errors.IO(errors.PhaseLoad, "watch "+w.path, err)) {
				return
			}
		}
	}
}

func (w *Watcher) send(img *Image, err error) bool {
	if err != nil {
		select {
		case w.errs <- err:
			return true
		case <-w.done:
			return false
		}
	}
	select {
	case w.images <- img:
		return true
	case <-w.done:
		return false
	}
}
