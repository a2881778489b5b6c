// Package watch reports external edits to a diagram document on disk.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the file must stay quiet before it is read.
const DefaultDebounce = 300 * time.Millisecond

// Watcher delivers the contents of one file each time it settles after a
// write. Identical contents are delivered once.
type Watcher struct {
	path     string
	onChange func([]byte)
	debounce time.Duration
	log      *zap.Logger

	mu   sync.Mutex
	last []byte
}

// New creates a watcher for path. onChange runs on the watcher's own
// goroutine.
func New(path string, onChange func([]byte), log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
		log:      log,
	}
}

// WithDebounce sets the debounce duration.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Seen records data as already delivered, so a write of the same bytes
// (for example the editor's own save) is not reported back.
func (w *Watcher) Seen(data []byte) {
	w.mu.Lock()
	w.last = append(w.last[:0], data...)
	w.mu.Unlock()
}

// Watch blocks until ctx is cancelled or the underlying watcher fails.
// The directory is watched rather than the file so editors that replace
// the file on save are still followed.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", w.path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	w.log.Info("watching document", zap.String("path", abs))

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.fire)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", zap.Error(err))

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) fire() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warn("failed to read changed document", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	if w.last != nil && bytes.Equal(w.last, data) {
		w.mu.Unlock()
		return
	}
	w.last = append(w.last[:0], data...)
	w.mu.Unlock()

	w.log.Debug("document changed", zap.String("path", w.path), zap.Int("bytes", len(data)))
	w.onChange(data)
}
