package content

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gastownhall/presenter-remote/internal/remote"
)

// pollInterval is the fallback reload check for filesystems that drop events.
const pollInterval = time.Second

// Watcher reloads a content document whenever it changes and emits each
// successfully loaded snapshot. A document that fails to load is logged and
// skipped; the previous snapshot stays current.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	snapshots chan remote.ContentSnapshot
	modTime   time.Time
	size      int64
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewWatcher starts watching path. The current document, if loadable, is the
// first snapshot emitted.
func NewWatcher(ctx context.Context, path string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	wCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		path:      path,
		watcher:   watcher,
		snapshots: make(chan remote.ContentSnapshot, 8),
		ctx:       wCtx,
		cancel:    cancel,
	}
	go w.watchLoop()
	return w, nil
}

// Snapshots returns the channel of reloaded content. It is closed on Stop.
func (w *Watcher) Snapshots() <-chan remote.ContentSnapshot {
	return w.snapshots
}

// Stop shuts the watcher down.
func (w *Watcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	defer close(w.snapshots)

	w.reload(true)

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.reload(false)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("content: watch %s: %v", w.path, err)
		case <-pollTicker.C:
			w.reload(false)
		}
	}
}

// reload loads the document if it changed since the last successful load.
func (w *Watcher) reload(force bool) {
	info, err := os.Stat(w.path)
	if err != nil {
		return // file doesn't exist yet
	}
	if info.Size() == 0 {
		return // truncated mid-write; a blank screen is spelled lines = []
	}
	if !force && info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return
	}

	w.modTime = info.ModTime()
	w.size = info.Size()

	snap, err := Load(w.path)
	if err != nil {
		log.Printf("content: %v", err)
		return
	}

	select {
	case w.snapshots <- snap:
	case <-w.ctx.Done():
	}
}
