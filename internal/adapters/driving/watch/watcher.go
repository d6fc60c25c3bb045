// Package watch turns filesystem activity under the media folders into
// scan tasks. Events are debounced so a burst of copies queues a single
// scan.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
	"github.com/veldt-labs/mediatheque/internal/core/ports/driving"
)

// defaultDebounce is how long the watcher waits after the last event
// before queueing a scan.
const defaultDebounce = 2 * time.Second

// Watcher observes the media folders recursively and enqueues a scan
// task after activity settles.
type Watcher struct {
	queue    driving.TaskQueue
	folders  []string
	debounce time.Duration
	log      zerolog.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher over the given folders. A non-positive
// debounce uses the default.
func NewWatcher(queue driving.TaskQueue, folders []string, debounce time.Duration, log zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Watcher{
		queue:    queue,
		folders:  folders,
		debounce: debounce,
		log:      log,
	}
}

// Start begins watching. With no folders configured it is a no-op.
// Folders that cannot be watched are logged and skipped, not fatal.
func (w *Watcher) Start(ctx context.Context) error {
	if len(w.folders) == 0 {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.fsw = fsw

	for _, folder := range w.folders {
		if err := w.addRecursive(folder); err != nil {
			w.log.Warn().Err(err).Str("folder", folder).Msg("cannot watch folder")
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
	return nil
}

// Stop terminates the watch loop and waits for it to exit. Safe to call
// when Start never ran.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

// addRecursive registers root and every non-hidden directory below it.
func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(d.Name()) {
			return fs.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	defer w.fsw.Close()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			// A created directory gets watched too so files landing
			// inside it keep producing events.
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(ev.Name); err != nil {
						w.log.Warn().Err(err).Str("dir", ev.Name).Msg("cannot watch new directory")
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				resetTimer(timer, w.debounce)
			}

		case <-fire:
			if _, err := w.queue.Enqueue(ctx, domain.TaskScan, ""); err != nil {
				w.log.Error().Err(err).Msg("enqueue scan after filesystem change")
			} else {
				w.log.Info().Msg("filesystem changed, scan queued")
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

// resetTimer re-arms t, draining a tick that already fired but was not
// consumed. A plain Reset would leave the stale tick in the channel and
// end the debounce early.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// relevant filters events down to the ones that can change library
// contents: create, write, remove and rename of non-hidden paths.
func relevant(ev fsnotify.Event) bool {
	if isHidden(filepath.Base(ev.Name)) {
		return false
	}
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
		ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
}

// isHidden reports whether name is a dot-prefixed path segment. "." and
// ".." are not hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
