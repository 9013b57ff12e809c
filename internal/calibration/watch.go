package calibration

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "dreamops/pkg/logx"
)

// Watcher re-projects the artifact whenever the calibration job (or an
// operator) rewrites it.
//
// The directory is watched rather than the file itself: the job writes
// via temp-file + rename, which replaces the watched inode. A write
// burst (non-atomic writers emit several events per rewrite) is
// debounced on the trailing edge so the projection always sees the
// settled file, never a partial write.
type Watcher struct {
	path     string
	log      logx.Logger
	settle   time.Duration
	onChange func()
}

func NewWatcher(path string, log logx.Logger, onChange func()) *Watcher {
	return &Watcher{
		path:     filepath.Clean(path),
		log:      log,
		settle:   250 * time.Millisecond,
		onChange: onChange,
	}
}

// Run blocks until ctx is done, invoking onChange after each observed
// change to the artifact (including its removal) once events stop
// arriving for the settle window.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Debug("watching artifact", logx.String("path", w.path))

	// debounce to avoid partial writes
	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.settle, w.onChange)
	}
	defer func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.log.Debug("artifact changed", logx.String("op", ev.Op.String()))
			debounce()
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", logx.Err(err))
		}
	}
}
