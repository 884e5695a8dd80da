package generate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"colorado/archive"
	"colorado/state"
)

// changes settle for this long before re-rendering
var settleDelay = 300 * time.Millisecond

// watch renders src again every time definitions under it change, until ctx
// is done. Outputs are always overwritten.
func watch(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	defer w.Close()

	fi, err := os.Stat(src)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil || !d.IsDir() {
				return err
			}
			return w.Add(path)
		})
	} else {
		// editors replace files, watching directory survives that
		err = w.Add(filepath.Dir(src))
	}
	if err != nil {
		return fmt.Errorf("unable to watch %s: %w", src, err)
	}

	relevant := func(name string) bool {
		if !fi.IsDir() {
			return filepath.Clean(name) == filepath.Clean(src)
		}
		return isDefinition(name) || archive.IsArchive(name)
	}

	timer := time.NewTimer(settleDelay)
	timer.Stop()
	defer timer.Stop()

	log.Info("Watching for changes", zap.String("source", src))
	for {
		select {
		case <-ctx.Done():
			log.Info("Watching stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) && fi.IsDir() {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						log.Warn("Unable to watch directory", zap.String("dir", ev.Name), zap.Error(err))
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !relevant(ev.Name) {
				continue
			}
			log.Debug("Change detected", zap.Stringer("event", ev))
			timer.Reset(settleDelay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", zap.Error(err))

		case <-timer.C:
			env.Overwrite = true
			if err := process(ctx, src, dst, env, log); err != nil {
				log.Error("Unable to render changes", zap.Error(err))
			}
		}
	}
}
