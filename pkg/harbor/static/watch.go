package static

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/yourusername/harbor/pkg/harbor/logging"
)

// Watch invalidates cached file bodies when files under the root change.
// It blocks until ctx is done and then returns nil. Without a cache or a
// root there is nothing to invalidate and Watch returns immediately.
func (r *Resolver) Watch(ctx context.Context) error {
	if r.cache == nil || r.root == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("static: watcher: %w", err)
	}
	defer w.Close()

	// fsnotify is not recursive; every directory is added on its own
	err = filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.Add(p); err != nil {
				r.logger.Warn("cannot watch directory", logging.String("dir", p), logging.Err(err))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("static: walk %s: %w", r.root, err)
	}

	r.logger.Debug("watching root directory", logging.String("root", r.root))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			r.handleEvent(w, ev)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", logging.Err(err))
		}
	}
}

func (r *Resolver) handleEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// a removed directory takes its cached children with it
		r.cache.Purge()
		r.logger.Debug("cache purged", logging.String("path", ev.Name), logging.String("op", ev.Op.String()))

	case ev.Has(fsnotify.Create):
		if isDir(ev.Name) {
			if err := w.Add(ev.Name); err != nil {
				r.logger.Warn("cannot watch directory", logging.String("dir", ev.Name), logging.Err(err))
			}
		}
		r.invalidate(ev.Name)

	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
		r.invalidate(ev.Name)
	}
}

func (r *Resolver) invalidate(name string) {
	key := name
	if canon, err := filepath.EvalSymlinks(name); err == nil {
		key = canon
	}
	if r.cache.Delete(key) {
		r.logger.Debug("cache entry invalidated", logging.String("path", key))
	}
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
