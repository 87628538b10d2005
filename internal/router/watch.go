package router

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// #region watch
// WatchPrototypes reloads the prototype file at path whenever it changes
// and swaps the new set in. An invalid file is logged and the current set is
// kept. The parent directory is watched so that atomic replaces (write to a
// temp file, then rename) are observed. It blocks until ctx is done.
func (r *Router) WatchPrototypes(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			r.reload(path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("prototype watcher error", "err", err)
		}
	}
}

func (r *Router) reload(path string) {
	set, err := LoadPrototypes(path)
	if err != nil {
		r.logger.Warn("prototype reload failed, keeping current set", "path", path, "err", err)
		return
	}
	if cur := r.protos.Load(); cur != nil && cur.Version == set.Version {
		return
	}
	r.protos.Store(set)
	r.logger.Info("prototypes reloaded", "path", path, "version", set.Version, "classes", len(set.Prototypes))
}

// #endregion watch
