package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/readingdna/readingdna/internal/storage"
)

// Watch invalidates cached collections when their files in dir change,
// which covers datasets rewritten by another process such as the preload
// command. It returns once the watch is set up and stops when ctx is done.
func Watch(ctx context.Context, dir string, local *LocalSource) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				handleEvent(event, local)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Data directory watch error", "dir", dir, "err", err)
			}
		}
	}()

	slog.Debug("Watching data directory for collection changes", "dir", dir)
	return nil
}

func handleEvent(event fsnotify.Event, local *LocalSource) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	kind, id, ok := storage.ParsePath(event.Name)
	if !ok || kind != storage.KindBooks {
		return
	}
	local.Invalidate(id)
	slog.Debug("Search cache invalidated", "collection_id", id, "op", event.Op.String())
}
