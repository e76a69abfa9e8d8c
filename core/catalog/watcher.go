package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"mediatag/logger"
)

// Watch observes the media root with fsnotify and flags the catalog dirty
// whenever files are created, removed or renamed underneath it, so the next
// access rescans. Runs until ctx is cancelled.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(c.root); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", c.root, err)
	}
	// Watch existing subfolders too; fsnotify is not recursive.
	filepath.Walk(c.root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || !info.IsDir() || path == c.root {
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if addErr := watcher.Add(path); addErr != nil {
			logger.Warn("failed to watch subfolder",
				logger.String("path", path), logger.ErrorField(addErr))
		}
		return nil
	})

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
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("media folder changed",
					logger.String("path", event.Name), logger.String("op", event.Op.String()))
				if event.Op&fsnotify.Create != 0 {
					if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
						watcher.Add(event.Name)
					}
				}
				c.MarkDirty()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error", logger.ErrorField(err))
			}
		}
	}()
	return nil
}
