package catalog

import (
	"os"
	"path/filepath"
	"strings"

	"mediatag/logger"
	"mediatag/model"
)

// Scan walks the media root and returns a logical item for every supported
// media file. included carries per-folder inclusion flags keyed by path
// relative to root; folders not listed are included. Hidden files and
// folders are always skipped. Files carrying an embedded version marker
// ("beach##1.jpg") come back with their suffix parsed out, so identities
// forked by the duplicate resolver survive a rescan.
func Scan(root string, included map[string]bool) ([]model.MediaItem, error) {
	var items []model.MediaItem

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries drop out; the scan keeps going.
			return nil
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			name := info.Name()
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr == nil {
				if include, listed := included[rel]; listed && !include {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if !model.IsSupportedMedia(filepath.Ext(path)) {
			return nil
		}

		_, suffix := model.SplitVersioned(info.Name())
		items = append(items, model.MediaItem{Path: path, VersionSuffix: suffix})
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("media scan complete",
		logger.String("root", root), logger.Int("items", len(items)))
	return items, nil
}
