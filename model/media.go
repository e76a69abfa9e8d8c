package model

import (
	"path/filepath"
	"strings"
)

// MediaType classifies a catalog entry by its file extension.
type MediaType string

const (
	MediaImage   MediaType = "image"
	MediaVideo   MediaType = "video"
	MediaUnknown MediaType = "unknown"
)

// VersionSeparator joins a base filename and a version suffix in store keys,
// e.g. "beach.jpg##1".
const VersionSeparator = "##"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".gif":  true,
}

var videoExts = map[string]bool{
	".mp4": true,
	".mov": true,
	".avi": true,
	".mkv": true,
}

// IsSupportedMedia reports whether ext names a supported image or video type.
func IsSupportedMedia(ext string) bool {
	ext = strings.ToLower(ext)
	return imageExts[ext] || videoExts[ext]
}

// TypeOf derives the media type from a file path's extension.
func TypeOf(path string) MediaType {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return MediaImage
	case videoExts[ext]:
		return MediaVideo
	default:
		return MediaUnknown
	}
}

// MediaItem is one logical catalog entry. Identity is the physical file path
// plus an optional version suffix; two logical items may share one physical
// file, and two files sharing one name are forked apart by assigning
// suffixes.
type MediaItem struct {
	Path          string `json:"path"`
	VersionSuffix string `json:"versionSuffix,omitempty"`
}

// Filename returns the base filename with any embedded version marker
// stripped, i.e. the unversioned name the item is grouped by.
func (m MediaItem) Filename() string {
	name, _ := SplitVersioned(filepath.Base(m.Path))
	return name
}

// Key returns the store key for this item: the base filename, or
// filename##suffix for versioned entries.
func (m MediaItem) Key() string {
	if m.VersionSuffix == "" {
		return m.Filename()
	}
	return m.Filename() + VersionSeparator + m.VersionSuffix
}

// Type returns the media type derived from the file extension.
func (m MediaItem) Type() MediaType {
	return TypeOf(m.Path)
}

// SplitVersioned splits a physical filename carrying an embedded version
// marker ("beach##1.jpg") into the unversioned name ("beach.jpg") and the
// suffix ("1"). Filenames without a marker come back unchanged with an empty
// suffix.
func SplitVersioned(filename string) (name, suffix string) {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	idx := strings.LastIndex(stem, VersionSeparator)
	if idx < 0 {
		return filename, ""
	}
	suffix = stem[idx+len(VersionSeparator):]
	if suffix == "" {
		return filename, ""
	}
	return stem[:idx] + ext, suffix
}

// VersionedFilename embeds a version suffix into a physical filename,
// keeping the extension last so type detection still works:
// ("beach.jpg", "1") -> "beach##1.jpg".
func VersionedFilename(filename, suffix string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	return stem + VersionSeparator + suffix + ext
}
