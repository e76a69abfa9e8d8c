//go:build !linux

package timestamp

import (
	"os"
	"time"
)

// earliestFileTime returns the best filesystem timestamp available without
// platform-specific stat fields.
func earliestFileTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
