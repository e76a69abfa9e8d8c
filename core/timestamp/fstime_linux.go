//go:build linux

package timestamp

import (
	"os"
	"syscall"
	"time"
)

// earliestFileTime returns the earliest of the filesystem timestamps
// available for the file: modify and inode-change time on Linux.
func earliestFileTime(info os.FileInfo) time.Time {
	earliest := info.ModTime()
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		ctime := time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
		if ctime.Before(earliest) {
			earliest = ctime
		}
	}
	return earliest
}
