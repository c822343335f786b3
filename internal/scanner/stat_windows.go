//go:build windows

package scanner

import (
	"os"
	"syscall"
	"time"
)

// platformTimes returns access and creation times from the file attributes.
func platformTimes(_ string, info os.FileInfo, _ bool) (atime, btime time.Time) {
	d, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, time.Time{}
	}
	return time.Unix(0, d.LastAccessTime.Nanoseconds()), time.Unix(0, d.CreationTime.Nanoseconds())
}
