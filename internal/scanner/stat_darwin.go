//go:build darwin

package scanner

import (
	"os"
	"syscall"
	"time"
)

// platformTimes returns access and birth times from the stat buffer.
func platformTimes(_ string, info os.FileInfo, _ bool) (atime, btime time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}, time.Time{}
	}
	return time.Unix(st.Atimespec.Unix()), time.Unix(st.Birthtimespec.Unix())
}
