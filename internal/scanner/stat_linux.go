//go:build linux

package scanner

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// platformTimes returns access and birth times. Birth time comes from
// statx and is zero when the filesystem does not record it.
func platformTimes(path string, info os.FileInfo, local bool) (atime, btime time.Time) {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		atime = time.Unix(st.Atim.Unix())
	}
	if !local {
		return atime, time.Time{}
	}
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_ATIME|unix.STATX_BTIME, &stx)
	if err != nil {
		return atime, time.Time{}
	}
	if stx.Mask&unix.STATX_ATIME != 0 {
		atime = time.Unix(stx.Atime.Sec, int64(stx.Atime.Nsec))
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		btime = time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
	}
	return atime, btime
}
