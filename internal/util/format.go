package util

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimestampLayout is the rendering of per-file timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatSize returns a human-readable size using 1024-based steps, e.g.
// "1023 bytes", "1.5 KB", "1 GB". The divided value is rounded to two
// decimals; a value that rounds up to 1024 moves to the next unit.
func FormatSize(bytes uint64) string {
	const (
		_          = iota
		kB float64 = 1 << (10 * iota)
		mB
		gB
	)

	b := float64(bytes)
	switch {
	case b < kB:
		return fmt.Sprintf("%d bytes", bytes)
	case b < mB:
		if v := round2(b / kB); v < 1024 {
			return formatUnit(v, "KB")
		}
		return formatUnit(round2(b/mB), "MB")
	case b < gB:
		if v := round2(b / mB); v < 1024 {
			return formatUnit(v, "MB")
		}
		return formatUnit(round2(b/gB), "GB")
	default:
		return formatUnit(round2(b/gB), "GB")
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatUnit(v float64, unit string) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit
}

// FormatTimestamp renders t in local time, or "N/A" for the zero time.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format(TimestampLayout)
}

// FormatDuration renders a scan duration with millisecond precision.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}

// FormatCount returns a human-readable count string.
func FormatCount(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1_000_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	if n < 1_000_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
}

// Percent returns the percentage of part relative to total.
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TruncateString truncates a string to maxLen runes, adding "..." if needed.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
