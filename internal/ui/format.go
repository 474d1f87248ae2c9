package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bamsammich/purge/internal/stats"
)

// FormatRate formats an entries-per-second rate, e.g. "3,410 files/s".
func FormatRate(perSec float64) string {
	if perSec <= 0 {
		return "0 files/s"
	}
	return FormatCount(int64(perSec+0.5)) + " files/s"
}

// FormatByteRate formats a bytes-per-second rate, e.g. "12 MiB/s".
func FormatByteRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(bytesPerSec)) + "/s"
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

// averageRate is entries removed per second over the whole run.
func averageRate(snap stats.Snapshot) float64 {
	secs := snap.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(snap.FilesRemoved+snap.DirsRemoved) / secs
}

// ProgressBar renders a progress bar of the given width using ▪/□ characters.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return strings.Repeat("▪", filled) + strings.Repeat("□", width-filled)
}
