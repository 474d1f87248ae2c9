package ui

import (
	"fmt"

	"github.com/bamsammich/purge/internal/stats"
)

// CompletionSummary builds a final summary line from a snapshot.
// Format: done ✓  files 1,204  dirs 87  freed 1.2 GiB  rate 3,410 files/s  time 2s  errors 0
func CompletionSummary(snap stats.Snapshot) string {
	icon := "✓"
	if snap.Errors > 0 {
		icon = "✗"
	}

	return fmt.Sprintf("done %s  files %s  dirs %s  freed %s  rate %s  time %s  errors %s",
		icon,
		FormatCount(snap.FilesRemoved),
		FormatCount(snap.DirsRemoved),
		FormatBytes(snap.BytesFreed),
		FormatRate(averageRate(snap)),
		FormatDuration(snap.Elapsed),
		FormatCount(snap.Errors),
	)
}
