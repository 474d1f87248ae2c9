package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/purge/internal/stats"
)

const plainProgressInterval = 5 * time.Second

// plainPresenter prints a progress line to stderr every few seconds and, when
// verbose, one line per settled entry to stdout.
type plainPresenter struct {
	w       io.Writer
	errW    io.Writer
	stats   stats.ReadTicker
	verbose bool
	dryRun  bool

	started bool
	walked  bool
}

func (p *plainPresenter) Run(events <-chan Event) error {
	ticker := time.NewTicker(plainProgressInterval)
	defer ticker.Stop()
	// Samples for the rolling rate.
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-secTicker.C:
			p.stats.Tick()
		case <-ticker.C:
			if p.started {
				p.printProgress()
			}
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case WalkStarted:
		p.started = true
	case WalkComplete:
		p.walked = true
	case FileRemoved:
		if p.verbose {
			fmt.Fprintf(p.w, "%s %s  %s\n", p.verb(), ev.Path, FormatBytes(ev.Size))
		}
	case DirRemoved:
		if p.verbose {
			fmt.Fprintf(p.w, "%s %s/\n", p.verb(), ev.Path)
		}
	case FileFailed, DirFailed, ReadDirFailed:
		if p.verbose {
			fmt.Fprintf(p.w, "error %s\n", errText(ev))
		}
	case PathDeclined:
		fmt.Fprintf(p.errW, "skipped %s (not confirmed)\n", ev.Path)
	case PathDenied:
		// logged by the engine
	}
}

func (p *plainPresenter) verb() string {
	if p.dryRun {
		return "would remove"
	}
	return "removed"
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	rate := p.stats.RollingEntriesPerSec(5)
	if p.walked {
		fmt.Fprintf(p.errW, "progress: %.0f%%  files %s/%s  dirs %s/%s  freed %s  %s  errors %s\n",
			percent(snap),
			FormatCount(snap.FilesRemoved), FormatCount(snap.FilesFound),
			FormatCount(snap.DirsRemoved), FormatCount(snap.DirsFound),
			FormatBytes(snap.BytesFreed),
			FormatRate(rate),
			FormatCount(snap.Errors),
		)
		return
	}
	fmt.Fprintf(p.errW, "progress: files %s  dirs %s  freed %s  %s  errors %s  (still scanning)\n",
		FormatCount(snap.FilesRemoved),
		FormatCount(snap.DirsRemoved),
		FormatBytes(snap.BytesFreed),
		FormatRate(rate),
		FormatCount(snap.Errors),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// percent is the share of discovered entries that have settled.
func percent(snap stats.Snapshot) float64 {
	total := snap.Entries()
	if total == 0 {
		return 0
	}
	return float64(snap.Settled()) / float64(total) * 100
}

func errText(ev Event) string {
	if ev.Error != nil {
		return ev.Error.Error()
	}
	return ev.Path + ": error"
}
