package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bamsammich/purge/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim   = "\033[2m"
	ansiReset = "\033[0m"
)

const (
	sparklineWidth   = 20
	progressBarWidth = 20
	hudMinInterval   = 100 * time.Millisecond // don't redraw faster than this
)

// hudPresenter draws a two-line HUD on a TTY that redraws in place. Failures,
// and every removal when verbose, scroll above it.
type hudPresenter struct {
	w       io.Writer
	stats   stats.ReadTicker
	width   int
	verbose bool
	dryRun  bool

	started      bool // nothing is drawn before the walk starts
	walked       bool
	hudDrawn     bool
	hudLineCount int
	lastHUDDraw  time.Time
}

func (p *hudPresenter) Run(events <-chan Event) error {
	// Fire first tick quickly to seed the ring buffer, then switch to 1s.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	redrawTicker := time.NewTicker(hudMinInterval)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearHUD()
				return nil
			}
			p.handleEvent(ev)
			p.maybeDrawHUD()

		case <-redrawTicker.C:
			p.maybeDrawHUD()

		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(time.Second)
			}
		}
	}
}

func (p *hudPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case WalkStarted:
		p.started = true
	case WalkComplete:
		p.walked = true
	case FileRemoved, DirRemoved:
		if p.verbose {
			p.printAbove(p.removedLine(ev))
		}
	case FileFailed, DirFailed, ReadDirFailed:
		p.printAbove(fmt.Sprintf("✗  %s", errText(ev)))
	case PathDeclined:
		p.printAbove(fmt.Sprintf("–  %s  %s(not confirmed)%s", ev.Path, ansiDim, ansiReset))
	case PathDenied:
	}
}

func (p *hudPresenter) printAbove(line string) {
	p.clearHUD()
	fmt.Fprintln(p.w, line)
	if p.started {
		p.drawHUD() // always redraw HUD after feed line
	}
}

func (p *hudPresenter) removedLine(ev Event) string {
	mark := "✓"
	if p.dryRun {
		mark = "·"
	}
	path := ev.Path
	if p.width > 0 {
		path = truncPath(path, p.width-16) // mark and size column
	}
	if ev.Type == DirRemoved {
		return fmt.Sprintf("%s  %s/", mark, styledPath(path))
	}
	return fmt.Sprintf("%s  %s  %10s", mark, styledPath(path), FormatBytes(ev.Size))
}

// maybeDrawHUD redraws the HUD if enough time has passed since the last draw.
func (p *hudPresenter) maybeDrawHUD() {
	if !p.started || time.Since(p.lastHUDDraw) < hudMinInterval {
		return
	}
	p.drawHUD()
}

func (p *hudPresenter) drawHUD() {
	snap := p.stats.Snapshot()
	p.clearHUD()

	// Line 1: files/s sparkline + entry and byte rates.
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
	fmt.Fprintf(p.w, "files/s  %s   %s   %s\n",
		spark,
		FormatRate(p.stats.RollingEntriesPerSec(5)),
		FormatByteRate(p.stats.RollingSpeed(5)),
	)

	// Line 2: progress once totals are known, counters always.
	progress := "scanning"
	if p.walked {
		pct := percent(snap)
		progress = fmt.Sprintf("%3.0f%%  %s", pct, ProgressBar(pct/100, progressBarWidth))
	}
	fmt.Fprintf(p.w, " %s   files %s  dirs %s  freed %s  errors %s\n",
		progress,
		FormatCount(snap.FilesRemoved),
		FormatCount(snap.DirsRemoved),
		FormatBytes(snap.BytesFreed),
		FormatCount(snap.Errors),
	)

	p.hudDrawn = true
	p.hudLineCount = 2
	p.lastHUDDraw = time.Now()
}

func (p *hudPresenter) clearHUD() {
	if !p.hudDrawn {
		return
	}
	// Move cursor up N lines and clear to end of screen.
	fmt.Fprintf(p.w, "\033[%dA\033[J", p.hudLineCount)
	p.hudDrawn = false
}

func (p *hudPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

// styledPath returns the path with the directory portion dimmed so the
// entry name stands out.
func styledPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return base
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return ansiDim + dir + ansiReset + base
}

// truncPath shortens a path to fit within maxLen bytes, keeping the end.
func truncPath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[len(path)-max(maxLen, 0):]
	}
	return "..." + path[len(path)-maxLen+3:]
}
