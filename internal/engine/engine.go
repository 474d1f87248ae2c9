package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bamsammich/purge/internal/event"
	"github.com/bamsammich/purge/internal/platform"
	"github.com/bamsammich/purge/internal/safety"
	"github.com/bamsammich/purge/internal/stats"
)

const (
	// DefaultQueueFactor sizes the work channel relative to the worker count.
	DefaultQueueFactor = 8
	// DefaultMaxFailures caps how many failures a Result keeps.
	DefaultMaxFailures = 1000
)

// ErrInvalidConfig is wrapped by every configuration error Run returns.
var ErrInvalidConfig = errors.New("invalid config")

// Config describes a removal run.
type Config struct {
	// Events receives progress events. Sends never block and drop the event
	// when the channel is full, unless BlockOnEvents is set.
	Events     chan<- event.Event
	Classifier *safety.Classifier // nil: built from the process environment
	Remover    Remover            // nil: OSRemover, or DryRunRemover when DryRun
	Stats      *stats.Collector   // nil: a fresh collector

	// Confirm is asked about every RequiresConfirmation path unless Force is
	// set. A nil Confirm declines them all.
	Confirm func(safety.Classification) bool

	RunID       string
	Paths       []string
	Workers     int
	QueueDepth  int
	MaxFailures int
	Force       bool
	DryRun      bool

	// BlockOnEvents makes workers wait for room on Events so that every
	// event is delivered. The consumer must drain Events until Run returns.
	BlockOnEvents bool

	openDir func(name string) (dirReader, error)
}

// Result is the outcome of a removal run.
type Result struct {
	Err             error // fatal: the run did not start
	RunID           string
	Accepted        []string
	Declined        []string
	Denied          []safety.Classification
	Failures        []Failure
	Stats           stats.Snapshot
	FailuresDropped int
	PeakQueued      int
	NothingToDo     bool
	Interrupted     bool
}

// OK reports whether the run finished with no recorded errors.
func (r Result) OK() bool {
	return r.Err == nil && !r.Interrupted && r.Stats.Errors == 0
}

func (c Config) validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0 (got %d)", ErrInvalidConfig, c.Workers)
	}
	if c.QueueDepth < 0 {
		return fmt.Errorf("%w: queue depth must be >= 0 (got %d)", ErrInvalidConfig, c.QueueDepth)
	}
	if c.MaxFailures < 0 {
		return fmt.Errorf("%w: max failures must be >= 0 (got %d)", ErrInvalidConfig, c.MaxFailures)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Workers == 0 {
		c.Workers = max(runtime.NumCPU(), 1)
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = c.Workers * DefaultQueueFactor
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = DefaultMaxFailures
	}
	if c.DryRun {
		c.Remover = DryRunRemover{}
	} else if c.Remover == nil {
		c.Remover = OSRemover{}
	}
	if c.Stats == nil {
		c.Stats = stats.NewCollector()
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
	if c.openDir == nil {
		c.openDir = openDir
	}
	return c
}

// run is the shared state of one removal run.
type run struct {
	cfg       Config
	queue     *Queue
	barrier   *dirNode
	failures  chan Failure
	completed atomic.Bool
}

// Run classifies the configured paths and removes the accepted ones,
// blocking until every task has settled or ctx is cancelled.
func Run(ctx context.Context, cfg Config) Result {
	if err := cfg.validate(); err != nil {
		return Result{Err: err}
	}
	cfg = cfg.withDefaults()

	classifier := cfg.Classifier
	if classifier == nil {
		var err error
		classifier, err = safety.FromEnv()
		if err != nil {
			return Result{Err: fmt.Errorf("safety: %w", err), RunID: cfg.RunID}
		}
	}

	res := Result{RunID: cfg.RunID}
	r := &run{cfg: cfg}
	res.Accepted = r.admit(classifier, &res)
	if len(res.Accepted) == 0 {
		res.NothingToDo = true
		res.Stats = cfg.Stats.Snapshot()
		return res
	}

	r.queue = NewQueue(cfg.QueueDepth)
	r.barrier = newDirNode("", nil)
	r.failures = make(chan Failure, 256)

	slog.Debug("starting removal",
		"paths", res.Accepted,
		"workers", cfg.Workers,
		"queue_depth", r.queue.Cap(),
		"dry_run", cfg.DryRun,
		"method", platform.Method.String(),
	)

	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for f := range r.failures {
			if len(res.Failures) < cfg.MaxFailures {
				res.Failures = append(res.Failures, f)
			} else {
				res.FailuresDropped++
			}
		}
	}()

	// Closing the queue is the only way to stop a run early.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			slog.Debug("interrupted, abandoning queued work")
			r.queue.Close()
		case <-watchDone:
		}
	}()

	var wg sync.WaitGroup
	for id := range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(id)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.walk(res.Accepted)
	}()

	wg.Wait()
	close(watchDone)
	close(r.failures)
	collectWg.Wait()

	res.Stats = cfg.Stats.Snapshot()
	res.PeakQueued = r.queue.Peak()
	res.Interrupted = !r.completed.Load()

	slog.Debug("removal finished",
		"stats", res.Stats.String(),
		"peak_queued", res.PeakQueued,
		"interrupted", res.Interrupted,
	)
	return res
}

// admit classifies every input path and returns those cleared for removal.
func (r *run) admit(classifier *safety.Classifier, res *Result) []string {
	var accepted []string
	for _, p := range r.cfg.Paths {
		c := classifier.Classify(p)
		switch c.Verdict {
		case safety.Denied:
			slog.Warn("refusing to remove path", "path", p, "reason", c.Reason.String())
			res.Denied = append(res.Denied, c)
			r.emit(event.Event{Type: event.PathDenied, Path: p, WorkerID: walkerID})
			continue
		case safety.RequiresConfirmation:
			if !r.cfg.Force && (r.cfg.Confirm == nil || !r.cfg.Confirm(c)) {
				slog.Info("skipping declined path", "path", c.Path)
				res.Declined = append(res.Declined, c.Path)
				r.emit(event.Event{Type: event.PathDeclined, Path: c.Path, WorkerID: walkerID})
				continue
			}
		case safety.Allowed:
		}
		accepted = append(accepted, c.Path)
	}
	return pruneNested(accepted)
}

// pruneNested drops duplicate roots and roots inside another root, which
// would otherwise be walked twice. Paths must be clean and absolute.
func pruneNested(paths []string) []string {
	if len(paths) < 2 {
		return paths
	}
	// Ancestors are strictly shorter, so they are kept before any descendant
	// is looked at.
	byLen := append([]string(nil), paths...)
	sort.SliceStable(byLen, func(i, j int) bool { return len(byLen[i]) < len(byLen[j]) })

	keep := make(map[string]bool, len(byLen))
	for _, p := range byLen {
		if !keep[p] && !underKept(keep, p) {
			keep[p] = true
		}
	}

	out := make([]string, 0, len(keep))
	for _, p := range paths {
		if keep[p] {
			out = append(out, p)
			delete(keep, p)
		}
	}
	return out
}

func underKept(keep map[string]bool, p string) bool {
	for dir := filepath.Dir(p); ; dir = filepath.Dir(dir) {
		if keep[dir] {
			return true
		}
		if next := filepath.Dir(dir); next == dir {
			return false
		}
	}
}

func (r *run) settle(n *dirNode) (Task, bool) {
	if n == nil || !n.release() {
		return Task{}, false
	}
	if n == r.barrier {
		r.completed.Store(true)
		r.queue.Close()
		return Task{}, false
	}
	return n.task(), true
}

func (r *run) emit(e event.Event) {
	if r.cfg.Events == nil {
		return
	}
	e.Timestamp = time.Now()
	if r.cfg.BlockOnEvents {
		r.cfg.Events <- e
		return
	}
	select {
	case r.cfg.Events <- e:
	default:
	}
}

// fail records a per-entry error. It never stops the run.
func (r *run) fail(id int, f Failure, typ event.Type) {
	r.cfg.Stats.AddErrors(1)
	r.failures <- f
	r.emit(event.Event{Type: typ, Path: f.Path, Error: f, WorkerID: id})
	slog.Debug("entry failed", "op", f.Op, "path", f.Path, "error", f.Err, "worker", id)
}

type dirReader interface {
	ReadDir(n int) ([]os.DirEntry, error)
	Close() error
}

func openDir(name string) (dirReader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return f, nil
}
