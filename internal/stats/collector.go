package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const ringSize = 60

// Collector tracks removal statistics using lock-free atomic counters.
// Fields are updated independently; a Snapshot taken mid-run may combine
// values from slightly different instants.
type Collector struct {
	filesFound   atomic.Int64
	dirsFound    atomic.Int64
	filesRemoved atomic.Int64
	dirsRemoved  atomic.Int64
	bytesFreed   atomic.Int64
	filesFailed  atomic.Int64
	dirsFailed   atomic.Int64
	vanished     atomic.Int64
	errors       atomic.Int64
	startTime    time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes delta per second
	entriesPerS [ringSize]int64 // files+dirs delta per second
	ringIdx     int
	ringCount   int
	lastBytes   int64
	lastEntries int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Reader is the read side of a Collector.
type Reader interface {
	Snapshot() Snapshot
}

// ReadTicker is what live presenters need: snapshots plus the rate ring.
type ReadTicker interface {
	Reader
	Tick()
	RollingSpeed(seconds int) float64
	RollingEntriesPerSec(seconds int) float64
	SparklineData(n int) []float64
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesFound   int64
	DirsFound    int64
	FilesRemoved int64
	DirsRemoved  int64
	BytesFreed   int64
	FilesFailed  int64
	DirsFailed   int64
	Vanished     int64
	Errors       int64
	Elapsed      time.Duration
}

func (c *Collector) AddFilesFound(n int64)   { c.filesFound.Add(n) }
func (c *Collector) AddDirsFound(n int64)    { c.dirsFound.Add(n) }
func (c *Collector) AddFilesRemoved(n int64) { c.filesRemoved.Add(n) }
func (c *Collector) AddDirsRemoved(n int64)  { c.dirsRemoved.Add(n) }
func (c *Collector) AddBytesFreed(n int64)   { c.bytesFreed.Add(n) }
func (c *Collector) AddFilesFailed(n int64)  { c.filesFailed.Add(n) }
func (c *Collector) AddDirsFailed(n int64)   { c.dirsFailed.Add(n) }
func (c *Collector) AddVanished(n int64)     { c.vanished.Add(n) }
func (c *Collector) AddErrors(n int64)       { c.errors.Add(n) }

// Snapshot returns a point-in-time read of all counters without blocking
// writers.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesFound:   c.filesFound.Load(),
		DirsFound:    c.dirsFound.Load(),
		FilesRemoved: c.filesRemoved.Load(),
		DirsRemoved:  c.dirsRemoved.Load(),
		BytesFreed:   c.bytesFreed.Load(),
		FilesFailed:  c.filesFailed.Load(),
		DirsFailed:   c.dirsFailed.Load(),
		Vanished:     c.vanished.Load(),
		Errors:       c.errors.Load(),
		Elapsed:      c.Elapsed(),
	}
}

// Tick snapshots byte/entry deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesFreed.Load()
	currentEntries := c.filesRemoved.Load() + c.dirsRemoved.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.entriesPerS[c.ringIdx] = currentEntries - c.lastEntries
	c.lastBytes = currentBytes
	c.lastEntries = currentEntries

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec freed over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingEntriesPerSec returns average entries removed per second over the last n seconds.
func (c *Collector) RollingEntriesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.entriesPerS[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n entries/sec samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}

	data := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.entriesPerS[idx])
	}
	return data
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	if c.startTime.IsZero() {
		return 0
	}
	return time.Since(c.startTime)
}

// Entries is the number of entries the walker discovered.
func (s Snapshot) Entries() int64 { return s.FilesFound + s.DirsFound }

// Settled is the number of entries that reached a final state.
func (s Snapshot) Settled() int64 {
	return s.FilesRemoved + s.DirsRemoved + s.FilesFailed + s.DirsFailed + s.Vanished
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"files=%d/%d dirs=%d/%d bytes=%d failed=%d/%d vanished=%d errors=%d",
		s.FilesRemoved, s.FilesFound, s.DirsRemoved, s.DirsFound,
		s.BytesFreed, s.FilesFailed, s.DirsFailed, s.Vanished, s.Errors,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	if b < 0 {
		return "-" + humanize.IBytes(uint64(-b))
	}
	return humanize.IBytes(uint64(b))
}
