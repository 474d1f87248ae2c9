// Package metrics exports the counters of a finished run as a Prometheus
// textfile, for node_exporter's textfile collector or a pushgateway job.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bamsammich/purge/internal/engine"
)

const namespace = "purge"

// Registry builds a fresh registry holding the final values of res.
func Registry(res engine.Result) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"run": res.RunID}
	s := res.Stats

	counter := func(name, help string, v int64) {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		c.Add(float64(v))
		reg.MustRegister(c)
	}
	gauge := func(name, help string, v float64) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
		g.Set(v)
		reg.MustRegister(g)
	}

	counter("files_found_total", "Non-directory entries discovered.", s.FilesFound)
	counter("dirs_found_total", "Directories discovered.", s.DirsFound)
	counter("files_removed_total", "Non-directory entries removed.", s.FilesRemoved)
	counter("dirs_removed_total", "Directories removed.", s.DirsRemoved)
	counter("bytes_freed_total", "Bytes freed by removed entries.", s.BytesFreed)
	counter("files_failed_total", "Non-directory entries that could not be removed.", s.FilesFailed)
	counter("dirs_failed_total", "Directories that could not be removed.", s.DirsFailed)
	counter("vanished_total", "Entries already gone when removal was attempted.", s.Vanished)
	counter("errors_total", "Per-entry errors of any kind.", s.Errors)

	gauge("duration_seconds", "Wall time of the run.", s.Elapsed.Seconds())
	gauge("queue_peak", "Largest number of queued tasks observed.", float64(res.PeakQueued))
	gauge("interrupted", "1 if the run was cancelled before finishing.", boolValue(res.Interrupted))
	gauge("paths_denied", "Input paths refused by the safety rules.", float64(len(res.Denied)))
	gauge("paths_declined", "Input paths not confirmed.", float64(len(res.Declined)))
	return reg
}

// WriteTextfile writes the final values of res to path atomically.
func WriteTextfile(path string, res engine.Result) error {
	if err := prometheus.WriteToTextfile(path, Registry(res)); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
