package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "binfill"

// BinFill is the fill level of one bin after a run.
type BinFill struct {
	Name     string
	Group    string
	IDs      int
	Capacity int
	ReadOnly bool
}

// RunStats carries the counters of one placement run.
type RunStats struct {
	Pending       int
	AlreadyPlaced int
	Placed        int
	Unplaced      map[string]int
	BinsTouched   int
	BinsCreated   int
	WriteFailures int
	Duration      time.Duration
	FinishedAt    time.Time
	Bins          []BinFill
}

// Collector holds the gauges describing the most recent run on a private
// registry, so repeated runs in one process never collide.
type Collector struct {
	reg *prometheus.Registry

	pending       prometheus.Gauge
	alreadyPlaced prometheus.Gauge
	placed        prometheus.Gauge
	unplaced      *prometheus.GaugeVec
	binsTouched   prometheus.Gauge
	binsCreated   prometheus.Gauge
	writeFailures prometheus.Gauge
	duration      prometheus.Gauge
	lastRun       prometheus.Gauge
	binIDs        *prometheus.GaugeVec
	binCapacity   *prometheus.GaugeVec
	binReadOnly   *prometheus.GaugeVec
}

// New creates a collector with all gauges registered.
func New() *Collector {
	reg := prometheus.NewRegistry()
	gauge := func(name, help string) prometheus.Gauge {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
		reg.MustRegister(g)
		return g
	}
	gaugeVec := func(name, help string, labels ...string) *prometheus.GaugeVec {
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help}, labels)
		reg.MustRegister(g)
		return g
	}

	return &Collector{
		reg:           reg,
		pending:       gauge("items_pending", "Eligible items not yet placed at the start of the last run."),
		alreadyPlaced: gauge("items_already_placed", "Eligible items skipped because a bin already holds them."),
		placed:        gauge("items_placed", "Items placed by the last run."),
		unplaced:      gaugeVec("items_unplaced", "Items left unplaced by the last run, per exhausted group.", "group"),
		binsTouched:   gauge("bins_touched", "Bins that received items in the last run."),
		binsCreated:   gauge("bins_created", "Bins created by the last run."),
		writeFailures: gauge("bin_write_failures", "Bins that could not be written in the last run."),
		duration:      gauge("run_duration_seconds", "Wall time of the last run."),
		lastRun:       gauge("last_run_timestamp_seconds", "Unix time the last run finished."),
		binIDs:        gaugeVec("bin_ids", "Item ids held per bin.", "bin", "group"),
		binCapacity:   gaugeVec("bin_capacity", "Capacity per bin.", "bin", "group"),
		binReadOnly:   gaugeVec("bin_read_only", "1 when the bin is closed to new items.", "bin", "group"),
	}
}

// Registry exposes the underlying registry for gathering.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }

// Observe replaces the gauges with the values of stats.
func (c *Collector) Observe(stats RunStats) {
	c.pending.Set(float64(stats.Pending))
	c.alreadyPlaced.Set(float64(stats.AlreadyPlaced))
	c.placed.Set(float64(stats.Placed))
	c.binsTouched.Set(float64(stats.BinsTouched))
	c.binsCreated.Set(float64(stats.BinsCreated))
	c.writeFailures.Set(float64(stats.WriteFailures))
	c.duration.Set(stats.Duration.Seconds())
	if !stats.FinishedAt.IsZero() {
		c.lastRun.Set(float64(stats.FinishedAt.Unix()))
	}

	c.unplaced.Reset()
	for group, n := range stats.Unplaced {
		c.unplaced.WithLabelValues(group).Set(float64(n))
	}

	c.binIDs.Reset()
	c.binCapacity.Reset()
	c.binReadOnly.Reset()
	for _, b := range stats.Bins {
		c.binIDs.WithLabelValues(b.Name, b.Group).Set(float64(b.IDs))
		c.binCapacity.WithLabelValues(b.Name, b.Group).Set(float64(b.Capacity))
		readOnly := 0.0
		if b.ReadOnly {
			readOnly = 1
		}
		c.binReadOnly.WithLabelValues(b.Name, b.Group).Set(readOnly)
	}
}

// WriteTextfile writes the gauges in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
