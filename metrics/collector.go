// Package metrics aggregates request phase timings across many exchanges.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	probehttp "github.com/wesleyorama2/apiprobe/http"
)

// Phases lists the phase keys in the order they occur.
var Phases = []string{
	probehttp.KeyDNSResolution,
	probehttp.KeyTCPConnection,
	probehttp.KeySSLHandshake,
	probehttp.KeyRequestSend,
	probehttp.KeyResponseReceive,
	probehttp.KeyTotalTime,
}

// Collector records the phases of every exchange in HDR histograms and
// Prometheus histograms. It satisfies probehttp.Recorder.
//
// # Thread Safety
//
// Collector is safe for concurrent use. Counters use atomic operations and
// histograms are guarded by a mutex.
type Collector struct {
	// HDR histograms per phase, in microseconds
	hists   map[string]*hdrhistogram.Histogram
	histsMu sync.Mutex

	totalRequests  atomic.Int64
	failedRequests atomic.Int64

	phaseSeconds *prometheus.HistogramVec
	requests     *prometheus.CounterVec

	config Config
}

// Config contains histogram bounds for a Collector.
type Config struct {
	// HistogramMin is the minimum recordable value in microseconds (default: 1)
	HistogramMin int64

	// HistogramMax is the maximum recordable value in microseconds (default: 3600000000 = 1 hour)
	HistogramMax int64

	// HistogramSigFigs is the number of significant figures (default: 3)
	HistogramSigFigs int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		HistogramMin:     1,
		HistogramMax:     3600000000, // 1 hour in microseconds
		HistogramSigFigs: 3,
	}
}

// NewCollector creates a Collector with the default configuration whose
// Prometheus metrics are registered with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(reg, DefaultConfig())
}

// NewCollectorWithConfig creates a Collector with custom histogram bounds.
func NewCollectorWithConfig(reg prometheus.Registerer, config Config) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		hists:  make(map[string]*hdrhistogram.Histogram, len(Phases)),
		config: config,
	}
	for _, phase := range Phases {
		c.hists[phase] = hdrhistogram.New(config.HistogramMin, config.HistogramMax, config.HistogramSigFigs)
	}

	c.phaseSeconds = promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apiprobe_request_phase_duration_seconds",
		Help:    "Duration of each HTTP request phase in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"phase"})
	c.requests = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "apiprobe_requests_total",
		Help: "Total number of timed HTTP requests",
	}, []string{"method", "outcome"})

	return c
}

// Record adds the exchange's phases. Phases that never started (for
// example TLS on plain http) are skipped; total time is always recorded.
func (c *Collector) Record(_ context.Context, ex probehttp.Exchange) error {
	outcome := "success"
	c.totalRequests.Add(1)
	if !ex.Succeeded() {
		outcome = "error"
		c.failedRequests.Add(1)
	}
	c.requests.WithLabelValues(ex.Method, outcome).Inc()

	for _, p := range observedPhases(ex.Timing) {
		c.phaseSeconds.WithLabelValues(p.key).Observe(p.duration.Seconds())
		c.recordHistogram(p.key, p.duration)
	}
	return nil
}

// recordHistogram records a duration in a phase histogram.
// NOTE: HDR histogram RecordValue is NOT thread-safe, so we must hold a lock.
func (c *Collector) recordHistogram(phase string, d time.Duration) {
	micros := d.Microseconds()
	if micros < c.config.HistogramMin {
		micros = c.config.HistogramMin
	}
	if micros > c.config.HistogramMax {
		micros = c.config.HistogramMax
	}

	c.histsMu.Lock()
	defer c.histsMu.Unlock()
	c.hists[phase].RecordValue(micros)
}

type phaseDuration struct {
	key      string
	duration time.Duration
}

func observedPhases(t probehttp.TimingRecord) []phaseDuration {
	var out []phaseDuration
	add := func(key string, start time.Time, d time.Duration) {
		if !start.IsZero() {
			out = append(out, phaseDuration{key: key, duration: d})
		}
	}
	add(probehttp.KeyDNSResolution, t.DNSStart, t.DNSTime())
	add(probehttp.KeyTCPConnection, t.ConnectStart, t.ConnectTime())
	add(probehttp.KeySSLHandshake, t.SSLStart, t.SSLTime())
	add(probehttp.KeyRequestSend, t.SendStart, t.SendTime())
	add(probehttp.KeyResponseReceive, t.ReceiveStart, t.ReceiveTime())
	add(probehttp.KeyTotalTime, t.StartTime, t.TotalTime())
	return out
}

// PhaseStats summarizes one phase's recorded durations.
type PhaseStats struct {
	Count int64
	Min   time.Duration
	Max   time.Duration
	Mean  time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	TotalRequests  int64
	FailedRequests int64

	// Phases holds stats for every phase with at least one sample
	Phases map[string]PhaseStats
}

// Snapshot returns the current aggregates.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		TotalRequests:  c.totalRequests.Load(),
		FailedRequests: c.failedRequests.Load(),
		Phases:         make(map[string]PhaseStats),
	}

	c.histsMu.Lock()
	defer c.histsMu.Unlock()

	for phase, hist := range c.hists {
		if hist.TotalCount() == 0 {
			continue
		}
		snap.Phases[phase] = PhaseStats{
			Count: hist.TotalCount(),
			Min:   time.Duration(hist.Min()) * time.Microsecond,
			Max:   time.Duration(hist.Max()) * time.Microsecond,
			Mean:  time.Duration(hist.Mean()) * time.Microsecond,
			P50:   time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond,
			P90:   time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond,
			P95:   time.Duration(hist.ValueAtQuantile(95)) * time.Microsecond,
			P99:   time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond,
		}
	}
	return snap
}

// Reset clears the HDR histograms and counters. Prometheus metrics are
// cumulative and are not reset.
func (c *Collector) Reset() {
	c.histsMu.Lock()
	defer c.histsMu.Unlock()

	for _, hist := range c.hists {
		hist.Reset()
	}
	c.totalRequests.Store(0)
	c.failedRequests.Store(0)
}
