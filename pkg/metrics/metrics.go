// Package metrics provides performance tracking for Quasar using
// Prometheus metrics. It offers collectors for decode throughput,
// latency, payload volume, and error rates broken down by the decode
// error taxonomy.
//
// # Overview
//
// The metrics package provides:
//   - Prometheus-compatible metrics collection
//   - Pre-defined metrics for decode and query operations
//   - Throughput and latency tracking utilities
//   - Thread-safe metric recording
//   - Automatic metric registration
//
// # Basic Usage
//
//	// Record a completed decode
//	collector := metrics.NewCollector("copy_decode")
//	timer := metrics.NewTimer("decode")
//	res, err := pgcopy.Decode(mem, data, types)
//	collector.ObserveDecode(rowCount(res), int64(len(data)), timer.Stop(), err)
//
//	// Track throughput across many dumps
//	tracker := metrics.NewThroughputTracker("file")
//	for _, dump := range dumps {
//	    rows := convert(dump)
//	    tracker.Increment(rows)
//	}
//	perSecond := tracker.GetAndReset()
//
// # Metric Types
//
// Counter: Monotonically increasing values (e.g., total rows decoded)
// Gauge: Values that can go up or down (e.g., current throughput)
// Histogram: Distribution of values (e.g., decode latency percentiles)
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	qerrors "github.com/ajitpratap0/quasar/pkg/errors"
)

var (
	// RowsDecoded tracks the total number of rows decoded from COPY streams.
	// Labels: source (file/query), status (success/failure)
	//
	// Example:
	//	metrics.RowsDecoded.WithLabelValues("query", "success").Add(50000)
	RowsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quasar_rows_decoded_total",
			Help: "Total number of rows decoded",
		},
		[]string{"source", "status"},
	)

	// BytesDecoded tracks the total wire bytes consumed by the decoder.
	BytesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quasar_bytes_decoded_total",
			Help: "Total wire bytes consumed by the decoder",
		},
		[]string{"source"},
	)

	// DecodeLatency tracks the distribution of decode latencies in nanoseconds.
	// The buckets run from single-row parses up to multi-second bulk dumps.
	// Labels: operation (decode/query/convert), source
	//
	// Example:
	//	start := time.Now()
	//	res, err := pgcopy.Decode(mem, data, types)
	//	metrics.DecodeLatency.WithLabelValues("decode", "file").
	//	    Observe(float64(time.Since(start).Nanoseconds()))
	DecodeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "quasar_decode_latency_nanoseconds",
			Help: "Decode latency in nanoseconds",
			Buckets: []float64{
				10000,  // 10μs - Tiny result sets
				100000, // 100μs - Small result sets
				1e6,    // 1ms - Standard result sets
				1e7,    // 10ms - Large result sets
				1e8,    // 100ms - Bulk dumps
				1e9,    // 1s - Very large dumps
				1e10,   // 10s - Full table exports
			},
		},
		[]string{"operation", "source"},
	)

	// DecodeErrors counts decode failures by taxonomy type, so malformed
	// input shows up separately from allocation pressure or type mapping
	// mistakes.
	// Labels: type (error type string), source
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quasar_decode_errors_total",
			Help: "Total decode failures by error type",
		},
		[]string{"type", "source"},
	)

	// QueriesExecuted counts COPY queries issued against PostgreSQL.
	// Labels: status (success/failure)
	QueriesExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quasar_queries_total",
			Help: "Total COPY queries executed",
		},
		[]string{"status"},
	)

	// Throughput tracks rows decoded per second.
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "quasar_throughput_rows_per_second",
			Help: "Current decode throughput in rows per second",
		},
		[]string{"source"},
	)
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

// Collector records decode outcomes for one source of dumps. The source
// name becomes a metric label, so a process decoding both files and live
// queries keeps the two streams separate. Safe for concurrent use.
type Collector struct {
	source string
}

// NewCollector creates a metrics collector for a dump source.
// The source parameter identifies where streams come from, typically
// "file" or "query".
//
// Example:
//
//	collector := metrics.NewCollector("query")
//	collector.ObserveDecode(int64(res.NumRows()), int64(len(data)), elapsed, nil)
func NewCollector(source string) *Collector {
	return &Collector{source: source}
}

// ObserveDecode records one decode attempt: row and byte volume, latency,
// and on failure the taxonomy type of the error.
func (c *Collector) ObserveDecode(rows, bytes int64, d time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
		DecodeErrors.WithLabelValues(string(qerrors.Type(err)), c.source).Inc()
	}

	RowsDecoded.WithLabelValues(c.source, status).Add(float64(rows))
	BytesDecoded.WithLabelValues(c.source).Add(float64(bytes))
	DecodeLatency.WithLabelValues("decode", c.source).Observe(float64(d.Nanoseconds()))
}

// ObserveQuery records one COPY query round trip against PostgreSQL.
func (c *Collector) ObserveQuery(d time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}

	QueriesExecuted.WithLabelValues(status).Inc()
	DecodeLatency.WithLabelValues("query", c.source).Observe(float64(d.Nanoseconds()))
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
//
// Example:
//
//	timer := metrics.NewTimer("decode")
//	res, err := pgcopy.Decode(mem, data, types)
//	logger.Info("decode finished", zap.Duration("duration", timer.Stop()))
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times, each returning the total elapsed time.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks decode throughput (rows per second) over time
// windows. It updates the Throughput gauge when queried. Safe for
// concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	source    string
}

// NewThroughputTracker creates a throughput tracker for a dump source.
//
// Example:
//
//	tracker := metrics.NewThroughputTracker("file")
//	for _, dump := range dumps {
//	    rows := convert(dump)
//	    tracker.Increment(rows)
//	}
//	logger.Info("throughput", zap.Float64("rows_per_sec", tracker.GetAndReset()))
func NewThroughputTracker(source string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		source:    source,
	}
}

// Increment adds n to the row count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput (rows/second), updates
// the Prometheus gauge, resets the counter, and returns the calculated
// throughput. Safe for concurrent use.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.source).Set(throughput)

	return throughput
}
