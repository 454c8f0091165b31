package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds the service's metrics.
type AppMetrics struct {
	// Comparison engine
	ComparisonsTotal   CounterVec   // outcome
	ComparisonDuration HistogramVec // path
	SpansReconciled    CounterVec   // outcome
	ChunksProcessed    CounterVec   // status

	// Oracle
	OracleCallsTotal   CounterVec   // model, status
	OracleCallDuration HistogramVec // model
	OracleRetriesTotal CounterVec
	OracleBreakerState GaugeVec // oracle

	// Cache
	CacheAccessesTotal CounterVec // result
	CacheEntries       GaugeVec

	// Recorder sinks
	RecorderWritesTotal CounterVec // sink, status

	// HTTP
	HTTPRequestsTotal   CounterVec   // method, route, status
	HTTPRequestDuration HistogramVec // method, route
	HTTPActiveRequests  GaugeVec
	RateLimitRejections CounterVec
}

var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultComparisonDurationBuckets = []float64{.01, .1, .5, 1, 2, 5, 10, 20, 30, 60, 120}
	DefaultOracleDurationBuckets     = []float64{.5, 1, 2, 5, 10, 15, 25, 45, 90}
)

// NewAppMetrics registers every metric on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	return &AppMetrics{
		ComparisonsTotal:   collector.RegisterCounter("comparisons_total", "Comparisons by outcome.", "outcome"),
		ComparisonDuration: collector.RegisterHistogram("comparison_duration_seconds", "Comparison latency by execution path.", DefaultComparisonDurationBuckets, "path"),
		SpansReconciled:    collector.RegisterCounter("spans_reconciled_total", "Span reconciliation outcomes.", "outcome"),
		ChunksProcessed:    collector.RegisterCounter("chunks_processed_total", "Chunk analyses by status.", "status"),

		OracleCallsTotal:   collector.RegisterCounter("oracle_calls_total", "Oracle calls by model and status.", "model", "status"),
		OracleCallDuration: collector.RegisterHistogram("oracle_call_duration_seconds", "Oracle call latency including retries.", DefaultOracleDurationBuckets, "model"),
		OracleRetriesTotal: collector.RegisterCounter("oracle_retries_total", "Oracle retry attempts."),
		OracleBreakerState: collector.RegisterGauge("oracle_breaker_state", "Circuit breaker state (0 closed, 1 open, 2 half-open).", "oracle"),

		CacheAccessesTotal: collector.RegisterCounter("cache_accesses_total", "Verdict cache lookups by result.", "result"),
		CacheEntries:       collector.RegisterGauge("cache_entries", "Entries in the local verdict cache."),

		RecorderWritesTotal: collector.RegisterCounter("recorder_writes_total", "Comparison record writes by sink and status.", "sink", "status"),

		HTTPRequestsTotal:   collector.RegisterCounter("http_requests_total", "HTTP requests.", "method", "route", "status"),
		HTTPRequestDuration: collector.RegisterHistogram("http_request_duration_seconds", "HTTP request latency.", DefaultHTTPDurationBuckets, "method", "route"),
		HTTPActiveRequests:  collector.RegisterGauge("http_active_requests", "In-flight HTTP requests."),
		RateLimitRejections: collector.RegisterCounter("rate_limit_rejections_total", "Requests rejected by the rate limiter."),
	}
}

// NewNoopAppMetrics returns metrics that record nothing.
func NewNoopAppMetrics() *AppMetrics { return NewAppMetrics(NewNoopCollector()) }

// RecordHTTPRequest records one finished HTTP request.
func RecordHTTPRequest(m *AppMetrics, method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOracleCall records one logical oracle call.
func RecordOracleCall(m *AppMetrics, model string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.OracleCallsTotal.WithLabelValues(model, status).Inc()
	m.OracleCallDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordCacheAccess records a cache lookup. source is empty on a miss.
func RecordCacheAccess(m *AppMetrics, source string) {
	if m == nil {
		return
	}
	result := "miss"
	if source != "" {
		result = "hit_" + source
	}
	m.CacheAccessesTotal.WithLabelValues(result).Inc()
}

// RecordComparison records a finished comparison.
func RecordComparison(m *AppMetrics, outcome, path string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ComparisonsTotal.WithLabelValues(outcome).Inc()
	m.ComparisonDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordOracleRetry counts one retry of a failed oracle call.
func RecordOracleRetry(m *AppMetrics) {
	if m == nil {
		return
	}
	m.OracleRetriesTotal.WithLabelValues().Inc()
}

// SetBreakerState publishes the circuit breaker state of oracle.
func SetBreakerState(m *AppMetrics, oracle string, state int) {
	if m == nil {
		return
	}
	m.OracleBreakerState.WithLabelValues(oracle).Set(float64(state))
}

// SetCacheEntries publishes the local verdict cache size.
func SetCacheEntries(m *AppMetrics, n int) {
	if m == nil {
		return
	}
	m.CacheEntries.WithLabelValues().Set(float64(n))
}

// RecordSinkWrite records one recorder sink write.
func RecordSinkWrite(m *AppMetrics, sink string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.RecorderWritesTotal.WithLabelValues(sink, status).Inc()
}

//Personal.AI order the ending
