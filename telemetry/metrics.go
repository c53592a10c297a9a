package telemetry

// Histogram bucket definitions for different latency profiles
var (
	// DurableBuckets for relational store round trips
	DurableBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

	// VolatileBuckets for redis counter and cache round trips
	VolatileBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25}

	// ReconcileBuckets for full reconciliation passes
	ReconcileBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30}

	// HTTPBuckets for request handling latency
	HTTPBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}
)

// Cache Metrics
var (
	// CacheRequestsTotal counts cache lookups by kind (record, list) and result (hit, miss, error)
	CacheRequestsTotal CounterVec = noopCounterVec{}

	// CacheInvalidationsTotal counts invalidation calls by scope (record, lists, owner)
	CacheInvalidationsTotal CounterVec = noopCounterVec{}

	// CacheOpDurationSeconds measures cache operation latency by op (get, set, delete_matching)
	CacheOpDurationSeconds HistogramVec = noopHistogramVec{}

	// CacheCompressedTotal counts cached payloads stored compressed
	CacheCompressedTotal Counter = NoopStat{}

	// CacheEntries tracks entries held by the in-memory cache backend
	CacheEntries Gauge = NoopStat{}
)

// Counter Metrics
var (
	// ViewIncrementsTotal counts view counter bumps by result (ok, dropped, deduped)
	ViewIncrementsTotal CounterVec = noopCounterVec{}

	// CounterReadFallbacksTotal counts reads that fell back to the durable value
	CounterReadFallbacksTotal Counter = NoopStat{}

	// CounterSeedsTotal counts baseline seeds by result (set, present, error)
	CounterSeedsTotal CounterVec = noopCounterVec{}

	// CounterOpDurationSeconds measures volatile counter latency by op
	CounterOpDurationSeconds HistogramVec = noopHistogramVec{}

	// TrackedCounters tracks counter keys pending reconciliation
	TrackedCounters Gauge = NoopStat{}
)

// Mutation Metrics
var (
	// MutationsTotal counts record mutations by kind (create, edit, publish, delete) and result (success, conflict, not_found, error)
	MutationsTotal CounterVec = noopCounterVec{}

	// MutationDurationSeconds measures end-to-end mutation latency including invalidation
	MutationDurationSeconds Histogram = NoopStat{}

	// SlugAttemptsTotal measures slug disambiguation probe counts
	SlugAttemptsTotal Counter = NoopStat{}

	// EventsPublishedTotal counts mutation events by sink and result
	EventsPublishedTotal CounterVec = noopCounterVec{}
)

// Reconciliation Metrics
var (
	// ReconcilePassesTotal counts reconciliation passes by result (success, partial)
	ReconcilePassesTotal CounterVec = noopCounterVec{}

	// ReconcileRatchetsTotal counts per-record ratchet updates by result (applied, noop, failed)
	ReconcileRatchetsTotal CounterVec = noopCounterVec{}

	// ReconcileDurationSeconds measures full pass duration
	ReconcileDurationSeconds Histogram = NoopStat{}
)

// HTTP Metrics
var (
	// HTTPRequestsTotal counts requests by route and status class
	HTTPRequestsTotal CounterVec = noopCounterVec{}

	// HTTPRequestDurationSeconds measures request latency by route
	HTTPRequestDurationSeconds HistogramVec = noopHistogramVec{}
)

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	// Cache Metrics
	CacheRequestsTotal = NewCounterVec(
		"cache_requests_total",
		"Cache lookups by kind and result",
		[]string{"kind", "result"},
	)
	CacheInvalidationsTotal = NewCounterVec(
		"cache_invalidations_total",
		"Cache invalidations by scope",
		[]string{"scope"},
	)
	CacheOpDurationSeconds = NewHistogramVec(
		"cache_op_duration_seconds",
		"Cache operation duration in seconds",
		[]string{"op"},
		VolatileBuckets,
	)
	CacheCompressedTotal = NewCounter(
		"cache_compressed_total",
		"Cached payloads stored compressed",
	)
	CacheEntries = NewGauge(
		"cache_entries",
		"Entries held by the in-memory cache backend",
	)

	// Counter Metrics
	ViewIncrementsTotal = NewCounterVec(
		"view_increments_total",
		"View counter bumps by result",
		[]string{"result"},
	)
	CounterReadFallbacksTotal = NewCounter(
		"counter_read_fallbacks_total",
		"Counter reads that fell back to the durable value",
	)
	CounterSeedsTotal = NewCounterVec(
		"counter_seeds_total",
		"Counter baseline seeds by result",
		[]string{"result"},
	)
	CounterOpDurationSeconds = NewHistogramVec(
		"counter_op_duration_seconds",
		"Volatile counter operation duration in seconds",
		[]string{"op"},
		VolatileBuckets,
	)
	TrackedCounters = NewGauge(
		"tracked_counters",
		"Counter keys pending reconciliation",
	)

	// Mutation Metrics
	MutationsTotal = NewCounterVec(
		"mutations_total",
		"Record mutations by kind and result",
		[]string{"kind", "result"},
	)
	MutationDurationSeconds = NewHistogramWithBuckets(
		"mutation_duration_seconds",
		"Mutation duration including invalidation in seconds",
		DurableBuckets,
	)
	SlugAttemptsTotal = NewCounter(
		"slug_attempts_total",
		"Slug disambiguation probes",
	)
	EventsPublishedTotal = NewCounterVec(
		"events_published_total",
		"Mutation events published by sink and result",
		[]string{"sink", "result"},
	)

	// Reconciliation Metrics
	ReconcilePassesTotal = NewCounterVec(
		"reconcile_passes_total",
		"Reconciliation passes by result",
		[]string{"result"},
	)
	ReconcileRatchetsTotal = NewCounterVec(
		"reconcile_ratchets_total",
		"Per-record ratchet updates by result",
		[]string{"result"},
	)
	ReconcileDurationSeconds = NewHistogramWithBuckets(
		"reconcile_duration_seconds",
		"Full reconciliation pass duration in seconds",
		ReconcileBuckets,
	)

	// HTTP Metrics
	HTTPRequestsTotal = NewCounterVec(
		"http_requests_total",
		"HTTP requests by route and status class",
		[]string{"route", "status"},
	)
	HTTPRequestDurationSeconds = NewHistogramVec(
		"http_request_duration_seconds",
		"HTTP request duration in seconds",
		[]string{"route"},
		HTTPBuckets,
	)
}
