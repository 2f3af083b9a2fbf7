package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// createTestMetrics creates metrics with a custom registry for testing.
// This avoids conflicts with the default registry.
func createTestMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "test"
	}

	reg := prometheus.NewRegistry()

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		GatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total number of gateway operations",
			},
			[]string{"gateway", "operation", "status"},
		),
		GatewayRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Gateway operation duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"gateway", "operation"},
		),
		GatewayDeclinesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "declines_total",
				Help:      "Total number of declined gateway operations",
			},
			[]string{"gateway", "error_code"},
		),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "events_total",
				Help:      "Total number of auth events",
			},
			[]string{"event"},
		),
		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		DBConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "connections_open",
				Help:      "Number of open database connections",
			},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
		),
	}

	// Register with test registry
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.GatewayRequestsTotal,
		m.GatewayRequestDuration,
		m.GatewayDeclinesTotal,
		m.AuthEventsTotal,
		m.DBQueryDuration,
		m.DBConnectionsOpen,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

func TestNew(t *testing.T) {
	t.Run("creates with default namespace", func(t *testing.T) {
		// Note: This test may fail if run multiple times in the same process
		// due to prometheus global registry. In practice, use createTestMetrics.
		m := New("test_new")
		assert.NotNil(t, m)
		assert.NotNil(t, m.HTTPRequestsTotal)
		assert.NotNil(t, m.HTTPRequestDuration)
		assert.NotNil(t, m.HTTPRequestsInFlight)
		assert.NotNil(t, m.GatewayRequestsTotal)
		assert.NotNil(t, m.GatewayRequestDuration)
		assert.NotNil(t, m.GatewayDeclinesTotal)
		assert.NotNil(t, m.AuthEventsTotal)
		assert.NotNil(t, m.DBQueryDuration)
		assert.NotNil(t, m.DBConnectionsOpen)
		assert.NotNil(t, m.CacheHitsTotal)
		assert.NotNil(t, m.CacheMissesTotal)
	})
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	m := createTestMetrics("http_test")

	t.Run("records request with 2xx status", func(t *testing.T) {
		m.RecordHTTPRequest("GET", "/api/v1/gateways", 200, 100*time.Millisecond)

		count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/gateways", "2xx"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("records request with 4xx status", func(t *testing.T) {
		m.RecordHTTPRequest("POST", "/api/v1/gateways/stripe/purchase", 402, 50*time.Millisecond)

		count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/gateways/stripe/purchase", "4xx"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("records request with 5xx status", func(t *testing.T) {
		m.RecordHTTPRequest("PUT", "/api/v1/data", 500, 200*time.Millisecond)

		count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("PUT", "/api/v1/data", "5xx"))
		assert.Equal(t, float64(1), count)
	})
}

func TestMetrics_RecordGatewayRequest(t *testing.T) {
	m := createTestMetrics("gateway_test")

	t.Run("records approved operation", func(t *testing.T) {
		m.RecordGatewayRequest("stripe", "purchase", "approved", 500*time.Millisecond)

		count := testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues("stripe", "purchase", "approved"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("records declined operation", func(t *testing.T) {
		m.RecordGatewayRequest("bogus", "authorize", "declined", 10*time.Millisecond)

		count := testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues("bogus", "authorize", "declined"))
		assert.Equal(t, float64(1), count)
	})
}

func TestMetrics_RecordGatewayDecline(t *testing.T) {
	m := createTestMetrics("decline_test")

	t.Run("records decline by error code", func(t *testing.T) {
		m.RecordGatewayDecline("stripe", "insufficient_funds")

		count := testutil.ToFloat64(m.GatewayDeclinesTotal.WithLabelValues("stripe", "insufficient_funds"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("empty code becomes unclassified", func(t *testing.T) {
		m.RecordGatewayDecline("stripe", "")

		count := testutil.ToFloat64(m.GatewayDeclinesTotal.WithLabelValues("stripe", "unclassified"))
		assert.Equal(t, float64(1), count)
	})
}

func TestMetrics_RecordAuthEvent(t *testing.T) {
	m := createTestMetrics("auth_test")

	t.Run("records accepted key", func(t *testing.T) {
		m.RecordAuthEvent("accepted")

		count := testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("accepted"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("records rejected key", func(t *testing.T) {
		m.RecordAuthEvent("rejected")

		count := testutil.ToFloat64(m.AuthEventsTotal.WithLabelValues("rejected"))
		assert.Equal(t, float64(1), count)
	})
}

func TestMetrics_RecordDBQuery(t *testing.T) {
	m := createTestMetrics("db_test")

	t.Run("records select query", func(t *testing.T) {
		m.RecordDBQuery("select", 10*time.Millisecond)

		// Histogram observations are harder to test, just verify no panic
	})

	t.Run("records insert query", func(t *testing.T) {
		m.RecordDBQuery("insert", 5*time.Millisecond)
	})
}

func TestMetrics_RecordCache(t *testing.T) {
	m := createTestMetrics("cache_test")

	t.Run("records cache hit", func(t *testing.T) {
		m.RecordCacheHit("idempotency")

		count := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("idempotency"))
		assert.Equal(t, float64(1), count)
	})

	t.Run("records cache miss", func(t *testing.T) {
		m.RecordCacheMiss("idempotency")

		count := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("idempotency"))
		assert.Equal(t, float64(1), count)
	})
}

func TestStatusCodeToString(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{299, "2xx"},
		{300, "3xx"},
		{301, "3xx"},
		{399, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{499, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
		{599, "5xx"},
		{100, "unknown"},
		{0, "unknown"},
	}

	for _, tt := range tests {
		t.Run(string(rune(tt.code)), func(t *testing.T) {
			result := statusCodeToString(tt.code)
			assert.Equal(t, tt.expected, result)
		})
	}
}
