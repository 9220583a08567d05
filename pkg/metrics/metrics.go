// Package metrics holds the Prometheus collectors for the API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentivibe_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentivibe_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentivibe_llm_calls_total",
			Help: "LLM calls, by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)

	YouTubeCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentivibe_youtube_api_calls_total",
			Help: "YouTube Data API calls, by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	Analyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentivibe_analyses_total",
			Help: "Analysis requests, by result (cached, refreshed, rejected).",
		},
		[]string{"result"},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentivibe_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sentivibe_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)
)

// Register adds every collector to reg. DB pool gauges are added when conn
// is non-nil. Call once at startup.
func Register(reg prometheus.Registerer, conn *sqlx.DB) {
	reg.MustRegister(
		RequestDuration,
		RequestsInFlight,
		LLMCalls,
		YouTubeCalls,
		Analyses,
		CacheHits,
		CacheMisses,
	)

	if conn != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "sentivibe_db_connection_pool_in_use",
					Help: "Number of database connections in use.",
				},
				func() float64 { return float64(conn.Stats().InUse) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "sentivibe_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(conn.Stats().Idle) },
			),
		)
	}
}

// Outcome turns an error into the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Middleware records request duration and in-flight count. The matched route
// template is used as the label so IDs do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		RequestsInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		RequestDuration.WithLabelValues(route, c.Request.Method, status).Observe(time.Since(start).Seconds())
		RequestsInFlight.Dec()
	}
}

// Handler serves the Prometheus exposition endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
