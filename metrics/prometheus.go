package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// size of the body for REST APIs (vault files dominate)
	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API request size distributions",
			Buckets: []float64{1, 10, 50, 200, 500, 1000, 2000, 5000},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Number of registration challenges issued
	ChallengesIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webauthn_challenges_issued_total",
		Help: "The total number of issued registration challenges",
	})

	// Number of registration challenges consumed successfully
	ChallengesConsumedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webauthn_challenges_consumed_total",
		Help: "The total number of consumed registration challenges",
	})

	// Number of rejected consume attempts by reason (not_found, expired, consumed)
	ChallengesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webauthn_challenges_rejected_total",
		Help: "The total number of rejected registration challenge consumptions",
	}, []string{"reason"})

	// Number of failed passphrase logins
	LoginFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "passphrase_login_failures_total",
		Help: "The total number of failed passphrase logins",
	})

	// Number of vault files saved
	VaultFilesSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vault_files_saved_total",
		Help: "The total number of saved vault files",
	})
)

func InitMetrics() {
	if atomic.CompareAndSwapUint32(&isMetricsInitVar, 0, 1) {
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(ChallengesIssuedTotal)
		prometheus.MustRegister(ChallengesConsumedTotal)
		prometheus.MustRegister(ChallengesRejectedTotal)
		prometheus.MustRegister(LoginFailuresTotal)
		prometheus.MustRegister(VaultFilesSavedTotal)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Increment the counter for the given endpoint:
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		r := c.Request

		// Start timing responseTime histogram
		start := time.Now()

		// Set activeConnections gauge
		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// observe request size in kilobtyes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(r.ContentLength) / 1024)
		}

		// Set responseTime histogram
		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(latency.Milliseconds()))
	}
}
