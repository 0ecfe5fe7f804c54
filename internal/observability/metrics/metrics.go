package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantapi_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantapi_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantapi_auth_failures_total",
		Help: "Count of authentication and authorization denials",
	}, []string{"reason"})

	mailDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantapi_mail_dispatches_total",
		Help: "Count of outbound mail attempts by result",
	}, []string{"kind", "result"})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantapi_rate_limited_total",
		Help: "Count of requests rejected by the per-tenant rate limit",
	}, []string{"tenant"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveAuthFailure counts a denied authentication or authorization
func ObserveAuthFailure(reason string) {
	authFailures.WithLabelValues(reason).Inc()
}

// ObserveMailDispatch counts an outbound mail attempt
func ObserveMailDispatch(kind, result string) {
	mailDispatches.WithLabelValues(kind, result).Inc()
}

// ObserveRateLimited counts a request rejected by the limiter
func ObserveRateLimited(tenant string) {
	rateLimited.WithLabelValues(tenant).Inc()
}
