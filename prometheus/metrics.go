package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Registration counters
	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "workspace_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Workspace operation counter
	WorkspaceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_operations_total",
			Help: "Total number of workspace operations",
		},
		[]string{"operation"}, // operation can be "create", "switch", "set_default", "delete", etc.
	)

	// Invitation operation counter
	InvitationOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_invitation_operations_total",
			Help: "Total number of invitation operations",
		},
		[]string{"operation"}, // operation can be "create", "accept", "revoke", "list"
	)

	// Verification operation counter
	VerificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_verification_operations_total",
			Help: "Total number of email verification operations",
		},
		[]string{"operation"}, // operation can be "verify", "resend", "rotate"
	)

	// Email delivery counter
	EmailCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_emails_total",
			Help: "Total number of outbound emails by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "db_error" etc.
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workspace_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workspace_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "workspace_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workspace_info",
			Help: "Information about the workspace service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(WorkspaceOperationCounter)
	prometheus.MustRegister(InvitationOperationCounter)
	prometheus.MustRegister(VerificationCounter)
	prometheus.MustRegister(EmailCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordWorkspaceOperation records a workspace operation
func RecordWorkspaceOperation(operation string) {
	WorkspaceOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordInvitationOperation records an invitation operation
func RecordInvitationOperation(operation string) {
	InvitationOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordVerificationOperation records an email verification operation
func RecordVerificationOperation(operation string) {
	VerificationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordEmail records an outbound email attempt
func RecordEmail(kind, outcome string) {
	EmailCounter.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
}
