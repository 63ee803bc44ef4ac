package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "shiftwise_auth_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shiftwise_auth_active_connections",
			Help: "Number of active connections",
		},
	)

	// OTPDispatches tracks outbound OTP dispatch attempts
	OTPDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwise_auth_otp_dispatches_total",
			Help: "Number of OTP dispatch attempts",
		},
		[]string{"flow", "status"},
	)

	// VerificationChecks tracks code verification outcomes
	VerificationChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwise_auth_verification_checks_total",
			Help: "Number of verification code checks",
		},
		[]string{"flow", "result"},
	)

	// LoginAttempts tracks login outcomes
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwise_auth_login_attempts_total",
			Help: "Number of login attempts",
		},
		[]string{"status"},
	)

	// CacheHits tracks cache hits/misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shiftwise_auth_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"operation"},
	)
)
