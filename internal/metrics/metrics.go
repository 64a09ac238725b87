// Package metrics exposes Prometheus collectors for the device authorization flow
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthorizationsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "device_client_authorizations_started_total",
		Help: "Total number of device authorizations started",
	})
	AuthorizationRequestFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "device_client_authorization_request_failures_total",
		Help: "Total number of device authorization requests rejected by the provider",
	})
	// Outcome of each individual poll against the token endpoint
	PollAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_client_poll_attempts_total",
		Help: "Total number of device token poll attempts grouped by outcome",
	}, []string{"outcome"})
	// Terminal state reached by each poller
	AuthorizationOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_client_authorization_outcomes_total",
		Help: "Total number of finished device authorizations grouped by outcome",
	}, []string{"outcome"})
	ActivePollers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "device_client_active_pollers",
		Help: "Number of sessions currently polling the token endpoint",
	})
	TokenRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_client_token_refreshes_total",
		Help: "Total number of refresh token exchanges grouped by result",
	}, []string{"result"})
	ProfileCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "device_client_profile_calls_total",
		Help: "Total number of profile endpoint calls grouped by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(AuthorizationsStarted)
	prometheus.MustRegister(AuthorizationRequestFailures)
	prometheus.MustRegister(PollAttempts)
	prometheus.MustRegister(AuthorizationOutcomes)
	prometheus.MustRegister(ActivePollers)
	prometheus.MustRegister(TokenRefreshes)
	prometheus.MustRegister(ProfileCalls)
}

// Handler returns an http.Handler exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
