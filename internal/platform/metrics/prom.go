package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat request outcomes, one per response class of POST /chat.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
)

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chat_relay_build_info",
			Help: "Build information",
		},
		[]string{"version"},
	)

	chatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_requests_total",
			Help: "Chat relay requests by outcome",
		},
		[]string{"outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_relay_upstream_duration_seconds",
			Help:    "Latency of Gemini generate calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"model", "outcome"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(buildInfo, chatRequests, upstreamDuration)
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version string) {
	buildInfo.WithLabelValues(version).Set(1)
}

// RecordChatRequest increments the chat request counter for outcome.
func RecordChatRequest(outcome string) {
	chatRequests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records the duration of one upstream generate call. outcome
// uses the same values as RecordChatRequest (success, upstream_error, error).
func ObserveUpstream(model, outcome string, d time.Duration) {
	upstreamDuration.WithLabelValues(model, outcome).Observe(d.Seconds())
}
