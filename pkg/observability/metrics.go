// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "recipeu",
		Name:      "stage_duration_seconds",
		Help:      "Wall time per pipeline stage.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"stage"})

	stageTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipeu",
		Name:      "stage_tokens_total",
		Help:      "Tokens consumed per pipeline stage.",
	}, []string{"stage", "kind"})

	framesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipeu",
		Name:      "frames_total",
		Help:      "Outbound websocket frames by type.",
	}, []string{"type"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "recipeu",
		Name:      "requests_total",
		Help:      "Handled user messages by outcome.",
	}, []string{"outcome"})
)

// ObserveStage records one stage's wall time and token consumption.
func ObserveStage(stage string, elapsed time.Duration, promptTokens, completionTokens int) {
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if promptTokens > 0 {
		stageTokens.WithLabelValues(stage, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		stageTokens.WithLabelValues(stage, "completion").Add(float64(completionTokens))
	}
}

// CountFrame increments the outbound frame counter.
func CountFrame(frameType string) {
	framesTotal.WithLabelValues(frameType).Inc()
}

// CountRequest increments the per-outcome request counter.
// Outcomes: ok, timeout, error, blocked, redirected.
func CountRequest(outcome string) {
	requestsTotal.WithLabelValues(outcome).Inc()
}
