package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// updatesRouted counts incoming updates by classified shape.
	updatesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_updates_total",
			Help: "Total Telegram updates received, by update shape.",
		},
		[]string{"kind"},
	)

	// forwardsTotal counts automation forward attempts by outcome
	// (accepted, failed, error).
	forwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "automation_forwards_total",
			Help: "Total prompts forwarded to the automation service, by outcome.",
		},
		[]string{"outcome"},
	)

	// transcriptionsTotal counts audio transcription attempts by outcome
	// (ok, empty, error).
	transcriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_transcriptions_total",
			Help: "Total audio transcription attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// callbacksTotal counts automation completion callbacks by outcome
	// (delivered, expired, error).
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runner_callbacks_total",
			Help: "Total automation completion callbacks, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(updatesRouted, forwardsTotal, transcriptionsTotal, callbacksTotal)
}

// ObserveCallback records the outcome of a completion callback. It is called
// from the HTTP layer, which owns callback handling.
func ObserveCallback(outcome string) {
	callbacksTotal.WithLabelValues(outcome).Inc()
}
