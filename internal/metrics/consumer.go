package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Change-event consumer collectors, labelled by stream (paper, note, scholar).
var (
	// ConsumerMessagesTotal counts deliveries by outcome: ack, requeue or reject.
	ConsumerMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Change events handled, by stream and outcome",
	}, []string{"stream", "outcome"})

	ConsumerHandleDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "handle_duration_seconds",
		Help:      "Time spent handling one change event",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 8),
	}, []string{"stream"})

	// ConsumerState is 0 disconnected, 1 connecting, 2 consuming.
	ConsumerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "state",
		Help:      "Stream supervisor state (0 disconnected, 1 connecting, 2 consuming)",
	}, []string{"stream"})

	ConsumerReconnectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "reconnects_total",
		Help:      "Broker sessions lost and retried",
	}, []string{"stream"})
)

var registerConsumer sync.Once

// RegisterConsumerMetrics registers the consumer collectors with the default registry.
func RegisterConsumerMetrics() {
	registerConsumer.Do(func() {
		prometheus.MustRegister(
			ConsumerMessagesTotal,
			ConsumerHandleDuration,
			ConsumerState,
			ConsumerReconnectsTotal,
		)
	})
}
