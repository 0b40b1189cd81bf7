package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of sessions currently registered in the chat",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total messages processed by type",
	}, []string{"type"})

	DeliveryFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_delivery_failures_total",
		Help: "Broadcast deliveries that failed at a recipient transport",
	})

	BroadcastDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chat_broadcast_seconds",
		Help:    "Time to fan one message out to a membership snapshot",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(DeliveryFailures)
	prometheus.MustRegister(BroadcastDuration)
}
