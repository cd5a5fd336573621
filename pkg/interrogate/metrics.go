package interrogate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConversationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gonzo",
		Name:      "conversations_started_total",
		Help:      "Number of conversations dispatched against the target assistant.",
	})
	metricConversationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gonzo",
		Name:      "conversations_finished_total",
		Help:      "Conversations by terminal status.",
	}, []string{"status"})
	metricExchanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gonzo",
		Name:      "exchanges_total",
		Help:      "Question/response exchanges by outcome status.",
	}, []string{"status"})
	metricExchangeRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gonzo",
		Name:      "exchange_retries_total",
		Help:      "Exchange retry attempts by cause (input or timeout).",
	}, []string{"reason"})
)

func recordConversationStarted() {
	metricConversationsStarted.Inc()
}

func recordConversationOutcome(status TerminalStatus) {
	metricConversationOutcomes.WithLabelValues(string(status)).Inc()
}

func recordExchange(status ExchangeStatus) {
	metricExchanges.WithLabelValues(string(status)).Inc()
}

func recordExchangeRetry(reason string) {
	metricExchangeRetries.WithLabelValues(reason).Inc()
}
