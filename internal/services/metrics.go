package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the reminder engine.
// Callers may hold a nil *Metrics (tests, disabled metrics); the increment
// helpers are nil-safe.
type Metrics struct {
	RemindersDispatched prometheus.Counter
	DuplicateDispatches prometheus.Counter
	SendFailures        *prometheus.CounterVec
	InboundMessages     *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		RemindersDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtracker_reminders_dispatched_total",
			Help: "Total number of reminder log entries created by the dispatcher",
		}),
		DuplicateDispatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medtracker_reminders_duplicate_total",
			Help: "Total number of dispatches skipped because an entry already existed for the slot and day",
		}),
		SendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtracker_notification_send_failures_total",
			Help: "Total number of failed notification sends by channel",
		}, []string{"channel"}),
		InboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medtracker_inbound_messages_total",
			Help: "Total number of inbound messages by match outcome",
		}, []string{"result"}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return globalMetrics
}

func (m *Metrics) IncDispatched() {
	if m != nil {
		m.RemindersDispatched.Inc()
	}
}

func (m *Metrics) IncDuplicate() {
	if m != nil {
		m.DuplicateDispatches.Inc()
	}
}

func (m *Metrics) IncSendFailure(channel string) {
	if m != nil {
		m.SendFailures.WithLabelValues(channel).Inc()
	}
}

func (m *Metrics) IncInbound(result string) {
	if m != nil {
		m.InboundMessages.WithLabelValues(result).Inc()
	}
}
