package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Command metrics
	CommandsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "protocol",
			Name:      "commands_sent_total",
			Help:      "Total number of protocol commands sent",
		},
		[]string{"method"},
	)

	CommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "protocol",
			Name:      "command_errors_total",
			Help:      "Total number of protocol-reported command failures",
		},
		[]string{"method", "code"},
	)

	PendingCommands = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bidriver",
			Subsystem: "protocol",
			Name:      "pending_commands",
			Help:      "Number of commands awaiting a correlated response",
		},
	)

	// Event metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "protocol",
			Name:      "events_received_total",
			Help:      "Total number of unsolicited events received",
		},
		[]string{"method"},
	)

	EventsUnhandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "protocol",
			Name:      "events_unhandled_total",
			Help:      "Events received with no registered dispatcher",
		},
		[]string{"method"},
	)
)
