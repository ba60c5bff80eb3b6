package inspector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "inspector",
			Name:      "events_delivered_total",
			Help:      "Events delivered to consumer callbacks",
		},
		[]string{"category"},
	)

	EventsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "inspector",
			Name:      "events_filtered_total",
			Help:      "Events suppressed by a registration's filter",
		},
		[]string{"category"},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "inspector",
			Name:      "decode_failures_total",
			Help:      "Event payloads that failed deserialization",
		},
		[]string{"category"},
	)

	CallbackPanics = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bidriver",
			Subsystem: "inspector",
			Name:      "callback_panics_total",
			Help:      "Panics recovered from consumer callbacks",
		},
		[]string{"category"},
	)

	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "bidriver",
			Subsystem: "inspector",
			Name:      "active_subscriptions",
			Help:      "Wire subscriptions currently held by inspectors",
		},
	)
)
