package ask

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digibook_ask_requests_total",
			Help: "Answer requests by outcome.",
		},
		[]string{"outcome"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digibook_ask_events_total",
			Help: "Decoded stream envelopes by type.",
		},
		[]string{"type"},
	)

	droppedLines = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "digibook_ask_dropped_lines_total",
			Help: "Data lines dropped because the payload was not valid JSON.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(eventsTotal)
	prometheus.MustRegister(droppedLines)
}
