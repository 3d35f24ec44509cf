// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "whereami"

var (
	// LogFilesSelected counts log files chosen as the live file.
	LogFilesSelected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_files_selected_total",
		Help:      "Log files selected for tailing.",
	})

	// LinesRead counts complete lines read from log files.
	LinesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "log_lines_read_total",
		Help:      "Complete log lines read.",
	})

	// Events counts parsed events by type.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_total",
		Help:      "Events parsed from log lines.",
	}, []string{"type"})

	// APIRequests counts metadata API requests by outcome.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "Requests sent to the metadata API.",
	}, []string{"status"})

	// CacheLookups counts metadata cache lookups by result (hit, miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Metadata cache lookups.",
	}, []string{"result"})

	// StreamClients is the number of connected SSE and WebSocket clients.
	StreamClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Connected status stream clients.",
	}, []string{"transport"})
)
