// Package metrics exposes Prometheus collectors for bridge activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	buffersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "buffers_submitted_total",
		Help:      "Buffers handed to the accelerator, by queue.",
	}, []string{"queue"})

	buffersCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "buffers_completed_total",
		Help:      "Buffers returned to clients as done, by queue.",
	}, []string{"queue"})

	bufferErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "buffer_errors_total",
		Help:      "Buffers returned to clients in the error state, by queue.",
	}, []string{"queue"})

	formatChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "format_changes_total",
		Help:      "Mid-stream format change events applied.",
	})

	drainTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "drain_timeouts_total",
		Help:      "Port drains that exceeded the configured timeout.",
	})

	eosEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "codecbridge",
		Name:      "eos_events_total",
		Help:      "End-of-stream markers delivered on output queues.",
	})

	activeSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "codecbridge",
		Name:      "active_sessions",
		Help:      "Open codec sessions, by role.",
	}, []string{"role"})
)

// BufferSubmitted records a buffer handed to the accelerator.
func BufferSubmitted(queue string) { buffersSubmitted.WithLabelValues(queue).Inc() }

// BufferCompleted records a buffer returned to the client as done.
func BufferCompleted(queue string) { buffersCompleted.WithLabelValues(queue).Inc() }

// BufferError records a buffer returned to the client in error.
func BufferError(queue string) { bufferErrors.WithLabelValues(queue).Inc() }

// FormatChange records an applied format-changed event.
func FormatChange() { formatChanges.Inc() }

// DrainTimeout records a drain that hit the timeout.
func DrainTimeout() { drainTimeouts.Inc() }

// EOSEvent records an end-of-stream delivery.
func EOSEvent() { eosEvents.Inc() }

// SessionOpened adjusts the active session gauge up.
func SessionOpened(role string) { activeSessions.WithLabelValues(role).Inc() }

// SessionClosed adjusts the active session gauge down.
func SessionClosed(role string) { activeSessions.WithLabelValues(role).Dec() }

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
