// Package metrics exposes Prometheus collectors for the remote channel.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gastownhall/presenter-remote/internal/remote"
	"github.com/gastownhall/presenter-remote/internal/wire"
)

const namespace = "presenter_remote"

// Error kinds used as the "kind" label on decode failures.
const (
	KindTruncated       = "truncated"
	KindInvalidEncoding = "invalid_encoding"
	KindUnknownTag      = "unknown_tag"
	KindIO              = "io"
)

// Notification outcomes used as the "outcome" label.
const (
	OutcomeScheduled  = "scheduled"
	OutcomeCancelled  = "cancelled"
	OutcomeDelivered  = "delivered"
	OutcomeSuppressed = "suppressed"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	messagesIn    *prometheus.CounterVec
	messagesOut   *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	dropped       prometheus.Counter
	controllers   prometheus.Gauge
	notifications *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		messagesIn: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Messages decoded from controllers, by tag.",
		}, []string{"tag"}),
		messagesOut: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Messages written to controllers, by tag.",
		}, []string{"tag"}),
		decodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Streams dropped after a decode failure, by error kind.",
		}, []string{"kind"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound messages dropped for slow controllers.",
		}),
		controllers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "controllers_connected",
			Help:      "Controllers currently connected.",
		}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Operator notifications, by outcome.",
		}, []string{"outcome"}),
	}
}

// ErrorKind classifies a decode error for the "kind" label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, remote.ErrUnknownTag):
		return KindUnknownTag
	case errors.Is(err, wire.ErrTruncatedInput):
		return KindTruncated
	case errors.Is(err, wire.ErrInvalidEncoding):
		return KindInvalidEncoding
	}
	return KindIO
}

// Received counts a decoded message.
func (m *Metrics) Received(tag remote.Tag) {
	if m == nil {
		return
	}
	m.messagesIn.WithLabelValues(string(tag)).Inc()
}

// Sent counts a written message.
func (m *Metrics) Sent(tag remote.Tag) {
	if m == nil {
		return
	}
	m.messagesOut.WithLabelValues(string(tag)).Inc()
}

// DecodeFailed counts a decode failure.
func (m *Metrics) DecodeFailed(err error) {
	if m == nil {
		return
	}
	m.decodeErrors.WithLabelValues(ErrorKind(err)).Inc()
}

// Dropped counts an outbound message dropped for a slow controller.
func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// SetControllers records the number of connected controllers.
func (m *Metrics) SetControllers(n int) {
	if m == nil {
		return
	}
	m.controllers.Set(float64(n))
}

// Notification counts a notification outcome.
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcome).Inc()
}
