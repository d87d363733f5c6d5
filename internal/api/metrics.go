package api

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "amee"

// Metrics counts requests sent by a Client. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	requests        *prometheus.CounterVec
	authentications *prometheus.CounterVec
	reauths         prometheus.Counter
}

// NewMetrics creates the client collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "HTTP requests sent, by verb and status code (0 for transport failures).",
		}, []string{"verb", "code"}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "client",
			Name:      "authentications_total",
			Help:      "Authentication round-trips, by result.",
		}, []string{"result"}),
		reauths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "client",
			Name:      "reauthentications_total",
			Help:      "Requests retried after the service rejected the session token.",
		}),
	}

	reg.MustRegister(m.requests, m.authentications, m.reauths)

	return m
}

func (m *Metrics) observeRequest(verb string, code int) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(verb, strconv.Itoa(code)).Inc()
}

func (m *Metrics) observeAuth(ok bool) {
	if m == nil {
		return
	}

	result := "success"
	if !ok {
		result = "failure"
	}

	m.authentications.WithLabelValues(result).Inc()
}

func (m *Metrics) observeReauth() {
	if m == nil {
		return
	}

	m.reauths.Inc()
}
