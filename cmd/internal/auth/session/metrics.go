package session

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the Prometheus collectors for the session lifecycle.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	validations   *prometheus.CounterVec
	refreshes     *prometheus.CounterVec
	deactivations *prometheus.CounterVec
	created       *prometheus.CounterVec
	swept         prometheus.Counter
}

// NewMetrics creates and registers the session collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wise",
			Subsystem: "session",
			Name:      "validations_total",
			Help:      "Session validations by result.",
		}, []string{"result"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wise",
			Subsystem: "session",
			Name:      "refreshes_total",
			Help:      "Session expiry extensions by trigger (sliding, explicit).",
		}, []string{"trigger"}),
		deactivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wise",
			Subsystem: "session",
			Name:      "deactivations_total",
			Help:      "Single-session deactivations by reason.",
		}, []string{"reason"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wise",
			Subsystem: "session",
			Name:      "created_total",
			Help:      "Sessions created, by remember-me flag.",
		}, []string{"remember_me"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wise",
			Subsystem: "session",
			Name:      "cleanup_deactivated_total",
			Help:      "Sessions deactivated by bulk expiry sweeps.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.validations, m.refreshes, m.deactivations, m.created, m.swept)
	}
	return m
}

func (m *Metrics) validation(result string) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(result).Inc()
}

func (m *Metrics) refresh(trigger string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(trigger).Inc()
}

func (m *Metrics) deactivation(r Reason) {
	if m == nil {
		return
	}
	m.deactivations.WithLabelValues(string(r)).Inc()
}

func (m *Metrics) creation(rememberMe bool) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(strconv.FormatBool(rememberMe)).Inc()
}

func (m *Metrics) sweep(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}
