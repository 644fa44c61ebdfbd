package obs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"equiprent/internal/app/actor"
	"equiprent/internal/app/validation"
	domainquotation "equiprent/internal/domain/quotation"
)

// Metrics records quotation outcomes and dispatch latency.
type Metrics struct {
	validationFailures prometheus.Counter
	transitions        *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	dispatchErrors     *prometheus.CounterVec
}

func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		validationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "equiprent_quotation_validation_failures_total",
			Help: "Quotations rejected because a line has an invalid rental window.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equiprent_quotation_transitions_total",
			Help: "Quotation status transitions by target status.",
		}, []string{"to"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "equiprent_dispatch_duration_seconds",
			Help:    "Command and query handling latency.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"kind", "key"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "equiprent_dispatch_errors_total",
			Help: "Failed commands and queries by low-cardinality reason.",
		}, []string{"kind", "key", "reason"}),
	}
	registerer.MustRegister(m.validationFailures, m.transitions, m.dispatchDuration, m.dispatchErrors)
	return m
}

func (m *Metrics) ValidationFailed() {
	m.validationFailures.Inc()
}

func (m *Metrics) Transitioned(_, to domainquotation.Status) {
	m.transitions.WithLabelValues(string(to)).Inc()
}

func (m *Metrics) Observe(kind, key string, elapsed time.Duration, err error) {
	m.dispatchDuration.WithLabelValues(kind, key).Observe(elapsed.Seconds())
	if err != nil {
		m.dispatchErrors.WithLabelValues(kind, key, errorReason(err)).Inc()
	}
}

func errorReason(err error) string {
	var verr *domainquotation.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, validation.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, actor.ErrUnauthenticated), errors.Is(err, actor.ErrForbidden):
		return "denied"
	case errors.Is(err, domainquotation.ErrNotFound):
		return "not_found"
	case errors.Is(err, domainquotation.ErrInvalidTransition):
		return "conflict"
	default:
		return "internal"
	}
}
