// Package metrics exposes prometheus counters for error normalization,
// row limiting and connection validation. A nil *Collector records nothing,
// so callers never need to check whether metrics are enabled.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
)

const namespace = "ekaya_dialects"

// Validation outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalid         = "invalid"
	OutcomeConnectFailed   = "connect_failed"
	OutcomeUnknownEngine   = "unknown_engine"
	OutcomeNotConfigurable = "not_configurable"
)

// Collector holds the registered vectors.
type Collector struct {
	errorsNormalized   *prometheus.CounterVec
	limitApplied       *prometheus.CounterVec
	validations        *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg returns a nil Collector.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		return nil, nil
	}

	c := &Collector{
		errorsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_normalized_total",
			Help:      "Driver errors normalized into structured engine errors.",
		}, []string{"engine", "kind"}),
		limitApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "limit_applied_total",
			Help:      "Row limit decisions per engine.",
		}, []string{"engine", "action"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_validations_total",
			Help:      "Connection parameter validations by outcome.",
		}, []string{"engine", "outcome"}),
		validationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_validation_duration_seconds",
			Help:      "Time spent validating connection parameters, including the ping.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"engine"}),
	}

	for _, col := range []prometheus.Collector{c.errorsNormalized, c.limitApplied, c.validations, c.validationDuration} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return c, nil
}

// ErrorsNormalized counts one sample per extracted error.
func (c *Collector) ErrorsNormalized(engine string, errs []dberrors.EngineError) {
	if c == nil {
		return
	}
	for _, e := range errs {
		c.errorsNormalized.WithLabelValues(engine, string(e.Kind)).Inc()
	}
}

// LimitApplied records how a row limit was enforced.
func (c *Collector) LimitApplied(engine, action string) {
	if c == nil {
		return
	}
	c.limitApplied.WithLabelValues(engine, action).Inc()
}

// Validation records a finished validation and its duration.
func (c *Collector) Validation(engine, outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.validations.WithLabelValues(engine, outcome).Inc()
	c.validationDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}
