package telemetry

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels a single nested set resolution.
type Outcome string

const (
	OutcomeResolved       Outcome = "resolved"
	OutcomeOutOfBoundsAll Outcome = "out_of_bounds_all"
	OutcomeError          Outcome = "error"
)

// Collector records resolutions. Implementations are called inline on the
// sampling path and must be cheap and safe for concurrent use.
type Collector interface {
	ObserveResolution(set string, position int, outcome Outcome)
}

type noopCollector struct{}

// Noop returns a collector that discards all observations.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) ObserveResolution(string, int, Outcome) {}

// PrometheusCollector counts resolutions per set, answering source position and outcome.
type PrometheusCollector struct {
	resolutions *prometheus.CounterVec
}

// NewPrometheusCollector registers the resolution counter with reg, reusing an
// already registered counter of the same name.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "nested_resolutions_total",
		Help: "Number of nested set resolutions by set, answering source position and outcome.",
	}, []string{"set", "position", "outcome"})

	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}

	return &PrometheusCollector{resolutions: counter}, nil
}

// ObserveResolution increments the counter. position is 1-based; 0 means no source answered.
func (c *PrometheusCollector) ObserveResolution(set string, position int, outcome Outcome) {
	label := "none"
	if position > 0 {
		label = strconv.Itoa(position)
	}
	c.resolutions.WithLabelValues(set, label, string(outcome)).Inc()
}
