package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/telemetry"
)

const defaultParticleWorkers = 8

type ErrUnknownVariable struct {
	Variable string
}

func (e *ErrUnknownVariable) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Variable)
}

// ErrVariableOutOfBounds reports a point outside every source of a variable's set.
type ErrVariableOutOfBounds struct {
	Variable string
	Point    nested.Point
	Err      error
}

func (e *ErrVariableOutOfBounds) Error() string {
	return fmt.Sprintf("variable %q: %v", e.Variable, e.Err)
}

func (e *ErrVariableOutOfBounds) Unwrap() error {
	return e.Err
}

type VariableResult struct {
	Name        string
	Value       float64 // speed for vector sets
	Vector      *nested.Vector
	Unit        string
	Source      string
	SourceIndex int // 0-based position in the set
	SetSize     int
}

// ParticleState is the sampling outcome of one particle.
type ParticleState string

const (
	StateSampled     ParticleState = "sampled"
	StateOutOfBounds ParticleState = "out_of_bounds"
)

type Particle struct {
	ID    string
	Point nested.Point
}

type ParticleSample struct {
	Particle Particle
	State    ParticleState
	Values   []VariableResult
}

type Service struct {
	registry  *Registry
	collector telemetry.Collector
	workers   int
}

func NewService(registry *Registry, collector telemetry.Collector) *Service {
	if collector == nil {
		collector = telemetry.Noop()
	}
	return &Service{registry: registry, collector: collector, workers: defaultParticleWorkers}
}

// Sets returns the definitions of all served sets.
func (s *Service) Sets() []SetDefinition {
	return s.registry.Definitions()
}

func (s *Service) GetVariables(
	ctx context.Context,
	p nested.Point,
	vars []string,
) ([]VariableResult, error) {
	if err := s.checkVariables(vars); err != nil {
		return nil, err
	}

	results := make([]VariableResult, len(vars))
	g, ctx := errgroup.WithContext(ctx)

	for i, variable := range vars {
		g.Go(func() error {
			result, err := s.getVariable(ctx, variable, p)
			if err != nil {
				return err
			}
			results[i] = *result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// SampleParticles samples vars for every particle. A particle outside every
// source of any variable is flagged StateOutOfBounds and carries no values;
// any other error aborts the batch.
func (s *Service) SampleParticles(
	ctx context.Context,
	particles []Particle,
	vars []string,
) ([]ParticleSample, error) {
	if err := s.checkVariables(vars); err != nil {
		return nil, err
	}

	samples := make([]ParticleSample, len(particles))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, particle := range particles {
		g.Go(func() error {
			sample := ParticleSample{Particle: particle, State: StateSampled, Values: make([]VariableResult, 0, len(vars))}
			for _, variable := range vars {
				result, err := s.getVariable(ctx, variable, particle.Point)
				if errors.Is(err, nested.ErrOutOfBoundsAll) {
					slog.DebugContext(ctx, "particle out of bounds", "particle_id", particle.ID, "variable", variable)
					sample = ParticleSample{Particle: particle, State: StateOutOfBounds}
					break
				}
				if err != nil {
					return fmt.Errorf("particle %q: %w", particle.ID, err)
				}
				sample.Values = append(sample.Values, *result)
			}
			samples[i] = sample

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return samples, nil
}

// checkVariables fails on the first unknown name before any sampling starts.
func (s *Service) checkVariables(vars []string) error {
	for _, variable := range vars {
		if _, ok := s.registry.lookup(variable); !ok {
			return &ErrUnknownVariable{Variable: variable}
		}
	}
	return nil
}

func (s *Service) getVariable(
	ctx context.Context,
	variable string,
	p nested.Point,
) (*VariableResult, error) {
	e, ok := s.registry.lookup(variable)
	if !ok {
		return nil, &ErrUnknownVariable{Variable: variable}
	}

	result := &VariableResult{Name: variable, Unit: e.def.Unit, SetSize: e.size()}
	var (
		index int
		err   error
	)
	if e.vector != nil {
		var res nested.Result[nested.Vector]
		res, err = e.vector.Resolve(ctx, p)
		index = res.Index
		if err == nil {
			result.Value = res.Value.Speed()
			result.Vector = &res.Value
		}
	} else {
		var res nested.Result[float64]
		res, err = e.scalar.Resolve(ctx, p)
		index = res.Index
		result.Value = res.Value
	}

	if errors.Is(err, nested.ErrOutOfBoundsAll) {
		s.collector.ObserveResolution(variable, 0, telemetry.OutcomeOutOfBoundsAll)
		return nil, &ErrVariableOutOfBounds{Variable: variable, Point: p, Err: err}
	}
	if err != nil {
		s.collector.ObserveResolution(variable, 0, telemetry.OutcomeError)
		return nil, fmt.Errorf("getting variable %q: %w", variable, err)
	}
	s.collector.ObserveResolution(variable, index+1, telemetry.OutcomeResolved)

	result.Source = e.def.Members[index].Name
	result.SourceIndex = index

	return result, nil
}
