package nested

import (
	"context"
	"errors"
	"fmt"
)

// OutOfBoundsAllError reports a point that no source in a set covers.
type OutOfBoundsAllError struct {
	Point   Point
	Sources int
}

func (e *OutOfBoundsAllError) Error() string {
	return fmt.Sprintf("%s (%d sources tried) at %s", ErrOutOfBoundsAll, e.Sources, e.Point)
}

// Is matches ErrOutOfBoundsAll only, so a caller can tell an exhausted set
// apart from a single source miss.
func (e *OutOfBoundsAllError) Is(target error) bool {
	return target == ErrOutOfBoundsAll
}

// Result is a resolved value and the 0-based position of the source that produced it.
type Result[T any] struct {
	Value T
	Index int
}

// Position returns the 1-based position of the answering source.
func (r Result[T]) Position() int {
	return r.Index + 1
}

// Set is an ordered, immutable list of sources. The first source is tried first.
type Set[T any] struct {
	sources []Source[T]
}

// New builds a Set from sources in priority order.
func New[T any](sources ...Source[T]) (*Set[T], error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	for i, s := range sources {
		if s == nil {
			return nil, fmt.Errorf("nested set: source at position %d is nil", i)
		}
	}

	return &Set[T]{sources: append([]Source[T](nil), sources...)}, nil
}

// Len returns the number of sources in the set.
func (s *Set[T]) Len() int {
	return len(s.sources)
}

// Source returns the source at position i.
func (s *Set[T]) Source(i int) Source[T] {
	return s.sources[i]
}

// Resolve samples p against each source in order and returns the first value.
//
// A point with a non-finite coordinate fails with ErrInvalidPoint. A source
// error that does not match ErrOutOfBounds is returned unchanged and later
// sources are not consulted. If every source is out of bounds the error is an
// *OutOfBoundsAllError.
func (s *Set[T]) Resolve(ctx context.Context, p Point) (Result[T], error) {
	if err := p.Validate(); err != nil {
		return Result[T]{}, err
	}
	for i, src := range s.sources {
		v, err := src.Sample(ctx, p)
		if err == nil {
			return Result[T]{Value: v, Index: i}, nil
		}
		if !errors.Is(err, ErrOutOfBounds) {
			return Result[T]{}, err
		}
	}

	return Result[T]{}, &OutOfBoundsAllError{Point: p, Sources: len(s.sources)}
}
