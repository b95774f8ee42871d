// Package nested resolves query points against priority-ordered field sources.
//
// A Set holds sources ordered from the finest, most restricted domain to the
// coarsest, most global one. Resolve tries each source in turn and returns the
// first value; only an out-of-bounds miss moves on to the next source.
package nested

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrOutOfBounds classifies a single source miss: the point lies outside the
// domain that source covers. Sources wrap it; Resolve never returns it.
var ErrOutOfBounds = errors.New("point out of bounds")

// ErrOutOfBoundsAll is matched by the error Resolve returns when every source
// in the set reported ErrOutOfBounds.
var ErrOutOfBoundsAll = errors.New("point out of bounds of all sources")

// ErrNoSources is returned by New for an empty source list.
var ErrNoSources = errors.New("nested set requires at least one source")

// ErrInvalidPoint is returned for a point with a NaN or infinite coordinate.
// It is not a bounds miss: Resolve returns it before any source is sampled.
var ErrInvalidPoint = errors.New("invalid point")

// Point is a query location. Semantics of each coordinate belong to the source.
type Point struct {
	Time  time.Time
	Depth float64
	Lat   float64
	Lon   float64
}

func (p Point) String() string {
	return fmt.Sprintf("time: %v depth: %v lat: %v lon: %v", p.Time.Format(time.RFC3339), p.Depth, p.Lat, p.Lon)
}

// Validate rejects a non-finite depth, lat or lon.
func (p Point) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{{"depth", p.Depth}, {"lat", p.Lat}, {"lon", p.Lon}} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidPoint, c.name, c.v)
		}
	}
	return nil
}

// Source samples a field at a point.
// Implementations must be safe for concurrent reads.
type Source[T any] interface {
	Sample(ctx context.Context, p Point) (T, error)
}

// SourceFunc adapts a function to a Source.
type SourceFunc[T any] func(ctx context.Context, p Point) (T, error)

func (f SourceFunc[T]) Sample(ctx context.Context, p Point) (T, error) {
	return f(ctx, p)
}

// Bounds is an inclusive lon/lat box.
type Bounds struct {
	MinLon float64
	MaxLon float64
	MinLat float64
	MaxLat float64
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Validate checks that the box is not inverted.
func (b Bounds) Validate() error {
	if b.MinLon > b.MaxLon {
		return fmt.Errorf("bounds: min lon %v greater than max lon %v", b.MinLon, b.MaxLon)
	}
	if b.MinLat > b.MaxLat {
		return fmt.Errorf("bounds: min lat %v greater than max lat %v", b.MinLat, b.MaxLat)
	}
	return nil
}

// OutBounds returns an error wrapping ErrOutOfBounds for p.
func OutBounds(p Point) error {
	return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
}
