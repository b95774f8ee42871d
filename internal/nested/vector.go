package nested

import (
	"context"
	"math"
)

// Vector is a horizontal vector sample, e.g. zonal and meridional velocity.
type Vector struct {
	U float64
	V float64
}

// Speed returns the vector magnitude.
func (v Vector) Speed() float64 {
	return math.Hypot(v.U, v.V)
}

// Pair joins two scalar sources into one vector source. Both components are
// sampled on the same member: if either is out of bounds the pair is, so a
// vector set never mixes U from one member with V from another.
func Pair(u, v Source[float64]) Source[Vector] {
	return pair{u: u, v: v}
}

type pair struct {
	u Source[float64]
	v Source[float64]
}

func (p pair) Sample(ctx context.Context, pt Point) (Vector, error) {
	u, err := p.u.Sample(ctx, pt)
	if err != nil {
		return Vector{}, err
	}
	v, err := p.v.Sample(ctx, pt)
	if err != nil {
		return Vector{}, err
	}

	return Vector{U: u, V: v}, nil
}
