// Package grid provides in-memory field sources over structured grids.
package grid

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// ErrTimeOutOfRange is returned when the query time lies outside the time axis.
// It is not a bounds miss: a nested set does not fall back on it.
var ErrTimeOutOfRange = errors.New("time outside field record")

// ErrNaNValue is returned when the selected cell holds NaN.
var ErrNaNValue = errors.New("field value is NaN")

// Rectilinear is a regular lat/lon grid with optional depth and time axes.
// Vals is row-major: vals[((t*len(Depths)+d)*len(Lats)+j)*len(Lons)+i].
// Axes must be ascending. Values are looked up by nearest neighbour.
type Rectilinear struct {
	Name   string
	Lons   []float64
	Lats   []float64
	Depths []float64
	Times  []time.Time
	Vals   []float64
}

// NewRectilinear validates the axes and value count.
// A nil depths axis means a single surface level; nil times means a static field.
func NewRectilinear(name string, lons, lats, depths []float64, times []time.Time, vals []float64) (*Rectilinear, error) {
	if len(depths) == 0 {
		depths = []float64{0}
	}
	if len(times) == 0 {
		times = []time.Time{{}}
	}
	for axis, a := range map[string][]float64{"lon": lons, "lat": lats, "depth": depths} {
		if len(a) == 0 {
			return nil, fmt.Errorf("grid %q: empty %s axis", name, axis)
		}
		if !sort.Float64sAreSorted(a) {
			return nil, fmt.Errorf("grid %q: %s axis not ascending", name, axis)
		}
	}
	for i := 1; i < len(times); i++ {
		if times[i].Before(times[i-1]) {
			return nil, fmt.Errorf("grid %q: time axis not ascending", name)
		}
	}

	expected := int64(len(times)) * int64(len(depths)) * int64(len(lats)) * int64(len(lons))
	if int64(len(vals)) != expected {
		return nil, fmt.Errorf("grid %q: %d values, expected %d (%dx%dx%dx%d)",
			name, len(vals), expected, len(times), len(depths), len(lats), len(lons))
	}

	return &Rectilinear{Name: name, Lons: lons, Lats: lats, Depths: depths, Times: times, Vals: vals}, nil
}

// Bounds returns the lon/lat extent of the grid.
func (g *Rectilinear) Bounds() nested.Bounds {
	return nested.Bounds{
		MinLon: g.Lons[0],
		MaxLon: g.Lons[len(g.Lons)-1],
		MinLat: g.Lats[0],
		MaxLat: g.Lats[len(g.Lats)-1],
	}
}

// Sample implements nested.Source.
func (g *Rectilinear) Sample(ctx context.Context, p nested.Point) (float64, error) {
	if !g.Bounds().Contains(p) {
		return 0, nested.OutBounds(p)
	}
	if p.Depth < g.Depths[0] || p.Depth > g.Depths[len(g.Depths)-1] {
		return 0, nested.OutBounds(p)
	}

	t, err := g.timeIndex(p.Time)
	if err != nil {
		return 0, err
	}
	d := nearest(g.Depths, p.Depth)
	j := nearest(g.Lats, p.Lat)
	i := nearest(g.Lons, p.Lon)

	v := g.Vals[((t*len(g.Depths)+d)*len(g.Lats)+j)*len(g.Lons)+i]
	if math.IsNaN(v) {
		return 0, fmt.Errorf("grid %q: %w at %s", g.Name, ErrNaNValue, p)
	}

	return v, nil
}

func (g *Rectilinear) String() string {
	return g.Name
}

func (g *Rectilinear) timeIndex(ts time.Time) (int, error) {
	if len(g.Times) == 1 {
		return 0, nil
	}
	first, last := g.Times[0], g.Times[len(g.Times)-1]
	if ts.Before(first) || ts.After(last) {
		return 0, fmt.Errorf("grid %q: %w: %v not in [%v, %v]", g.Name, ErrTimeOutOfRange,
			ts.Format(time.RFC3339), first.Format(time.RFC3339), last.Format(time.RFC3339))
	}

	k := sort.Search(len(g.Times), func(n int) bool { return !g.Times[n].Before(ts) })
	if k > 0 && ts.Sub(g.Times[k-1]) <= g.Times[k].Sub(ts) {
		return k - 1, nil
	}
	return k, nil
}

// nearest returns the index of the axis value closest to x. The axis is ascending
// and x lies within its extent.
func nearest(axis []float64, x float64) int {
	k := sort.SearchFloat64s(axis, x)
	if k == len(axis) {
		return k - 1
	}
	if k > 0 && x-axis[k-1] <= axis[k]-x {
		return k - 1
	}
	return k
}
