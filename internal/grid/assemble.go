package grid

import (
	"fmt"
	"math"
	"slices"
)

// Cell is one stored grid point.
type Cell struct {
	Lat   float64
	Lon   float64
	Value float64
}

// Assemble builds a static surface Rectilinear from scattered cells. The axes
// are the distinct lats and lons of the input; combinations that are absent
// hold NaN. A repeated (lat, lon) keeps the last value.
func Assemble(name string, cells []Cell) (*Rectilinear, error) {
	if len(cells) == 0 {
		return nil, fmt.Errorf("grid %q: no cells", name)
	}

	lons := make([]float64, 0, len(cells))
	lats := make([]float64, 0, len(cells))
	for _, c := range cells {
		lons = append(lons, c.Lon)
		lats = append(lats, c.Lat)
	}
	slices.Sort(lons)
	slices.Sort(lats)
	lons = slices.Compact(lons)
	lats = slices.Compact(lats)

	vals := make([]float64, len(lons)*len(lats))
	for k := range vals {
		vals[k] = math.NaN()
	}
	for _, c := range cells {
		i, _ := slices.BinarySearch(lons, c.Lon)
		j, _ := slices.BinarySearch(lats, c.Lat)
		vals[j*len(lons)+i] = c.Value
	}

	return NewRectilinear(name, lons, lats, nil, nil, vals)
}

// Fill places cells on g by nearest grid index and replaces g.Vals. Cells
// that fall off the grid are dropped and counted; unfilled indices hold NaN.
func (g *Lambert) Fill(cells []Cell) (dropped int, err error) {
	if g.Ni <= 0 || g.Nj <= 0 {
		return 0, fmt.Errorf("lambert grid %q: invalid shape %dx%d", g.Name, g.Ni, g.Nj)
	}
	vals := make([]float64, g.Ni*g.Nj)
	for k := range vals {
		vals[k] = math.NaN()
	}
	for _, c := range cells {
		i, j := g.LatLonToIJ(c.Lat, c.Lon)
		if i < 0 {
			dropped++
			continue
		}
		vals[j*g.Ni+i] = c.Value
	}
	g.Vals = vals

	return dropped, g.Validate()
}
