package grid

import (
	"context"
	"fmt"
	"math"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

const earthRadiusM = 6371229.0

// Lambert is a Lambert conformal conic grid, as used by regional weather models.
// Vals is row-major: vals[j*Ni+i], i eastward and j northward from (La1, Lo1).
// Longitudes are signed degrees.
type Lambert struct {
	Name           string
	Ni, Nj         int
	La1, Lo1       float64 // first grid point, south-west corner
	LoV            float64 // central meridian
	Latin1, Latin2 float64 // standard parallels
	Dx, Dy         float64 // grid spacing, metres
	Vals           []float64
}

// Validate checks the grid shape against the value count.
func (g *Lambert) Validate() error {
	if g.Ni <= 0 || g.Nj <= 0 {
		return fmt.Errorf("lambert grid %q: invalid shape %dx%d", g.Name, g.Ni, g.Nj)
	}
	if g.Dx <= 0 || g.Dy <= 0 {
		return fmt.Errorf("lambert grid %q: invalid spacing %vx%v", g.Name, g.Dx, g.Dy)
	}
	if int64(len(g.Vals)) != int64(g.Ni)*int64(g.Nj) {
		return fmt.Errorf("lambert grid %q: %d values, expected %d", g.Name, len(g.Vals), int64(g.Ni)*int64(g.Nj))
	}
	return nil
}

// Sample implements nested.Source. Points whose nearest cell falls outside
// the grid are out of bounds.
func (g *Lambert) Sample(ctx context.Context, p nested.Point) (float64, error) {
	i, j := g.LatLonToIJ(p.Lat, p.Lon)
	if i < 0 || i >= g.Ni || j < 0 || j >= g.Nj {
		return 0, nested.OutBounds(p)
	}
	v := g.Vals[j*g.Ni+i]
	if math.IsNaN(v) {
		return 0, fmt.Errorf("lambert grid %q: %w at %s", g.Name, ErrNaNValue, p)
	}
	return v, nil
}

func (g *Lambert) String() string {
	return g.Name
}

// LatLonToIJ maps (lat, lon) to the nearest grid indices. Points off the
// grid, including those that do not project to a finite position (NaN input,
// the pole opposite the cone apex), map to (-1, -1).
func (g *Lambert) LatLonToIJ(lat, lon float64) (i, j int) {
	x, y := g.project(lat, lon)
	x0, y0 := g.project(g.La1, g.Lo1)
	fi := math.Round((x - x0) / g.Dx)
	fj := math.Round((y - y0) / g.Dy)
	// NaN fails every comparison; the float range check also keeps the
	// int conversion below defined.
	if !(fi >= 0 && fi < float64(g.Ni) && fj >= 0 && fj < float64(g.Nj)) {
		return -1, -1
	}
	return int(fi), int(fj)
}

// IJToLatLon maps grid indices back to (lat, lon).
func (g *Lambert) IJToLatLon(i, j int) (lat, lon float64) {
	n := g.cone()
	x0, y0 := g.project(g.La1, g.Lo1)
	x := x0 + float64(i)*g.Dx
	y := y0 + float64(j)*g.Dy

	rho := math.Hypot(x, y)
	if rho == 0 {
		return 90, g.LoV
	}
	theta := math.Atan2(x, -y)
	phi := 2*math.Atan(math.Pow(earthRadiusM*g.scale()/rho, 1/n)) - math.Pi/2
	return toDeg(phi), g.LoV + toDeg(theta)/n
}

// project returns cone coordinates with y increasing northward.
func (g *Lambert) project(lat, lon float64) (x, y float64) {
	n := g.cone()
	rho := earthRadiusM * g.scale() / math.Pow(math.Tan(math.Pi/4+toRad(lat)/2), n)
	theta := n * toRad(lon-g.LoV)
	return rho * math.Sin(theta), -rho * math.Cos(theta)
}

func (g *Lambert) cone() float64 {
	if g.Latin1 == g.Latin2 {
		return math.Sin(toRad(g.Latin1))
	}
	p1, p2 := toRad(g.Latin1), toRad(g.Latin2)
	return math.Log(math.Cos(p1)/math.Cos(p2)) /
		math.Log(math.Tan(math.Pi/4+p2/2)/math.Tan(math.Pi/4+p1/2))
}

func (g *Lambert) scale() float64 {
	n := g.cone()
	p1 := toRad(g.Latin1)
	return math.Cos(p1) * math.Pow(math.Tan(math.Pi/4+p1/2), n) / n
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }
