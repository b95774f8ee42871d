package nested

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// boxSource returns value inside bounds and ErrOutOfBounds outside, counting calls.
type boxSource struct {
	bounds Bounds
	value  float64
	calls  int
}

func (b *boxSource) Sample(ctx context.Context, p Point) (float64, error) {
	b.calls++
	if !b.bounds.Contains(p) {
		return 0, OutBounds(p)
	}
	return b.value, nil
}

func fine() *boxSource {
	return &boxSource{bounds: Bounds{MinLon: 0, MaxLon: 2000, MinLat: 0, MaxLat: 2000}, value: 1}
}

func coarse() *boxSource {
	return &boxSource{bounds: Bounds{MinLon: -2000, MaxLon: 18000, MinLat: -1000, MaxLat: 3000}, value: 2}
}

func point(lon, lat float64) Point {
	return Point{Time: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Lon: lon, Lat: lat}
}

func TestNew_Empty(t *testing.T) {
	_, err := New[float64]()
	if !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestNew_NilSource(t *testing.T) {
	if _, err := New[float64](fine(), nil); err == nil {
		t.Fatal("expected error for nil source")
	}
}

func TestNew_CopiesSources(t *testing.T) {
	sources := []Source[float64]{fine(), coarse()}
	set, err := New(sources...)
	if err != nil {
		t.Fatal(err)
	}
	sources[0] = coarse()

	res, err := set.Resolve(t.Context(), point(1000, 500))
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 1 {
		t.Errorf("set changed after construction: got value %v", res.Value)
	}
}

func TestSet_Resolve(t *testing.T) {
	tests := []struct {
		name         string
		lon, lat     float64
		wantValue    float64
		wantPosition int
	}{
		{name: "inside fine and coarse", lon: 1000, lat: 500, wantValue: 1, wantPosition: 1},
		{name: "fine edge is inclusive", lon: 2000, lat: 2000, wantValue: 1, wantPosition: 1},
		{name: "coarse only", lon: 10000, lat: 500, wantValue: 2, wantPosition: 2},
		{name: "coarse only south", lon: 1000, lat: -500, wantValue: 2, wantPosition: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := New[float64](fine(), coarse())
			if err != nil {
				t.Fatal(err)
			}
			res, err := set.Resolve(t.Context(), point(tt.lon, tt.lat))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Value != tt.wantValue {
				t.Errorf("Resolve() value = %v, want %v", res.Value, tt.wantValue)
			}
			if res.Position() != tt.wantPosition {
				t.Errorf("Resolve() position = %v, want %v", res.Position(), tt.wantPosition)
			}
			if res.Index != tt.wantPosition-1 {
				t.Errorf("Resolve() index = %v, want %v", res.Index, tt.wantPosition-1)
			}
		})
	}
}

func TestSet_Resolve_FirstSuccessStops(t *testing.T) {
	a, b := fine(), coarse()
	set, _ := New[float64](a, b)

	if _, err := set.Resolve(t.Context(), point(1000, 500)); err != nil {
		t.Fatal(err)
	}
	if b.calls != 0 {
		t.Errorf("coarse source consulted %d times, want 0", b.calls)
	}
}

func TestSet_Resolve_ZeroAndNegativeAreValues(t *testing.T) {
	for _, v := range []float64{0, -3.5} {
		first := SourceFunc[float64](func(ctx context.Context, p Point) (float64, error) { return v, nil })
		second := SourceFunc[float64](func(ctx context.Context, p Point) (float64, error) { return 99, nil })
		set, _ := New(Source[float64](first), Source[float64](second))

		res, err := set.Resolve(t.Context(), point(0, 0))
		if err != nil {
			t.Fatal(err)
		}
		if res.Value != v || res.Index != 0 {
			t.Errorf("Resolve() = %+v, want value %v from index 0", res, v)
		}
	}
}

func TestSet_Resolve_Exhausted(t *testing.T) {
	set, _ := New[float64](fine(), coarse())

	_, err := set.Resolve(t.Context(), point(50000, 500))
	if !errors.Is(err, ErrOutOfBoundsAll) {
		t.Fatalf("expected ErrOutOfBoundsAll, got %v", err)
	}
	if errors.Is(err, ErrOutOfBounds) {
		t.Error("exhausted error must not match single source ErrOutOfBounds")
	}
	var oob *OutOfBoundsAllError
	if !errors.As(err, &oob) {
		t.Fatalf("expected *OutOfBoundsAllError, got %T", err)
	}
	if oob.Sources != 2 {
		t.Errorf("Sources = %d, want 2", oob.Sources)
	}
	if oob.Point.Lon != 50000 {
		t.Errorf("Point.Lon = %v, want 50000", oob.Point.Lon)
	}
}

func TestSet_Resolve_OtherErrorPropagates(t *testing.T) {
	errBadTime := errors.New("time outside record")
	failing := SourceFunc[float64](func(ctx context.Context, p Point) (float64, error) {
		return 0, errBadTime
	})
	b := coarse()
	set, _ := New(Source[float64](failing), Source[float64](b))

	_, err := set.Resolve(t.Context(), point(1000, 500))
	if err != errBadTime {
		t.Fatalf("expected the source error unchanged, got %v", err)
	}
	if b.calls != 0 {
		t.Errorf("next source consulted %d times after non-bounds error", b.calls)
	}
}

func TestSet_Resolve_OrderMatters(t *testing.T) {
	set, _ := New[float64](coarse(), fine())

	res, err := set.Resolve(t.Context(), point(1000, 500))
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != 2 || res.Index != 0 {
		t.Errorf("swapped order: got %+v, want coarse value 2 at index 0", res)
	}
}

func TestSet_Resolve_Deterministic(t *testing.T) {
	set, _ := New[float64](fine(), coarse())
	p := point(10000, 500)

	first, err := set.Resolve(t.Context(), p)
	if err != nil {
		t.Fatal(err)
	}
	for range 20 {
		res, err := set.Resolve(t.Context(), p)
		if err != nil {
			t.Fatal(err)
		}
		if res.Index != first.Index {
			t.Fatalf("index changed between calls: %d then %d", first.Index, res.Index)
		}
	}
}

func TestSet_Resolve_ManySources(t *testing.T) {
	sources := make([]Source[float64], 0, 5)
	for i := range 5 {
		size := float64(i+1) * 10
		sources = append(sources, &boxSource{bounds: Bounds{MinLon: -size, MaxLon: size, MinLat: -size, MaxLat: size}, value: float64(i)})
	}
	set, _ := New(sources...)

	res, err := set.Resolve(t.Context(), point(35, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Index != 3 || res.Value != 3 {
		t.Errorf("Resolve() = %+v, want index 3", res)
	}
}

func TestSet_Resolve_NonFinitePoint(t *testing.T) {
	tests := []struct {
		name string
		p    Point
	}{
		{name: "NaN lat", p: Point{Lat: math.NaN(), Lon: 1000}},
		{name: "NaN lon", p: Point{Lat: 500, Lon: math.NaN()}},
		{name: "infinite lat", p: Point{Lat: math.Inf(1), Lon: 1000}},
		{name: "negative infinite lon", p: Point{Lat: 500, Lon: math.Inf(-1)}},
		{name: "NaN depth", p: Point{Lat: 500, Lon: 1000, Depth: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c := fine(), coarse()
			set, err := New[float64](f, c)
			if err != nil {
				t.Fatal(err)
			}

			_, err = set.Resolve(t.Context(), tt.p)
			if !errors.Is(err, ErrInvalidPoint) {
				t.Fatalf("expected ErrInvalidPoint, got %v", err)
			}
			if errors.Is(err, ErrOutOfBoundsAll) || errors.Is(err, ErrOutOfBounds) {
				t.Errorf("invalid point classified as out of bounds: %v", err)
			}
			if f.calls != 0 || c.calls != 0 {
				t.Errorf("sources sampled for an invalid point: fine %d, coarse %d", f.calls, c.calls)
			}
		})
	}
}

func TestSet_Resolve_Concurrent(t *testing.T) {
	var calls atomic.Int64
	box := func(b Bounds, v float64) Source[float64] {
		return SourceFunc[float64](func(ctx context.Context, p Point) (float64, error) {
			calls.Add(1)
			if !b.Contains(p) {
				return 0, OutBounds(p)
			}
			return v, nil
		})
	}
	set, err := New(box(fine().bounds, 1), box(coarse().bounds, 2))
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for n := range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lon, want := 1000.0, 0
			if n%2 == 1 {
				lon, want = 10000, 1
			}
			res, err := set.Resolve(t.Context(), point(lon, 500))
			if err != nil {
				errs <- err
				return
			}
			if res.Index != want {
				errs <- errors.New("unexpected answering source")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if got := calls.Load(); got != 32+64 {
		t.Errorf("sources sampled %d times, want 96", got)
	}
}

func TestPoint_Validate(t *testing.T) {
	if err := point(1000, 500).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (Point{Lat: math.Inf(1)}).Validate(); !errors.Is(err, ErrInvalidPoint) {
		t.Errorf("expected ErrInvalidPoint, got %v", err)
	}
}

func TestBounds_Validate(t *testing.T) {
	if err := (Bounds{MinLon: 1, MaxLon: 0}).Validate(); err == nil {
		t.Error("expected error for inverted lon")
	}
	if err := (Bounds{MinLat: 1, MaxLat: 0}).Validate(); err == nil {
		t.Error("expected error for inverted lat")
	}
	if err := (Bounds{MinLon: -1, MaxLon: 1, MinLat: -1, MaxLat: 1}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
