package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// ErrNoData means a source covers the point but holds no value at or before
// the requested time. It does not trigger fallback to the next source.
type ErrNoData struct {
	Source    string
	Variable  string
	Timestamp time.Time
}

func (e *ErrNoData) Error() string {
	return fmt.Sprintf("source %q has no %q data at or before %v", e.Source, e.Variable, e.Timestamp)
}

// StoreSource samples one variable of the grid store within a declared domain.
type StoreSource struct {
	Name     string
	Variable string
	Bounds   nested.Bounds
	Store    GridStore
}

func (s *StoreSource) Sample(ctx context.Context, p nested.Point) (float64, error) {
	if !s.Bounds.Contains(p) {
		return 0, nested.OutBounds(p)
	}

	gridValue, err := s.Store.GetValue(ctx, s.Variable, p.Time, float32(p.Lat), float32(p.Lon), s.Bounds)
	if errors.Is(err, ErrGridValueNotFound) {
		return 0, &ErrNoData{Source: s.Name, Variable: s.Variable, Timestamp: p.Time}
	}
	if err != nil {
		return 0, fmt.Errorf("source %q: %w", s.Name, err)
	}

	return float64(gridValue.Value), nil
}

func (s *StoreSource) String() string {
	return s.Name
}

// GridSource samples an in-memory snapshot of a store variable. Snapshots are
// surface fields, so depth is ignored as it is for StoreSource.
type GridSource struct {
	Name   string
	Bounds nested.Bounds
	Grid   nested.Source[float64]
}

func (s *GridSource) Sample(ctx context.Context, p nested.Point) (float64, error) {
	if !s.Bounds.Contains(p) {
		return 0, nested.OutBounds(p)
	}
	p.Depth = 0

	return s.Grid.Sample(ctx, p)
}

func (s *GridSource) String() string {
	return s.Name
}
