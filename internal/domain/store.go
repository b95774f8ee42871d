package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

var ErrGridValueNotFound = errors.New("grid value not found")

type GridValue struct {
	Value     float32
	Unit      string
	Lat       float32
	Lon       float32
	Timestamp time.Time
	CatalogID uuid.UUID
}

// GridStore reads gridded variables.
//
// GetValue returns the stored grid point nearest to (lat, lon) inside bounds,
// at the latest timestamp not after the requested one. GetSnapshot returns
// every point inside bounds at the latest stored timestamp.
type GridStore interface {
	GetValue(ctx context.Context, variable string, timestamp time.Time, lat, lon float32, bounds nested.Bounds) (*GridValue, error)
	GetSnapshot(ctx context.Context, variable string, bounds nested.Bounds) ([]GridValue, error)
}
