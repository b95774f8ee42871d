package grid

import (
	"context"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// Constant returns Value everywhere inside Bounds.
// Filling each member of a set with its own position gives an index field
// that reports which member covers a point.
type Constant struct {
	Name   string
	Bounds nested.Bounds
	Value  float64
}

func (c *Constant) Sample(ctx context.Context, p nested.Point) (float64, error) {
	if !c.Bounds.Contains(p) {
		return 0, nested.OutBounds(p)
	}
	return c.Value, nil
}

func (c *Constant) String() string {
	return c.Name
}
