package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/grid"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// SetKind selects scalar or vector resolution.
type SetKind string

const (
	SetKindScalar SetKind = "scalar"
	// SetKindVector resolves a U/V pair; both components come from the same member.
	SetKindVector SetKind = "vector"
)

// MemberKind selects how a set member is backed.
type MemberKind string

const (
	// MemberKindStore samples the grid store on every query.
	MemberKindStore MemberKind = "store"
	// MemberKindConstant returns a fixed value inside its bounds.
	MemberKindConstant MemberKind = "constant"
	// MemberKindGrid holds the store's latest snapshot in memory, loaded once by BuildRegistry.
	MemberKindGrid MemberKind = "grid"
)

// Validate checks that the kind is known.
func (k MemberKind) Validate() error {
	switch k {
	case MemberKindStore, MemberKindConstant, MemberKindGrid:
		return nil
	default:
		return fmt.Errorf("unknown member kind %q", k)
	}
}

// LambertProjection places a grid member's snapshot on a Lambert conformal
// grid instead of a lat/lon one. Longitudes are signed degrees, spacing in metres.
type LambertProjection struct {
	Ni     int     `json:"ni"`
	Nj     int     `json:"nj"`
	La1    float64 `json:"la1"`
	Lo1    float64 `json:"lo1"`
	LoV    float64 `json:"lov"`
	Latin1 float64 `json:"latin1"`
	Latin2 float64 `json:"latin2"`
	Dx     float64 `json:"dx"`
	Dy     float64 `json:"dy"`
}

// MemberDefinition describes one source of a nested set.
type MemberDefinition struct {
	Position  int
	Name      string
	Kind      MemberKind
	Variable  string  // store and grid members; U component in vector sets
	VVariable string  // V component in vector sets
	Value     float64 // constant members
	Bounds    nested.Bounds
	Lambert   *LambertProjection // grid members only
}

func (m MemberDefinition) variables() []string {
	if m.VVariable == "" {
		return []string{m.Variable}
	}
	return []string{m.Variable, m.VVariable}
}

// SetDefinition describes a nested set. Members are in priority order.
type SetDefinition struct {
	Name    string
	Kind    SetKind // empty means scalar
	Unit    string
	Members []MemberDefinition
}

// IsVector reports whether the set resolves U/V pairs.
func (d SetDefinition) IsVector() bool {
	return d.Kind == SetKindVector
}

// Validate checks member positions are unique and members are well formed.
func (d SetDefinition) Validate() error {
	if d.Name == "" {
		return errors.New("set name cannot be empty")
	}
	switch d.Kind {
	case "", SetKindScalar, SetKindVector:
	default:
		return fmt.Errorf("set %q: unknown set kind %q", d.Name, d.Kind)
	}
	if len(d.Members) == 0 {
		return fmt.Errorf("set %q: %w", d.Name, nested.ErrNoSources)
	}
	seen := make(map[int]bool, len(d.Members))
	for _, m := range d.Members {
		if seen[m.Position] {
			return fmt.Errorf("set %q: duplicate member position %d", d.Name, m.Position)
		}
		seen[m.Position] = true
		if err := d.validateMember(m); err != nil {
			return fmt.Errorf("set %q member %q: %w", d.Name, m.Name, err)
		}
	}
	return nil
}

func (d SetDefinition) validateMember(m MemberDefinition) error {
	if err := m.Kind.Validate(); err != nil {
		return err
	}
	if err := m.Bounds.Validate(); err != nil {
		return err
	}
	if m.Lambert != nil && m.Kind != MemberKindGrid {
		return errors.New("lambert projection requires a grid member")
	}

	if m.Kind == MemberKindConstant {
		if d.IsVector() {
			return errors.New("vector sets cannot hold constant members")
		}
		return nil
	}
	if m.Variable == "" {
		return fmt.Errorf("%s member requires a variable", m.Kind)
	}
	if d.IsVector() && m.VVariable == "" {
		return errors.New("vector member requires a v variable")
	}
	if !d.IsVector() && m.VVariable != "" {
		return errors.New("scalar member cannot have a v variable")
	}
	return nil
}

type entry struct {
	def    SetDefinition
	scalar *nested.Set[float64]
	vector *nested.Set[nested.Vector]
}

func (e entry) size() int {
	if e.vector != nil {
		return e.vector.Len()
	}
	return e.scalar.Len()
}

// Registry holds the nested sets served by this process. It is read-only after BuildRegistry.
type Registry struct {
	sets map[string]entry
}

// BuildRegistry builds one nested set per definition, ordering members by position.
// Grid members are loaded from store here, so ctx bounds the whole load.
func BuildRegistry(ctx context.Context, defs []SetDefinition, store GridStore) (*Registry, error) {
	r := &Registry{sets: make(map[string]entry, len(defs))}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, ok := r.sets[def.Name]; ok {
			return nil, fmt.Errorf("duplicate set %q", def.Name)
		}

		def.Members = slices.Clone(def.Members)
		slices.SortFunc(def.Members, func(a, b MemberDefinition) int { return cmp.Compare(a.Position, b.Position) })

		var scalars []nested.Source[float64]
		var vectors []nested.Source[nested.Vector]
		for _, m := range def.Members {
			components := make([]nested.Source[float64], 0, 2)
			for _, variable := range m.variables() {
				src, err := memberSource(ctx, m, variable, store)
				if err != nil {
					return nil, fmt.Errorf("set %q member %q: %w", def.Name, m.Name, err)
				}
				components = append(components, src)
			}
			if def.IsVector() {
				vectors = append(vectors, nested.Pair(components[0], components[1]))
			} else {
				scalars = append(scalars, components[0])
			}
		}

		e := entry{def: def}
		var err error
		if def.IsVector() {
			e.vector, err = nested.New(vectors...)
		} else {
			e.scalar, err = nested.New(scalars...)
		}
		if err != nil {
			return nil, fmt.Errorf("set %q: %w", def.Name, err)
		}
		r.sets[def.Name] = e
	}

	return r, nil
}

func memberSource(ctx context.Context, m MemberDefinition, variable string, store GridStore) (nested.Source[float64], error) {
	switch m.Kind {
	case MemberKindConstant:
		return &grid.Constant{Name: m.Name, Bounds: m.Bounds, Value: m.Value}, nil
	case MemberKindStore:
		if store == nil {
			return nil, errors.New("no grid store configured")
		}
		return &StoreSource{Name: m.Name, Variable: variable, Bounds: m.Bounds, Store: store}, nil
	case MemberKindGrid:
		if store == nil {
			return nil, errors.New("no grid store configured")
		}
		return loadGrid(ctx, m, variable, store)
	default:
		return nil, fmt.Errorf("unknown member kind %q", m.Kind)
	}
}

// loadGrid snapshots variable inside the member's bounds into memory.
func loadGrid(ctx context.Context, m MemberDefinition, variable string, store GridStore) (*GridSource, error) {
	values, err := store.GetSnapshot(ctx, variable, m.Bounds)
	if err != nil {
		return nil, fmt.Errorf("load %q snapshot: %w", variable, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("load %q snapshot: %w", variable, ErrGridValueNotFound)
	}

	cells := make([]grid.Cell, 0, len(values))
	for _, v := range values {
		cells = append(cells, grid.Cell{Lat: float64(v.Lat), Lon: float64(v.Lon), Value: float64(v.Value)})
	}

	name := m.Name + "/" + variable
	if m.Lambert == nil {
		g, err := grid.Assemble(name, cells)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "grid member loaded", "member", m.Name, "variable", variable,
			"lons", len(g.Lons), "lats", len(g.Lats))
		return &GridSource{Name: m.Name, Bounds: m.Bounds, Grid: g}, nil
	}

	p := m.Lambert
	g := &grid.Lambert{
		Name: name, Ni: p.Ni, Nj: p.Nj,
		La1: p.La1, Lo1: p.Lo1, LoV: p.LoV,
		Latin1: p.Latin1, Latin2: p.Latin2,
		Dx: p.Dx, Dy: p.Dy,
	}
	dropped, err := g.Fill(cells)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		slog.WarnContext(ctx, "snapshot cells outside lambert grid", "member", m.Name, "variable", variable, "dropped", dropped)
	}
	slog.InfoContext(ctx, "grid member loaded", "member", m.Name, "variable", variable, "ni", g.Ni, "nj", g.Nj)
	return &GridSource{Name: m.Name, Bounds: m.Bounds, Grid: g}, nil
}

// Definitions returns all set definitions sorted by name, members in priority order.
func (r *Registry) Definitions() []SetDefinition {
	defs := make([]SetDefinition, 0, len(r.sets))
	for _, e := range r.sets {
		defs = append(defs, e.def)
	}
	slices.SortFunc(defs, func(a, b SetDefinition) int { return cmp.Compare(a.Name, b.Name) })
	return defs
}

func (r *Registry) lookup(name string) (entry, bool) {
	e, ok := r.sets[name]
	return e, ok
}
