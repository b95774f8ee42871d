// Package catalog stores nested field set definitions in PostgreSQL.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

const setsQuery = `
	SELECT s.name, s.kind, s.unit, m.position, m.name, m.kind,
	       COALESCE(m.variable, ''), COALESCE(m.v_variable, ''), m.value,
	       m.min_lon, m.max_lon, m.min_lat, m.max_lat, m.lambert
	FROM field_sets s
	LEFT JOIN field_set_members m ON m.set_name = s.name
	ORDER BY s.name, m.position`

type Repository struct {
	db *sql.DB
}

// Open connects to the catalog database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	return NewRepository(db), nil
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// LoadSets returns every set with its members in priority order.
func (r *Repository) LoadSets(ctx context.Context) ([]domain.SetDefinition, error) {
	rows, err := r.db.QueryContext(ctx, setsQuery)
	if err != nil {
		return nil, fmt.Errorf("query sets: %w", err)
	}
	defer rows.Close()

	var defs []domain.SetDefinition
	for rows.Next() {
		var (
			setName, setKind, unit         string
			position                       sql.NullInt64
			memberName, kind               sql.NullString
			variable, vVariable            string
			value                          sql.NullFloat64
			minLon, maxLon, minLat, maxLat sql.NullFloat64
			lambert                        sql.NullString
		)
		if err := rows.Scan(&setName, &setKind, &unit, &position, &memberName, &kind, &variable, &vVariable, &value,
			&minLon, &maxLon, &minLat, &maxLat, &lambert); err != nil {
			return nil, fmt.Errorf("scan set row: %w", err)
		}

		if len(defs) == 0 || defs[len(defs)-1].Name != setName {
			defs = append(defs, domain.SetDefinition{Name: setName, Kind: domain.SetKind(setKind), Unit: unit})
		}
		// A set without members yields one row of NULLs; validation rejects it later.
		if !position.Valid {
			continue
		}

		if !minLon.Valid || !maxLon.Valid || !minLat.Valid || !maxLat.Valid {
			return nil, fmt.Errorf("catalog: set %q member %q: bounds must not be NULL", setName, memberName.String)
		}

		member := domain.MemberDefinition{
			Position:  int(position.Int64),
			Name:      memberName.String,
			Kind:      domain.MemberKind(kind.String),
			Variable:  variable,
			VVariable: vVariable,
			Value:     value.Float64,
			Bounds: nested.Bounds{
				MinLon: minLon.Float64,
				MaxLon: maxLon.Float64,
				MinLat: minLat.Float64,
				MaxLat: maxLat.Float64,
			},
		}
		if lambert.Valid {
			member.Lambert = &domain.LambertProjection{}
			if err := json.Unmarshal([]byte(lambert.String), member.Lambert); err != nil {
				return nil, fmt.Errorf("catalog: set %q member %q: decode lambert projection: %w", setName, member.Name, err)
			}
		}

		def := &defs[len(defs)-1]
		def.Members = append(def.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sets: %w", err)
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
	}

	return defs, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
