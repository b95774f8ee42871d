package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/domain"
	"github.com/kacper-wojtaszczyk/jackfruit/nested-go/internal/nested"
)

// nearestValueQuery picks the latest timestamp not after @timestamp that has data
// inside the bounds, then the grid point nearest to (@lat, @lon) at that time.
const nearestValueQuery = `
		SELECT value, unit, lat, lon, catalog_id, timestamp
        FROM grid_data FINAL
        WHERE variable = @variable
          AND lat BETWEEN @min_lat AND @max_lat
          AND lon BETWEEN @min_lon AND @max_lon
          AND timestamp = (
            SELECT max(timestamp) FROM grid_data FINAL
            WHERE variable = @variable AND timestamp <= @timestamp
              AND lat BETWEEN @min_lat AND @max_lat
              AND lon BETWEEN @min_lon AND @max_lon
          )
        ORDER BY (lat - @lat) * (lat - @lat) + (lon - @lon) * (lon - @lon)
        LIMIT 1
        `

// snapshotQuery returns every grid point inside the bounds at the latest
// timestamp that has data there.
const snapshotQuery = `
		SELECT value, unit, lat, lon, catalog_id, timestamp
        FROM grid_data FINAL
        WHERE variable = @variable
          AND lat BETWEEN @min_lat AND @max_lat
          AND lon BETWEEN @min_lon AND @max_lon
          AND timestamp = (
            SELECT max(timestamp) FROM grid_data FINAL
            WHERE variable = @variable
              AND lat BETWEEN @min_lat AND @max_lat
              AND lon BETWEEN @min_lon AND @max_lon
          )
        ORDER BY lat, lon
        `

type Client struct {
	conn driver.Conn
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Logger: logger,
		Settings: clickhouse.Settings{
			"max_execution_time": 15,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

func (c *Client) GetValue(
	ctx context.Context,
	variable string,
	timestamp time.Time,
	lat float32,
	lon float32,
	bounds nested.Bounds,
) (*domain.GridValue, error) {
	var result domain.GridValue

	err := c.conn.QueryRow(
		ctx,
		nearestValueQuery,
		clickhouse.Named("variable", variable),
		clickhouse.Named("timestamp", timestamp),
		clickhouse.Named("lat", lat),
		clickhouse.Named("lon", lon),
		clickhouse.Named("min_lat", float32(bounds.MinLat)),
		clickhouse.Named("max_lat", float32(bounds.MaxLat)),
		clickhouse.Named("min_lon", float32(bounds.MinLon)),
		clickhouse.Named("max_lon", float32(bounds.MaxLon)),
	).Scan(&result.Value, &result.Unit, &result.Lat, &result.Lon, &result.CatalogID, &result.Timestamp)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrGridValueNotFound
	}

	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) GetSnapshot(
	ctx context.Context,
	variable string,
	bounds nested.Bounds,
) ([]domain.GridValue, error) {
	rows, err := c.conn.Query(
		ctx,
		snapshotQuery,
		clickhouse.Named("variable", variable),
		clickhouse.Named("min_lat", float32(bounds.MinLat)),
		clickhouse.Named("max_lat", float32(bounds.MaxLat)),
		clickhouse.Named("min_lon", float32(bounds.MinLon)),
		clickhouse.Named("max_lon", float32(bounds.MaxLon)),
	)
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	defer rows.Close()

	var values []domain.GridValue
	for rows.Next() {
		var v domain.GridValue
		if err := rows.Scan(&v.Value, &v.Unit, &v.Lat, &v.Lon, &v.CatalogID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot: %w", err)
	}

	return values, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
