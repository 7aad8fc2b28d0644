// Package clickhouse pulls player handicaps from the round-score analytics
// store and writes them back to the roster store.
package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Client provides ClickHouse integration for handicaps
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client
func NewClient(ctx context.Context, addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &Client{conn: conn}, nil
}

// handicapQuery averages the best 8 of each player's 20 most recent score
// differentials.
const handicapQuery = `
	SELECT
		player_id,
		round(arrayAvg(arraySlice(arraySort(groupArray(differential)), 1, 8)), 1) AS handicap
	FROM (
		SELECT player_id, differential
		FROM round_scores
		ORDER BY played_at DESC
		LIMIT 20 BY player_id
	)
	GROUP BY player_id
`

// GetAllHandicaps returns the handicap of every player with recorded rounds
func (c *Client) GetAllHandicaps(ctx context.Context) (map[string]float64, error) {
	rows, err := c.conn.Query(ctx, handicapQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	handicaps := make(map[string]float64)
	for rows.Next() {
		var id string
		var h float64
		if err := rows.Scan(&id, &h); err != nil {
			return nil, err
		}
		handicaps[id] = h
	}
	return handicaps, rows.Err()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
