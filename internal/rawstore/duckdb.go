// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rawstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ecosort/internal/database"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

const component = "rawstore"

// Timestamps are stored as UTC TIMESTAMP; TIMESTAMPTZ would need the ICU
// extension, which is never autoloaded.
var duckdbMigrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_raw_telemetry",
		SQL: `CREATE TABLE IF NOT EXISTS raw_telemetry (
			id VARCHAR NOT NULL,
			robot_id VARCHAR NOT NULL,
			battery INTEGER NOT NULL,
			bin_status VARCHAR NOT NULL,
			sorted_count BIGINT NOT NULL,
			low_confidence BIGINT NOT NULL,
			ts TIMESTAMP NOT NULL,
			ingested_at TIMESTAMP NOT NULL
		)`,
	},
}

const (
	insertRawSQL = `INSERT INTO raw_telemetry
		(id, robot_id, battery, bin_status, sorted_count, low_confidence, ts, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	latestPerRobotSQL = `SELECT robot_id, battery, bin_status, ts
		FROM raw_telemetry
		WHERE ts BETWEEN $1 AND $2
		QUALIFY ROW_NUMBER() OVER (PARTITION BY robot_id ORDER BY ts DESC, ingested_at DESC) = 1
		ORDER BY robot_id`

	recentSQL = `SELECT id, robot_id, battery, bin_status, sorted_count, low_confidence, ts, ingested_at
		FROM raw_telemetry
		ORDER BY ts DESC, ingested_at DESC
		LIMIT $1`
)

// DuckDBStore keeps the raw log in a DuckDB table.
type DuckDBStore struct {
	db     *database.DB
	ownsDB bool
}

// DuckDBOption configures a DuckDBStore.
type DuckDBOption func(*DuckDBStore)

// WithSharedDB marks the handle as shared with another store; Close then
// leaves it open for its owner.
func WithSharedDB() DuckDBOption {
	return func(s *DuckDBStore) {
		s.ownsDB = false
	}
}

// NewDuckDBStore migrates the raw_telemetry schema and returns the store.
func NewDuckDBStore(ctx context.Context, db *database.DB, opts ...DuckDBOption) (*DuckDBStore, error) {
	if db.Dialect() != database.DialectDuckDB {
		return nil, fmt.Errorf("rawstore: %w: %s", database.ErrUnsupportedDialect, db.Dialect())
	}
	s := &DuckDBStore{db: db, ownsDB: true}
	for _, opt := range opts {
		opt(s)
	}
	if err := db.Migrate(ctx, component, duckdbMigrations); err != nil {
		return nil, fmt.Errorf("rawstore: %w", err)
	}
	return s, nil
}

// InsertRaw appends a record.
func (s *DuckDBStore) InsertRaw(ctx context.Context, rec telemetry.Record) error {
	bin, err := json.Marshal(nonNilBin(rec.BinStatus))
	if err != nil {
		return fmt.Errorf("encode bin_status: %w", err)
	}
	_, err = s.db.Conn().ExecContext(ctx, insertRawSQL,
		rec.ID, rec.RobotID, rec.Battery, string(bin), rec.SortedCount, rec.LowConfidence,
		rec.EventTime.UTC(), rec.IngestedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert raw telemetry: %w", err)
	}
	return nil
}

// LatestPerRobot implements Store.
func (s *DuckDBStore) LatestPerRobot(ctx context.Context, from, to time.Time) ([]telemetry.LatestStatus, error) {
	rows, err := s.db.Conn().QueryContext(ctx, latestPerRobotSQL, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query latest per robot: %w", err)
	}
	defer rows.Close()

	out := []telemetry.LatestStatus{}
	for rows.Next() {
		var (
			st  telemetry.LatestStatus
			bin string
		)
		if err := rows.Scan(&st.RobotID, &st.Battery, &bin, &st.EventTime); err != nil {
			return nil, fmt.Errorf("scan latest row: %w", err)
		}
		st.BinStatus = decodeBin(bin)
		st.EventTime = st.EventTime.UTC()
		out = append(out, st)
	}
	return out, rows.Err()
}

// Recent implements Store.
func (s *DuckDBStore) Recent(ctx context.Context, limit int) ([]telemetry.Record, error) {
	rows, err := s.db.Conn().QueryContext(ctx, recentSQL, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query recent telemetry: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Ping implements Store.
func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close implements Store.
func (s *DuckDBStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func scanRecords(rows *sql.Rows) ([]telemetry.Record, error) {
	out := []telemetry.Record{}
	for rows.Next() {
		var (
			rec telemetry.Record
			bin string
		)
		if err := rows.Scan(&rec.ID, &rec.RobotID, &rec.Battery, &bin,
			&rec.SortedCount, &rec.LowConfidence, &rec.EventTime, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan telemetry row: %w", err)
		}
		rec.BinStatus = decodeBin(bin)
		rec.EventTime = rec.EventTime.UTC()
		rec.IngestedAt = rec.IngestedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func decodeBin(s string) map[string]any {
	m := map[string]any{}
	if s == "" {
		return m
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func nonNilBin(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
