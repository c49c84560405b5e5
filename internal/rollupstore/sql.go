// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rollupstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/tomtom215/ecosort/internal/database"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

const component = "rollupstore"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid rollup table name")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// SQLStore keeps rollups in PostgreSQL or DuckDB.
type SQLStore struct {
	db     *database.DB
	table  string
	ownsDB bool

	// DuckDB reports a transaction conflict when two connections upsert the
	// same key concurrently, so upserts on that dialect are serialized.
	writeMu *sync.Mutex

	upsertSQL     string
	aggregatesSQL string
	seriesSQL     string
}

// Option configures a SQLStore.
type Option func(*SQLStore)

// WithTable overrides the default table name.
func WithTable(table string) Option {
	return func(s *SQLStore) {
		if table != "" {
			s.table = table
		}
	}
}

// WithSharedDB marks the handle as shared with another store; Close then
// leaves it open for its owner.
func WithSharedDB() Option {
	return func(s *SQLStore) {
		s.ownsDB = false
	}
}

// NewSQLStore migrates the rollup table for the dialect of db and returns
// the store.
func NewSQLStore(ctx context.Context, db *database.DB, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{db: db, table: DefaultTable, ownsDB: true}
	for _, opt := range opts {
		opt(s)
	}
	if !identRe.MatchString(s.table) {
		return nil, fmt.Errorf("rollupstore: %w: %q", ErrInvalidTable, s.table)
	}

	var bucketType string
	switch db.Dialect() {
	case database.DialectPostgres:
		bucketType = "TIMESTAMPTZ"
	case database.DialectDuckDB:
		bucketType = "TIMESTAMP"
		s.writeMu = &sync.Mutex{}
	default:
		return nil, fmt.Errorf("rollupstore: %w: %s", database.ErrUnsupportedDialect, db.Dialect())
	}

	migrations := []database.Migration{
		{
			Version: 1,
			Name:    "create_" + s.table,
			SQL: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				robot_id VARCHAR(128) NOT NULL,
				bucket_ts %s NOT NULL,
				last_battery INTEGER NOT NULL,
				last_sorted_count BIGINT NOT NULL,
				last_low_confidence BIGINT NOT NULL,
				PRIMARY KEY (robot_id, bucket_ts)
			)`, s.table, bucketType),
		},
	}
	// The migration component includes the table so two rollup tables can
	// live in one database.
	if err := db.Migrate(ctx, component+":"+s.table, migrations); err != nil {
		return nil, fmt.Errorf("rollupstore: %w", err)
	}

	s.upsertSQL = fmt.Sprintf(`
INSERT INTO %s (robot_id, bucket_ts, last_battery, last_sorted_count, last_low_confidence)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (robot_id, bucket_ts) DO UPDATE SET
	last_battery = EXCLUDED.last_battery,
	last_sorted_count = EXCLUDED.last_sorted_count,
	last_low_confidence = EXCLUDED.last_low_confidence`, s.table)

	s.aggregatesSQL = fmt.Sprintf(`
SELECT robot_id,
	MIN(last_sorted_count),
	MAX(last_sorted_count),
	CAST(AVG(last_battery) AS DOUBLE PRECISION),
	COUNT(*)
FROM %s
WHERE bucket_ts BETWEEN $1 AND $2
GROUP BY robot_id
ORDER BY robot_id`, s.table)

	s.seriesSQL = fmt.Sprintf(`
SELECT robot_id, bucket_ts, last_battery, last_sorted_count, last_low_confidence
FROM %s
WHERE robot_id = $1
	AND bucket_ts BETWEEN $2 AND $3
ORDER BY bucket_ts ASC`, s.table)

	logging.Info().Str("dialect", string(db.Dialect())).Str("table", s.table).Msg("Rollup store ready")
	return s, nil
}

// UpsertMinute implements Store.
func (s *SQLStore) UpsertMinute(ctx context.Context, r telemetry.MinuteRollup) error {
	if r.RobotID == "" || r.BucketTS.IsZero() {
		return errors.New("rollupstore: invalid rollup key")
	}
	if s.writeMu != nil {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	_, err := s.db.Conn().ExecContext(ctx, s.upsertSQL,
		r.RobotID, telemetry.BucketOf(r.BucketTS), r.LastBattery, r.LastSortedCount, r.LastLowConfidence)
	if err != nil {
		return fmt.Errorf("upsert minute rollup: %w", err)
	}
	return nil
}

// Aggregates implements Store.
func (s *SQLStore) Aggregates(ctx context.Context, from, to time.Time) ([]RobotAggregate, error) {
	rows, err := s.db.Conn().QueryContext(ctx, s.aggregatesSQL, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query rollup aggregates: %w", err)
	}
	defer rows.Close()

	out := []RobotAggregate{}
	for rows.Next() {
		var a RobotAggregate
		if err := rows.Scan(&a.RobotID, &a.MinSorted, &a.MaxSorted, &a.AvgBattery, &a.Buckets); err != nil {
			return nil, fmt.Errorf("scan rollup aggregate: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Series implements Store.
func (s *SQLStore) Series(ctx context.Context, robotID string, from, to time.Time) ([]telemetry.MinuteRollup, error) {
	rows, err := s.db.Conn().QueryContext(ctx, s.seriesSQL, robotID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query rollup series: %w", err)
	}
	defer rows.Close()

	out := []telemetry.MinuteRollup{}
	for rows.Next() {
		var r telemetry.MinuteRollup
		if err := rows.Scan(&r.RobotID, &r.BucketTS, &r.LastBattery, &r.LastSortedCount, &r.LastLowConfidence); err != nil {
			return nil, fmt.Errorf("scan rollup row: %w", err)
		}
		r.BucketTS = r.BucketTS.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Ping implements Store.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close implements Store.
func (s *SQLStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Dialect reports which engine backs the store.
func (s *SQLStore) Dialect() database.Dialect {
	return s.db.Dialect()
}
