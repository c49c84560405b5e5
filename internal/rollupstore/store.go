// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package rollupstore keeps the per-robot, per-minute rollup table.
//
// Every telemetry record is folded into the row keyed by (robot_id,
// bucket_ts) with pure overwrite semantics: the counters of the row are
// those of the last record written for that minute. Rows are never deleted
// here; retention is left to the database operator.
//
// Backends:
//   - SQLStore: PostgreSQL (TIMESTAMPTZ buckets) or DuckDB (UTC TIMESTAMP buckets)
//   - MemoryStore: process-local, for tests and the memory driver
package rollupstore

import (
	"context"
	"time"

	"github.com/tomtom215/ecosort/internal/telemetry"
)

// DefaultTable is the rollup table name used when none is configured.
const DefaultTable = "robot_stats_minute"

// RobotAggregate summarizes the rollup rows of one robot inside a window.
type RobotAggregate struct {
	RobotID    string
	MinSorted  int64
	MaxSorted  int64
	AvgBattery float64
	Buckets    int64
}

// Store is the rollup sink and its read side.
type Store interface {
	// UpsertMinute inserts the bucket row or overwrites its three counters.
	UpsertMinute(ctx context.Context, r telemetry.MinuteRollup) error

	// Aggregates returns one entry per robot having rows with bucket_ts in
	// [from, to], ordered by robot id. An empty window yields an empty slice.
	Aggregates(ctx context.Context, from, to time.Time) ([]RobotAggregate, error)

	// Series returns the rows of one robot in [from, to] ordered by bucket.
	Series(ctx context.Context, robotID string, from, to time.Time) ([]telemetry.MinuteRollup, error)

	Ping(ctx context.Context) error
	Close() error
}
