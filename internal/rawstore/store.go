// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package rawstore persists every normalized telemetry record in an
// append-only log and answers the "latest status per robot" and "recent
// records" reads.
//
// Backends: DuckDB (embedded), MongoDB, and an in-memory store for tests
// and ephemeral runs.
package rawstore

import (
	"context"
	"time"

	"github.com/tomtom215/ecosort/internal/telemetry"
)

// MaxRecentLimit caps Recent so a single request cannot scan the whole log.
const MaxRecentLimit = 200

// Store is the raw telemetry log.
type Store interface {
	// InsertRaw appends a record. Records are never updated.
	InsertRaw(ctx context.Context, rec telemetry.Record) error

	// LatestPerRobot returns, for every robot with at least one record whose
	// event time lies in [from, to], the newest such record, ordered by robot id.
	LatestPerRobot(ctx context.Context, from, to time.Time) ([]telemetry.LatestStatus, error)

	// Recent returns up to limit records, newest event time first.
	Recent(ctx context.Context, limit int) ([]telemetry.Record, error)

	Ping(ctx context.Context) error
	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > MaxRecentLimit {
		return MaxRecentLimit
	}
	return limit
}
