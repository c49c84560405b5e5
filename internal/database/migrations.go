// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/ecosort/internal/logging"
)

// Migration represents a versioned schema change owned by one component.
// Migrations MUST be append-only: never modify or remove one that has shipped.
type Migration struct {
	Version int    // Unique per component, monotonically increasing
	Name    string // Human-readable migration name
	SQL     string // Statement(s) to execute
}

// schemaMigrationsTable tracks applied migrations per component so that the
// raw store and the rollup store can share one DuckDB file.
const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	component VARCHAR NOT NULL,
	version INTEGER NOT NULL,
	name VARCHAR NOT NULL,
	applied_at TIMESTAMP NOT NULL,
	PRIMARY KEY (component, version)
)`

// Migrate applies the migrations of component that have not run yet, in order.
func (db *DB) Migrate(ctx context.Context, component string, migrations []Migration) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx, component)
	if err != nil {
		return err
	}

	count := 0
	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := db.apply(ctx, component, m); err != nil {
			return err
		}
		count++
	}

	if count > 0 {
		logging.Info().Str("component", component).Str("dialect", string(db.dialect)).Int("applied", count).Msg("Applied schema migrations")
	}
	return nil
}

// apply runs m and records it in one transaction, so a failed migration
// leaves no row behind and is retried on the next start.
func (db *DB) apply(ctx context.Context, component string, m Migration) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s v%d: %w", component, m.Version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %s v%d (%s): %w", component, m.Version, m.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (component, version, name, applied_at) VALUES ($1, $2, $3, $4)`,
		component, m.Version, m.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record migration %s v%d: %w", component, m.Version, err)
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration version of component.
func (db *DB) SchemaVersion(ctx context.Context, component string) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE component = $1`, component).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

func (db *DB) appliedVersions(ctx context.Context, component string) (map[int]bool, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT version FROM schema_migrations WHERE component = $1`, component)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeQuietly(rows)

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
