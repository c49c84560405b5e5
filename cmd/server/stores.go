// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/database"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/rawstore"
	"github.com/tomtom215/ecosort/internal/rollupstore"
)

// storeSet holds the two stores and the DuckDB handle they may share.
type storeSet struct {
	Raw    rawstore.Store
	Rollup rollupstore.Store
	shared *database.DB
}

// Close closes both stores, then the shared handle if there is one.
func (s *storeSet) Close() {
	if s.Raw != nil {
		if err := s.Raw.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing raw store")
		}
	}
	if s.Rollup != nil {
		if err := s.Rollup.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing rollup store")
		}
	}
	if s.shared != nil {
		if err := s.shared.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing shared DuckDB")
		}
	}
}

// openStores opens the raw and rollup stores selected by cfg. When both use
// the same DuckDB file they share one handle.
func openStores(ctx context.Context, cfg *config.Config) (*storeSet, error) {
	set := &storeSet{}

	if cfg.SharedDuckDB() {
		db, err := database.OpenDuckDB(ctx, cfg.RawStore.DuckDB)
		if err != nil {
			return nil, fmt.Errorf("open shared duckdb: %w", err)
		}
		set.shared = db
		logging.Info().Str("path", cfg.RawStore.DuckDB.Path).Msg("Raw and rollup stores share one DuckDB file")
	}

	raw, err := openRawStore(ctx, cfg, set.shared)
	if err != nil {
		set.Close()
		return nil, err
	}
	set.Raw = raw

	rollup, err := openRollupStore(ctx, cfg, set.shared)
	if err != nil {
		set.Close()
		return nil, err
	}
	set.Rollup = rollup

	logging.Info().
		Str("raw_store", cfg.RawStore.Driver).
		Str("rollup_store", cfg.RollupStore.Driver).
		Msg("Stores initialized successfully")
	return set, nil
}

func openRawStore(ctx context.Context, cfg *config.Config, shared *database.DB) (rawstore.Store, error) {
	switch cfg.RawStore.Driver {
	case config.DriverMongo:
		s, err := rawstore.NewMongoStore(ctx, cfg.RawStore.Mongo)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.DriverDuckDB:
		if shared != nil {
			s, err := rawstore.NewDuckDBStore(ctx, shared, rawstore.WithSharedDB())
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		db, err := database.OpenDuckDB(ctx, cfg.RawStore.DuckDB)
		if err != nil {
			return nil, fmt.Errorf("open raw duckdb: %w", err)
		}
		s, err := rawstore.NewDuckDBStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logging.Warn().Msg("Raw store is in memory; telemetry is lost on restart")
		return rawstore.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown raw store driver %q", cfg.RawStore.Driver)
	}
}

func openRollupStore(ctx context.Context, cfg *config.Config, shared *database.DB) (rollupstore.Store, error) {
	table := rollupstore.WithTable(cfg.RollupStore.Table)

	switch cfg.RollupStore.Driver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(ctx, cfg.RollupStore.Postgres)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		s, err := rollupstore.NewSQLStore(ctx, db, table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	case config.DriverDuckDB:
		if shared != nil {
			s, err := rollupstore.NewSQLStore(ctx, shared, table, rollupstore.WithSharedDB())
			if err != nil {
				return nil, err
			}
			return s, nil
		}
		db, err := database.OpenDuckDB(ctx, cfg.RollupStore.DuckDB)
		if err != nil {
			return nil, fmt.Errorf("open rollup duckdb: %w", err)
		}
		s, err := rollupstore.NewSQLStore(ctx, db, table)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return s, nil

	case config.DriverMemory:
		logging.Warn().Msg("Rollup store is in memory; statistics are lost on restart")
		return rollupstore.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown rollup store driver %q", cfg.RollupStore.Driver)
	}
}
