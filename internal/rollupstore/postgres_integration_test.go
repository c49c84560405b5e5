// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

//go:build integration

package rollupstore

import (
	"context"
	"testing"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/database"
	"github.com/tomtom215/ecosort/internal/testinfra"
)

func TestSQLStore_Postgres_Integration(t *testing.T) {
	pc := testinfra.Postgres(t)
	ctx := context.Background()

	db, err := database.OpenPostgres(ctx, config.PostgresConfig{DSN: pc.DSN, MaxOpenConns: 8})
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}

	s, err := NewSQLStore(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLStore() error = %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}
