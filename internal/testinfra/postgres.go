// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage is the PostgreSQL image used by rollup store tests.
	DefaultPostgresImage = "postgres:16-alpine"

	postgresPort = "5432/tcp"
	postgresUser = "ecosort"
	postgresDB   = "ecosort"
)

// PostgresContainer is a running PostgreSQL instance.
type PostgresContainer struct {
	testcontainers.Container
	DSN string
}

// NewPostgresContainer starts PostgreSQL and waits until it accepts
// connections.
func NewPostgresContainer(ctx context.Context, opts ...Option) (*PostgresContainer, error) {
	cfg := newConfig(DefaultPostgresImage, opts)

	c, err := start(ctx, "postgres", testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresUser,
			"POSTGRES_DB":       postgresDB,
			"TZ":                "UTC",
		},
		// The entrypoint restarts postgres once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithStartupTimeout(cfg.startTimeout),
	})
	if err != nil {
		return nil, err
	}

	addr, err := c.PortEndpoint(ctx, postgresPort, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("postgres endpoint: %w", err)
	}
	return &PostgresContainer{
		Container: c,
		DSN:       fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", postgresUser, postgresUser, addr, postgresDB),
	}, nil
}

// Postgres starts PostgreSQL for the lifetime of t, or skips t without
// Docker.
func Postgres(t *testing.T, opts ...Option) *PostgresContainer {
	t.Helper()
	return must(t, func(ctx context.Context) (*PostgresContainer, error) {
		return NewPostgresContainer(ctx, opts...)
	})
}
