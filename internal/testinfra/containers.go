// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

//go:build integration

// Package testinfra starts throwaway PostgreSQL and MongoDB containers for
// the store integration tests. Build with -tags integration. Tests skip
// when no container runtime is reachable.
//
//	pg := testinfra.Postgres(t)
//	db, err := database.OpenPostgres(ctx, config.PostgresConfig{DSN: pg.DSN})
package testinfra

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
)

const defaultStartTimeout = 60 * time.Second

// SkipIfNoDocker skips t when the container runtime is not healthy.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// CleanupContainer terminates c, logging rather than failing on error.
func CleanupContainer(t *testing.T, c testcontainers.Container) {
	t.Helper()
	if err := testcontainers.TerminateContainer(c); err != nil {
		t.Logf("terminate container: %v", err)
	}
}

type containerConfig struct {
	image        string
	startTimeout time.Duration
}

// Option configures a test container.
type Option func(*containerConfig)

// WithImage overrides the image.
func WithImage(image string) Option {
	return func(c *containerConfig) { c.image = image }
}

// WithStartTimeout bounds the wait for readiness.
func WithStartTimeout(timeout time.Duration) Option {
	return func(c *containerConfig) { c.startTimeout = timeout }
}

func newConfig(image string, opts []Option) containerConfig {
	cfg := containerConfig{image: image, startTimeout: defaultStartTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// start runs req and returns the container once its wait strategy passes.
// On failure the container, if any, is already terminated.
func start(ctx context.Context, name string, req testcontainers.ContainerRequest) (testcontainers.Container, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("start %s container: %w", name, err)
	}
	return c, nil
}

// must skips without Docker, runs newFn and registers cleanup on t.
func must[C testcontainers.Container](t *testing.T, newFn func(context.Context) (C, error)) C {
	t.Helper()
	SkipIfNoDocker(t)

	c, err := newFn(context.Background())
	if err != nil {
		t.Fatalf("%v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, c) })
	return c
}
