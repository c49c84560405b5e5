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
	// DefaultMongoImage is the MongoDB image used by raw store tests.
	DefaultMongoImage = "mongo:7"

	mongoPort = "27017/tcp"
)

// MongoContainer is a running MongoDB instance without authentication.
type MongoContainer struct {
	testcontainers.Container
	URL string
}

// NewMongoContainer starts MongoDB and waits for it to accept connections.
func NewMongoContainer(ctx context.Context, opts ...Option) (*MongoContainer, error) {
	cfg := newConfig(DefaultMongoImage, opts)

	c, err := start(ctx, "mongo", testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{mongoPort},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections"),
			wait.ForListeningPort(mongoPort),
		).WithStartupTimeout(cfg.startTimeout),
	})
	if err != nil {
		return nil, err
	}

	addr, err := c.PortEndpoint(ctx, mongoPort, "")
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("mongo endpoint: %w", err)
	}
	return &MongoContainer{Container: c, URL: "mongodb://" + addr}, nil
}

// Mongo starts MongoDB for the lifetime of t, or skips t without Docker.
func Mongo(t *testing.T, opts ...Option) *MongoContainer {
	t.Helper()
	return must(t, func(ctx context.Context) (*MongoContainer, error) {
		return NewMongoContainer(ctx, opts...)
	})
}
