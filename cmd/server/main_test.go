// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/rawstore"
	"github.com/tomtom215/ecosort/internal/rollupstore"
)

func TestSchemeFor(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverMQTT, "plant/+/telemetry"},
		{config.DriverNATS, "plant.*.telemetry"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got := schemeFor(config.ChannelConfig{Driver: tt.driver, Namespace: "plant"}).TelemetryFilter()
			if got != tt.want {
				t.Errorf("TelemetryFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := &config.Config{
		RawStore:    config.RawStoreConfig{Driver: config.DriverMemory},
		RollupStore: config.RollupStoreConfig{Driver: config.DriverMemory, Table: "robot_stats_minute"},
	}

	set, err := openStores(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openStores() error = %v", err)
	}
	defer set.Close()

	if _, ok := set.Raw.(*rawstore.MemoryStore); !ok {
		t.Errorf("Raw = %T, want *rawstore.MemoryStore", set.Raw)
	}
	if _, ok := set.Rollup.(*rollupstore.MemoryStore); !ok {
		t.Errorf("Rollup = %T, want *rollupstore.MemoryStore", set.Rollup)
	}
	if set.shared != nil {
		t.Error("memory stores should not open a shared handle")
	}
}

func TestOpenStores_SharedDuckDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecosort.duckdb")
	duck := config.DuckDBConfig{Path: path, Threads: 1}
	cfg := &config.Config{
		RawStore:    config.RawStoreConfig{Driver: config.DriverDuckDB, DuckDB: duck},
		RollupStore: config.RollupStoreConfig{Driver: config.DriverDuckDB, DuckDB: duck, Table: "robot_stats_minute"},
	}

	ctx := context.Background()
	set, err := openStores(ctx, cfg)
	if err != nil {
		t.Fatalf("openStores() error = %v", err)
	}
	defer set.Close()

	if set.shared == nil {
		t.Fatal("expected a shared DuckDB handle")
	}
	if err := set.Raw.Ping(ctx); err != nil {
		t.Errorf("raw Ping() error = %v", err)
	}
	if err := set.Rollup.Ping(ctx); err != nil {
		t.Errorf("rollup Ping() error = %v", err)
	}
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	cfg := &config.Config{
		RawStore:    config.RawStoreConfig{Driver: "cassandra"},
		RollupStore: config.RollupStoreConfig{Driver: config.DriverMemory},
	}
	if _, err := openStores(context.Background(), cfg); err == nil {
		t.Fatal("openStores() should fail for an unknown raw driver")
	}
}

func TestStartEmbeddedBrokers_NATSRewritesURL(t *testing.T) {
	cfg := &config.Config{Channel: config.ChannelConfig{
		Driver: config.DriverNATS,
		NATS: config.NATSConfig{
			URL:            "nats://unused:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           -1,
		},
	}}

	b, err := startEmbeddedBrokers(cfg)
	if err != nil {
		t.Fatalf("startEmbeddedBrokers() error = %v", err)
	}
	defer b.Close()

	if b.nats == nil || !b.nats.IsRunning() {
		t.Fatal("embedded NATS server not running")
	}
	if cfg.Channel.NATS.URL != b.nats.ClientURL() {
		t.Errorf("NATS URL = %q, want %q", cfg.Channel.NATS.URL, b.nats.ClientURL())
	}
}

func TestStartEmbeddedBrokers_Disabled(t *testing.T) {
	cfg := &config.Config{Channel: config.ChannelConfig{Driver: config.DriverMQTT}}
	b, err := startEmbeddedBrokers(cfg)
	if err != nil {
		t.Fatalf("startEmbeddedBrokers() error = %v", err)
	}
	if b.mqtt != nil || b.nats != nil {
		t.Error("no broker should start when disabled")
	}
	b.Close()
}

func TestRun_ReturnsAfterCancel(t *testing.T) {
	cfg := &config.Config{
		Channel: config.ChannelConfig{
			Driver:          config.DriverNATS,
			Namespace:       "plant",
			ReconnectPeriod: 100 * time.Millisecond,
			NATS: config.NATSConfig{
				EmbeddedServer: true,
				Host:           "127.0.0.1",
				Port:           -1,
			},
		},
		RawStore:    config.RawStoreConfig{Driver: config.DriverMemory},
		RollupStore: config.RollupStoreConfig{Driver: config.DriverMemory, Table: "robot_stats_minute"},
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			Timeout:         5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}
}
