// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables.
//
// Configuration Categories:
//
//  1. Channel: pub/sub transport (MQTT or NATS), topic namespace, reconnect policy
//  2. Stores: raw telemetry log (DuckDB or MongoDB) and per-minute rollups
//     (PostgreSQL or DuckDB)
//  3. Ingest: per-sink circuit breakers
//  4. Server: HTTP API settings
//  5. Logging: log level and output format
type Config struct {
	Channel     ChannelConfig     `koanf:"channel"`
	RawStore    RawStoreConfig    `koanf:"raw_store"`
	RollupStore RollupStoreConfig `koanf:"rollup_store"`
	Ingest      IngestConfig      `koanf:"ingest"`
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// Channel drivers.
const (
	DriverMQTT = "mqtt"
	DriverNATS = "nats"
)

// Store drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ChannelConfig selects and configures the telemetry/command transport.
type ChannelConfig struct {
	// Driver is "mqtt" or "nats".
	Driver string `koanf:"driver"`

	// Namespace is the first topic segment: {namespace}/{robot_id}/telemetry.
	Namespace string `koanf:"namespace"`

	// ReconnectPeriod is the fixed back-off between connection attempts.
	ReconnectPeriod time.Duration `koanf:"reconnect_period"`

	MQTT MQTTConfig `koanf:"mqtt"`
	NATS NATSConfig `koanf:"nats"`
}

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	BrokerURL string        `koanf:"broker_url"`
	Username  string        `koanf:"username"`
	Password  string        `koanf:"password"`
	ClientID  string        `koanf:"client_id"`
	KeepAlive time.Duration `koanf:"keep_alive"`

	// EmbeddedBroker starts an in-process mochi-mqtt broker on EmbeddedAddr.
	// BrokerURL should then point at that address.
	EmbeddedBroker bool   `koanf:"embedded_broker"`
	EmbeddedAddr   string `koanf:"embedded_addr"`
}

// NATSConfig holds core NATS settings. JetStream is not used.
type NATSConfig struct {
	URL string `koanf:"url"`

	// EmbeddedServer starts an in-process nats-server on Host:Port.
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`

	// QueueGroup load-balances telemetry across service replicas.
	// Empty means every replica receives every message.
	QueueGroup       string `koanf:"queue_group"`
	SubscribersCount int    `koanf:"subscribers_count"`
}

// RawStoreConfig configures the append-only raw telemetry log.
type RawStoreConfig struct {
	// Driver is "duckdb", "mongo" or "memory".
	Driver string       `koanf:"driver"`
	DuckDB DuckDBConfig `koanf:"duckdb"`
	Mongo  MongoConfig  `koanf:"mongo"`
}

// RollupStoreConfig configures the per-minute rollup table.
type RollupStoreConfig struct {
	// Driver is "postgres", "duckdb" or "memory".
	Driver   string         `koanf:"driver"`
	Postgres PostgresConfig `koanf:"postgres"`
	DuckDB   DuckDBConfig   `koanf:"duckdb"`
	Table    string         `koanf:"table"`

	// KeepaliveInterval is how often both stores are pinged to keep pooled
	// connections warm. Zero disables the keepalive service.
	KeepaliveInterval time.Duration `koanf:"keepalive_interval"`
}

// DuckDBConfig holds DuckDB database settings.
type DuckDBConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// MongoConfig holds MongoDB settings for the raw store.
type MongoConfig struct {
	URL                    string        `koanf:"url"`
	Database               string        `koanf:"database"`
	Collection             string        `koanf:"collection"`
	MaxPoolSize            uint64        `koanf:"max_pool_size"`
	ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
}

// PostgresConfig holds PostgreSQL settings for the rollup store.
type PostgresConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// IngestConfig holds ingest pipeline settings.
type IngestConfig struct {
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig configures the per-sink gobreaker.
// An open breaker fails writes fast; failures are logged, never retried.
type CircuitBreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SharedDuckDB reports whether the raw and rollup stores should share one
// DuckDB handle. DuckDB allows a single read-write process per file.
func (c *Config) SharedDuckDB() bool {
	return c.RawStore.Driver == DriverDuckDB &&
		c.RollupStore.Driver == DriverDuckDB &&
		c.RawStore.DuckDB.Path == c.RollupStore.DuckDB.Path
}
