// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tomtom215/ecosort/internal/logging"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateChannel(); err != nil {
		return err
	}
	if err := c.validateRawStore(); err != nil {
		return err
	}
	if err := c.validateRollupStore(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateChannel() error {
	ch := c.Channel
	if ch.Namespace == "" {
		return fmt.Errorf("TOPIC_NAMESPACE must not be empty")
	}
	if strings.ContainsAny(ch.Namespace, "/.+*#> ") {
		return fmt.Errorf("TOPIC_NAMESPACE must be a single topic segment, got %q", ch.Namespace)
	}
	if ch.ReconnectPeriod <= 0 {
		return fmt.Errorf("CHANNEL_RECONNECT_PERIOD must be positive, got %v", ch.ReconnectPeriod)
	}

	switch ch.Driver {
	case DriverMQTT:
		return c.validateMQTT()
	case DriverNATS:
		return c.validateNATS()
	default:
		return fmt.Errorf("CHANNEL_DRIVER must be %q or %q, got %q", DriverMQTT, DriverNATS, ch.Driver)
	}
}

func (c *Config) validateMQTT() error {
	m := c.Channel.MQTT
	if m.BrokerURL == "" {
		return fmt.Errorf("MQTT_BROKER_URL is required when CHANNEL_DRIVER=mqtt")
	}
	if err := validateBrokerURL(m.BrokerURL, "MQTT_BROKER_URL", "mqtt", "tcp", "mqtts", "ssl", "tls"); err != nil {
		return err
	}
	if m.KeepAlive < 0 {
		return fmt.Errorf("MQTT_KEEP_ALIVE must not be negative")
	}
	if m.Password != "" && m.Username == "" {
		return fmt.Errorf("MQTT_PASSWORD requires MQTT_USERNAME")
	}
	if m.EmbeddedBroker && m.EmbeddedAddr == "" {
		return fmt.Errorf("MQTT_EMBEDDED_ADDR is required when MQTT_EMBEDDED_BROKER=true")
	}
	return nil
}

func (c *Config) validateNATS() error {
	n := c.Channel.NATS
	if n.URL == "" {
		return fmt.Errorf("NATS_URL is required when CHANNEL_DRIVER=nats")
	}
	if err := validateBrokerURL(n.URL, "NATS_URL", "nats", "tls"); err != nil {
		return err
	}
	if n.EmbeddedServer && (n.Port < 1 || n.Port > 65535) {
		return fmt.Errorf("NATS_PORT must be between 1 and 65535, got %d", n.Port)
	}
	if n.SubscribersCount < 1 {
		return fmt.Errorf("NATS_SUBSCRIBERS_COUNT must be at least 1, got %d", n.SubscribersCount)
	}
	if n.SubscribersCount > 1 && n.QueueGroup == "" {
		return fmt.Errorf("NATS_QUEUE_GROUP is required when NATS_SUBSCRIBERS_COUNT > 1")
	}
	return nil
}

func (c *Config) validateRawStore() error {
	r := c.RawStore
	switch r.Driver {
	case DriverDuckDB:
		if r.DuckDB.Path == "" {
			return fmt.Errorf("RAW_DUCKDB_PATH is required when RAW_STORE_DRIVER=duckdb")
		}
	case DriverMongo:
		if r.Mongo.URL == "" {
			return fmt.Errorf("MONGODB_URL is required when RAW_STORE_DRIVER=mongo")
		}
		if !strings.HasPrefix(r.Mongo.URL, "mongodb://") && !strings.HasPrefix(r.Mongo.URL, "mongodb+srv://") {
			return fmt.Errorf("MONGODB_URL must start with mongodb:// or mongodb+srv://")
		}
		if r.Mongo.Database == "" || r.Mongo.Collection == "" {
			return fmt.Errorf("MONGO_DB and MONGO_COLLECTION must not be empty")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("RAW_STORE_DRIVER must be duckdb, mongo or memory, got %q", r.Driver)
	}
	return nil
}

func (c *Config) validateRollupStore() error {
	r := c.RollupStore
	if r.Table == "" {
		return fmt.Errorf("ROLLUP_TABLE must not be empty")
	}
	if r.KeepaliveInterval < 0 {
		return fmt.Errorf("STORE_KEEPALIVE_INTERVAL must not be negative")
	}
	switch r.Driver {
	case DriverPostgres:
		if r.Postgres.DSN == "" {
			return fmt.Errorf("POSTGRES_URL is required when ROLLUP_STORE_DRIVER=postgres")
		}
		if r.Postgres.MaxOpenConns < 1 {
			return fmt.Errorf("POSTGRES_MAX_OPEN_CONNS must be at least 1")
		}
	case DriverDuckDB:
		if r.DuckDB.Path == "" {
			return fmt.Errorf("ROLLUP_DUCKDB_PATH is required when ROLLUP_STORE_DRIVER=duckdb")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("ROLLUP_STORE_DRIVER must be postgres, duckdb or memory, got %q", r.Driver)
	}
	return nil
}

func (c *Config) validateIngest() error {
	cb := c.Ingest.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	if cb.FailureThreshold == 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_FAILURES must be at least 1")
	}
	if cb.Timeout <= 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateBrokerURL checks a broker URL has an allowed scheme and a host.
func validateBrokerURL(rawURL, fieldName string, schemes ...string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s scheme must be one of %s, got: %q", fieldName, strings.Join(schemes, ", "), u.Scheme)
}
