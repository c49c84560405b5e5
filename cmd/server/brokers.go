// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package main

import (
	"context"
	"time"

	"github.com/tomtom215/ecosort/internal/channel"
	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
)

// embeddedBrokers holds the in-process brokers started for the channel.
// At most one is set.
type embeddedBrokers struct {
	mqtt *channel.EmbeddedMQTTBroker
	nats *channel.EmbeddedNATSServer
}

// startEmbeddedBrokers starts the broker the channel driver asks for, if
// any. For NATS the client URL is pointed at the embedded server.
func startEmbeddedBrokers(cfg *config.Config) (*embeddedBrokers, error) {
	b := &embeddedBrokers{}

	switch cfg.Channel.Driver {
	case config.DriverMQTT:
		if !cfg.Channel.MQTT.EmbeddedBroker {
			return b, nil
		}
		broker, err := channel.NewEmbeddedMQTTBroker(cfg.Channel.MQTT.EmbeddedAddr)
		if err != nil {
			return nil, err
		}
		b.mqtt = broker
		logging.Info().Str("addr", broker.Addr()).Msg("Embedded MQTT broker started")

	case config.DriverNATS:
		if !cfg.Channel.NATS.EmbeddedServer {
			return b, nil
		}
		srv, err := channel.NewEmbeddedNATSServer(cfg.Channel.NATS.Host, cfg.Channel.NATS.Port)
		if err != nil {
			return nil, err
		}
		b.nats = srv
		cfg.Channel.NATS.URL = srv.ClientURL()
	}
	return b, nil
}

// Close stops whichever broker is running.
func (b *embeddedBrokers) Close() {
	if b.mqtt != nil {
		if err := b.mqtt.Close(); err != nil {
			logging.Error().Err(err).Msg("Error stopping embedded MQTT broker")
		}
	}
	if b.nats != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := b.nats.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
