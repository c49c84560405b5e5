// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package channel

import (
	"context"
	"fmt"
	"time"

	mochi "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/ecosort/internal/logging"
)

// EmbeddedMQTTBroker is an in-process mochi-mqtt broker that accepts every
// client. It is meant for development and single-node installs.
type EmbeddedMQTTBroker struct {
	server *mochi.Server
	addr   string
}

// NewEmbeddedMQTTBroker starts a broker listening on addr (host:port).
func NewEmbeddedMQTTBroker(addr string) (*EmbeddedMQTTBroker, error) {
	srv := mochi.New(&mochi.Options{
		InlineClient: true,
		Logger:       logging.NewSlogLogger("mqtt-broker"),
	})
	if err := srv.AddHook(new(auth.AllowHook), nil); err != nil {
		return nil, fmt.Errorf("add mqtt auth hook: %w", err)
	}

	tcp := listeners.NewTCP(listeners.Config{
		ID:      "ecosort-tcp",
		Type:    "tcp",
		Address: addr,
	})
	if err := srv.AddListener(tcp); err != nil {
		return nil, fmt.Errorf("add mqtt listener %s: %w", addr, err)
	}
	if err := srv.Serve(); err != nil {
		return nil, fmt.Errorf("start mqtt broker: %w", err)
	}

	logging.Info().Str("addr", addr).Msg("Embedded MQTT broker started")
	return &EmbeddedMQTTBroker{server: srv, addr: addr}, nil
}

// Addr returns the listen address.
func (b *EmbeddedMQTTBroker) Addr() string {
	return b.addr
}

// Close stops the broker and disconnects all clients.
func (b *EmbeddedMQTTBroker) Close() error {
	return b.server.Close()
}

// EmbeddedNATSServer wraps a core NATS server (no JetStream) with lifecycle
// management.
type EmbeddedNATSServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedNATSServer creates and starts an embedded NATS server. Port -1
// picks a random free port. It fails if the server is not ready within 30s.
func NewEmbeddedNATSServer(host string, port int) (*EmbeddedNATSServer, error) {
	opts := &server.Options{
		ServerName: "ecosort",
		Host:       host,
		Port:       port,
		JetStream:  false,
		NoSigs:     true,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	logging.Info().Str("url", ns.ClientURL()).Msg("Embedded NATS server started")
	return &EmbeddedNATSServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedNATSServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server, waiting for it to finish unless ctx ends first.
func (s *EmbeddedNATSServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// IsRunning returns server health status.
func (s *EmbeddedNATSServer) IsRunning() bool {
	return s.server.Running()
}
