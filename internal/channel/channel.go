// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package channel owns the publish/subscribe connection to the robots.
//
// An Adapter subscribes to the telemetry pattern of its TopicScheme and
// hands every matching message to a Handler on its own goroutine, so a slow
// store never stalls the receive loop. Connections are retried forever with
// a fixed back-off. Nothing is queued while disconnected: telemetry sent
// during an outage is lost, and Publish fails fast with ErrNotConnected.
//
// Two transports are provided, MQTT (paho.golang) and core NATS (Watermill
// over nats.go), each with an optional embedded broker for single-node
// deployments.
package channel

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// ErrNotConnected is returned by Publish while the adapter has no live
// connection.
var ErrNotConnected = errors.New("channel not connected")

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("channel closed")

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Handler receives one inbound message. It is called concurrently.
type Handler func(ctx context.Context, topic string, payload []byte)

// Adapter is a connection to the messaging broker.
type Adapter interface {
	// Connect starts the connection loop. Calling it again while the loop
	// is running is a no-op.
	Connect(ctx context.Context) error

	// Publish sends payload on topic with at-least-once delivery to the
	// broker. It is never retained.
	Publish(ctx context.Context, topic string, payload []byte) error

	State() State
	Scheme() telemetry.TopicScheme
	Close() error
}

// New builds the adapter selected by cfg.Driver.
func New(cfg config.ChannelConfig, handler Handler) (Adapter, error) {
	switch cfg.Driver {
	case config.DriverMQTT:
		return NewMQTTAdapter(cfg, handler), nil
	case config.DriverNATS:
		return NewNATSAdapter(cfg, handler), nil
	default:
		return nil, fmt.Errorf("unknown channel driver %q", cfg.Driver)
	}
}

// stateBox holds the adapter state and mirrors it into logs and metrics.
type stateBox struct {
	v      atomic.Int32
	driver string
}

func newStateBox(driver string) *stateBox {
	b := &stateBox{driver: driver}
	metrics.SetChannelState(driver, int(StateDisconnected))
	return b
}

func (b *stateBox) get() State {
	return State(b.v.Load())
}

func (b *stateBox) set(s State) {
	prev := State(b.v.Swap(int32(s)))
	if prev == s {
		return
	}
	metrics.SetChannelState(b.driver, int(s))
	logging.Info().
		Str("driver", b.driver).
		Str("from", prev.String()).
		Str("to", s.String()).
		Msg("Channel state changed")
}
