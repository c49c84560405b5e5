// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package command sends operator commands to robots over the telemetry
// channel.
package command

import (
	"context"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ecosort/internal/channel"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// Publish results recorded in metrics.
const (
	ResultSent           = "sent"
	ResultNotConnected   = "not_connected"
	ResultEncodeError    = "encode_error"
	ResultInvalidRobotID = "invalid_robot_id"
	ResultPublishError   = "publish_error"
)

// DefaultPublishTimeout bounds one publish when the caller's context has no
// deadline.
const DefaultPublishTimeout = 5 * time.Second

// Transport is the subset of channel.Adapter the publisher needs.
type Transport interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	State() channel.State
	Scheme() telemetry.TopicScheme
}

// Publisher sends best-effort commands. A command is either handed to the
// broker or dropped with a warning; nothing is queued.
type Publisher struct {
	transport Transport
	timeout   time.Duration
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTimeout overrides DefaultPublishTimeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPublisher creates a Publisher over transport.
func NewPublisher(transport Transport, opts ...Option) *Publisher {
	p := &Publisher{transport: transport, timeout: DefaultPublishTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Send serializes command as JSON and publishes it to the robot's command
// topic. It reports whether the broker accepted the message. Failures are
// logged and counted, never returned.
func (p *Publisher) Send(ctx context.Context, robotID string, command any) bool {
	ctx = logging.ContextWithRobotID(ctx, robotID)
	log := logging.Ctx(ctx)

	if !telemetry.ValidRobotSegment(robotID) {
		log.Warn().Msg("Command dropped: robot id is not a valid topic segment")
		metrics.RecordCommandPublish(ResultInvalidRobotID)
		return false
	}

	if p.transport.State() != channel.StateConnected {
		log.Warn().Str("state", p.transport.State().String()).Msg("Channel not connected, command not sent")
		metrics.RecordCommandPublish(ResultNotConnected)
		return false
	}

	payload, err := json.Marshal(command)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode command")
		metrics.RecordCommandPublish(ResultEncodeError)
		return false
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	topic := p.transport.Scheme().CommandTopic(robotID)
	if err := p.transport.Publish(ctx, topic, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("Failed to publish command")
		metrics.RecordCommandPublish(ResultPublishError)
		return false
	}

	log.Info().Str("topic", topic).Int("bytes", len(payload)).Msg("Command published")
	metrics.RecordCommandPublish(ResultSent)
	return true
}
