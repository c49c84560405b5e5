// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// SubjectMetadataKey holds the concrete NATS subject of a received message.
const SubjectMetadataKey = "nats_subject"

// rawMarshaler sends the payload as-is, without Watermill headers, so that
// robots receive plain JSON commands.
type rawMarshaler struct{}

func (rawMarshaler) Marshal(topic string, msg *message.Message) (*natsgo.Msg, error) {
	return &natsgo.Msg{Subject: topic, Data: msg.Payload}, nil
}

// Unmarshal wraps a device message. Devices do not send Watermill headers,
// so a message UUID is generated and the subject is kept in metadata.
func (rawMarshaler) Unmarshal(m *natsgo.Msg) (*message.Message, error) {
	msg := message.NewMessage(watermill.NewUUID(), m.Data)
	msg.Metadata.Set(SubjectMetadataKey, m.Subject)
	return msg, nil
}

// NATSAdapter is a core NATS channel built on Watermill. JetStream is not
// used: delivery is at-most-once and nothing is buffered while disconnected.
type NATSAdapter struct {
	cfg     config.NATSConfig
	period  time.Duration
	scheme  telemetry.TopicScheme
	handler Handler
	state   *stateBox
	logger  watermill.LoggerAdapter

	mu     sync.Mutex
	conn   *natsgo.Conn
	pub    *wmNats.Publisher
	sub    *wmNats.Subscriber
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewNATSAdapter creates an unconnected adapter.
func NewNATSAdapter(cfg config.ChannelConfig, handler Handler) *NATSAdapter {
	return &NATSAdapter{
		cfg:     cfg.NATS,
		period:  cfg.ReconnectPeriod,
		scheme:  telemetry.NATSScheme(cfg.Namespace),
		handler: handler,
		state:   newStateBox(config.DriverNATS),
		logger:  logging.NewWatermillAdapter(logging.WithComponent("channel.nats")),
	}
}

// Connect implements Adapter. The NATS client keeps reconnecting on its own
// (MaxReconnects(-1)), so only the first call does any work.
func (a *NATSAdapter) Connect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.conn != nil {
		return nil
	}

	a.state.set(StateConnecting)
	nc, err := natsgo.Connect(a.cfg.URL,
		natsgo.Name("ecosort-"+uuid.NewString()[:8]),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(a.period),
		natsgo.ReconnectBufSize(-1),
		natsgo.ConnectHandler(func(nc *natsgo.Conn) {
			a.state.set(StateConnected)
		}),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if a.state.get() == StateDisconnected {
				return
			}
			a.state.set(StateReconnecting)
			metrics.RecordChannelReconnect(config.DriverNATS)
			if err != nil {
				logging.Warn().Err(err).Str("url", a.cfg.URL).Msg("NATS connection lost, retrying")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			a.state.set(StateConnected)
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ClosedHandler(func(nc *natsgo.Conn) {
			a.state.set(StateDisconnected)
		}),
	)
	if err != nil {
		a.state.set(StateDisconnected)
		return fmt.Errorf("nats connect: %w", err)
	}
	if nc.IsConnected() {
		a.state.set(StateConnected)
	}

	pub, err := wmNats.NewPublisherWithNatsConn(nc, wmNats.PublisherPublishConfig{
		Marshaler: rawMarshaler{},
		JetStream: wmNats.JetStreamConfig{Disabled: true},
	}, a.logger)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create watermill publisher: %w", err)
	}

	// Without a queue group every subscriber receives every message, so more
	// than one would duplicate work.
	count := a.cfg.SubscribersCount
	if count < 1 || a.cfg.QueueGroup == "" {
		count = 1
	}
	sub, err := wmNats.NewSubscriberWithNatsConn(nc, wmNats.SubscriberSubscriptionConfig{
		Unmarshaler:      rawMarshaler{},
		QueueGroupPrefix: a.cfg.QueueGroup,
		SubscribersCount: count,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     10 * time.Second,
		SubscribeTimeout: 30 * time.Second,
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, a.logger)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create watermill subscriber: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	filter := a.scheme.TelemetryFilter()
	messages, err := sub.Subscribe(ctx, filter)
	if err != nil {
		cancel()
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", filter, err)
	}

	a.conn, a.pub, a.sub, a.cancel = nc, pub, sub, cancel
	a.done = make(chan struct{})
	go a.consume(ctx, messages)

	logging.Info().Str("url", a.cfg.URL).Str("filter", filter).Msg("NATS subscribed")
	return nil
}

func (a *NATSAdapter) consume(ctx context.Context, messages <-chan *message.Message) {
	defer close(a.done)
	for msg := range messages {
		// Core NATS has no redelivery; ack at once so the next message is
		// not held behind this one.
		msg.Ack()
		if a.handler != nil {
			go a.handler(ctx, msg.Metadata.Get(SubjectMetadataKey), msg.Payload)
		}
	}
}

// Publish implements Adapter. The flush waits for the server to confirm it
// received the message.
func (a *NATSAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	a.mu.Lock()
	nc, pub := a.conn, a.pub
	a.mu.Unlock()

	if nc == nil || a.state.get() != StateConnected {
		return ErrNotConnected
	}
	if err := pub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		return fmt.Errorf("nats publish %s: %w", topic, err)
	}
	if err := nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("nats flush %s: %w", topic, err)
	}
	return nil
}

// State implements Adapter.
func (a *NATSAdapter) State() State { return a.state.get() }

// Scheme implements Adapter.
func (a *NATSAdapter) Scheme() telemetry.TopicScheme { return a.scheme }

// Close drains the subscription and closes the connection.
func (a *NATSAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	nc, pub, sub, cancel, done := a.conn, a.pub, a.sub, a.cancel, a.done
	a.mu.Unlock()

	if nc == nil {
		return nil
	}

	cancel()
	var firstErr error
	if err := sub.Close(); err != nil {
		firstErr = err
	}
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logging.Warn().Msg("NATS consumer did not stop within 10s")
	}
	if err := pub.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	a.state.set(StateDisconnected)
	nc.Close()
	return firstErr
}
