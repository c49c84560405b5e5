// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package channel

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQoS            = 1
)

// MQTTAdapter is an MQTT v5 client built on paho.golang. Each connection
// attempt creates a fresh paho client with a clean session and resubscribes.
type MQTTAdapter struct {
	cfg     config.MQTTConfig
	period  time.Duration
	scheme  telemetry.TopicScheme
	handler Handler
	state   *stateBox

	mu     sync.Mutex
	client *paho.Client
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

// NewMQTTAdapter creates an unconnected adapter.
func NewMQTTAdapter(cfg config.ChannelConfig, handler Handler) *MQTTAdapter {
	mc := cfg.MQTT
	if mc.ClientID == "" {
		mc.ClientID = "ecosort-" + uuid.NewString()[:8]
	}
	return &MQTTAdapter{
		cfg:     mc,
		period:  cfg.ReconnectPeriod,
		scheme:  telemetry.MQTTScheme(cfg.Namespace),
		handler: handler,
		state:   newStateBox(config.DriverMQTT),
	}
}

// Connect implements Adapter.
func (a *MQTTAdapter) Connect(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	if a.done != nil {
		return nil
	}

	// The loop outlives the caller's context; Close stops it.
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx)
	return nil
}

func (a *MQTTAdapter) run(ctx context.Context) {
	defer close(a.done)
	defer a.state.set(StateDisconnected)

	a.state.set(StateConnecting)
	for {
		err := a.session(ctx)
		if ctx.Err() != nil {
			return
		}
		a.state.set(StateReconnecting)
		logging.Warn().Err(err).
			Str("broker", a.cfg.BrokerURL).
			Dur("retry_in", a.period).
			Msg("MQTT connection lost, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.period):
		}
		metrics.RecordChannelReconnect(config.DriverMQTT)
	}
}

// session runs one connection until it fails or ctx is canceled.
func (a *MQTTAdapter) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()

	conn, err := dialBroker(dialCtx, a.cfg.BrokerURL)
	if err != nil {
		return err
	}

	lost := make(chan error, 1)
	signal := func(err error) {
		select {
		case lost <- err:
		default:
		}
	}

	cli := paho.NewClient(paho.ClientConfig{
		ClientID: a.cfg.ClientID,
		Conn:     conn,
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			func(pr paho.PublishReceived) (bool, error) {
				a.dispatch(ctx, pr.Packet.Topic, pr.Packet.Payload)
				return true, nil
			},
		},
		OnClientError: func(err error) {
			signal(err)
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			signal(fmt.Errorf("server disconnect, reason code %d", d.ReasonCode))
		},
	})

	connect := &paho.Connect{
		ClientID:     a.cfg.ClientID,
		CleanStart:   true,
		KeepAlive:    uint16(a.cfg.KeepAlive.Seconds()),
		Username:     a.cfg.Username,
		UsernameFlag: a.cfg.Username != "",
		Password:     []byte(a.cfg.Password),
		PasswordFlag: a.cfg.Password != "",
	}
	if _, err := cli.Connect(dialCtx, connect); err != nil {
		_ = conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}

	filter := a.scheme.TelemetryFilter()
	ack, err := cli.Subscribe(dialCtx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: filter, QoS: mqttQoS}},
	})
	if err == nil && ack != nil {
		for _, code := range ack.Reasons {
			if code >= 0x80 {
				err = fmt.Errorf("suback reason code %d", code)
			}
		}
	}
	if err != nil {
		_ = cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return fmt.Errorf("mqtt subscribe %s: %w", filter, err)
	}

	a.setClient(cli)
	a.state.set(StateConnected)
	logging.Info().Str("broker", a.cfg.BrokerURL).Str("filter", filter).Msg("MQTT subscribed")

	select {
	case err := <-lost:
		a.setClient(nil)
		return err
	case <-ctx.Done():
		a.setClient(nil)
		_ = cli.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return nil
	}
}

func (a *MQTTAdapter) dispatch(ctx context.Context, topic string, payload []byte) {
	if a.handler == nil {
		return
	}
	body := make([]byte, len(payload))
	copy(body, payload)
	go a.handler(ctx, topic, body)
}

func (a *MQTTAdapter) setClient(c *paho.Client) {
	a.mu.Lock()
	a.client = c
	a.mu.Unlock()
}

func (a *MQTTAdapter) currentClient() *paho.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

// Publish implements Adapter with a QoS 1 publish.
func (a *MQTTAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	cli := a.currentClient()
	if cli == nil || a.state.get() != StateConnected {
		return ErrNotConnected
	}
	resp, err := cli.Publish(ctx, &paho.Publish{
		QoS:     mqttQoS,
		Retain:  false,
		Topic:   topic,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	if resp != nil && resp.ReasonCode >= 0x80 {
		return fmt.Errorf("mqtt publish %s: reason code %d", topic, resp.ReasonCode)
	}
	return nil
}

// State implements Adapter.
func (a *MQTTAdapter) State() State { return a.state.get() }

// Scheme implements Adapter.
func (a *MQTTAdapter) Scheme() telemetry.TopicScheme { return a.scheme }

// Close stops the connection loop and disconnects.
func (a *MQTTAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	cancel, done := a.cancel, a.done
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// dialBroker opens the transport for mqtt://, tcp://, mqtts://, ssl:// and
// tls:// URLs.
func dialBroker(ctx context.Context, rawURL string) (net.Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse broker url: %w", err)
	}

	secure := false
	port := "1883"
	switch u.Scheme {
	case "mqtt", "tcp":
	case "mqtts", "ssl", "tls":
		secure = true
		port = "8883"
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	if p := u.Port(); p != "" {
		port = p
	}
	addr := net.JoinHostPort(u.Hostname(), port)

	if secure {
		d := tls.Dialer{Config: &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return packets.NewThreadSafeConn(conn), nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return packets.NewThreadSafeConn(conn), nil
}
