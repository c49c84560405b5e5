// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomtom215/ecosort/internal/config"
)

func mqttConfig(addr string) config.ChannelConfig {
	return config.ChannelConfig{
		Driver:          config.DriverMQTT,
		Namespace:       "ecosort",
		ReconnectPeriod: 100 * time.Millisecond,
		MQTT: config.MQTTConfig{
			BrokerURL: "mqtt://" + addr,
			KeepAlive: 20 * time.Second,
		},
	}
}

func TestMQTTAdapter_SubscribeAndPublish(t *testing.T) {
	addr := freeAddr(t)
	broker, err := NewEmbeddedMQTTBroker(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Close() })

	recv := &collector{}
	sub := NewMQTTAdapter(mqttConfig(addr), recv.handle)
	require.NoError(t, sub.Connect(context.Background()))
	require.NoError(t, sub.Connect(context.Background()), "second Connect must be a no-op")
	t.Cleanup(func() { _ = sub.Close() })
	waitState(t, sub, StateConnected)

	pub := NewMQTTAdapter(mqttConfig(addr), nil)
	require.NoError(t, pub.Connect(context.Background()))
	t.Cleanup(func() { _ = pub.Close() })
	waitState(t, pub, StateConnected)

	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, "ecosort/r1/telemetry", []byte(`{"battery":90}`)))
	require.NoError(t, pub.Publish(ctx, "ecosort/r1/commands", []byte(`{"cmd":"stop"}`)))
	require.NoError(t, pub.Publish(ctx, "ecosort/r2/telemetry", []byte(`{"battery":10}`)))

	require.Eventually(t, func() bool { return len(recv.snapshot()) == 2 },
		5*time.Second, 20*time.Millisecond)

	topics := map[string]string{}
	for _, m := range recv.snapshot() {
		topics[m.topic] = m.payload
	}
	require.Equal(t, `{"battery":90}`, topics["ecosort/r1/telemetry"])
	require.Equal(t, `{"battery":10}`, topics["ecosort/r2/telemetry"])
	require.NotContains(t, topics, "ecosort/r1/commands")
}

func TestMQTTAdapter_PublishWhenDisconnected(t *testing.T) {
	a := NewMQTTAdapter(mqttConfig(freeAddr(t)), nil)
	err := a.Publish(context.Background(), "ecosort/r1/commands", []byte(`{}`))
	require.True(t, errors.Is(err, ErrNotConnected))
	require.Equal(t, StateDisconnected, a.State())
}

func TestMQTTAdapter_ReconnectsAfterBrokerRestart(t *testing.T) {
	addr := freeAddr(t)

	// No broker yet: the adapter keeps retrying.
	a := NewMQTTAdapter(mqttConfig(addr), nil)
	require.NoError(t, a.Connect(context.Background()))
	t.Cleanup(func() { _ = a.Close() })
	waitState(t, a, StateReconnecting)
	require.ErrorIs(t, a.Publish(context.Background(), "ecosort/r1/commands", nil), ErrNotConnected)

	broker, err := NewEmbeddedMQTTBroker(addr)
	require.NoError(t, err)
	waitState(t, a, StateConnected)

	require.NoError(t, broker.Close())
	waitState(t, a, StateReconnecting)

	broker, err = NewEmbeddedMQTTBroker(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = broker.Close() })
	waitState(t, a, StateConnected)
}

func TestMQTTAdapter_CloseStopsLoop(t *testing.T) {
	a := NewMQTTAdapter(mqttConfig(freeAddr(t)), nil)
	require.NoError(t, a.Connect(context.Background()))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	require.Equal(t, StateDisconnected, a.State())
	require.ErrorIs(t, a.Connect(context.Background()), ErrClosed)
}

func TestDialBroker_RejectsUnknownScheme(t *testing.T) {
	_, err := dialBroker(context.Background(), "ws://localhost:8080")
	require.Error(t, err)
}
