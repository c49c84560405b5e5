// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ecosort/internal/ingest"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

var _ ingest.Observer = (*Hub)(nil)

// setupHub starts a hub that stops when the test ends.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// joinTestClient registers a connectionless client with the given outbox
// size.
func joinTestClient(t *testing.T, hub *Hub, robotID string, outbox int) *Client {
	t.Helper()
	c := newClient(hub, nil, robotID)
	c.outbox = make(chan []byte, outbox)
	hub.join <- c
	return c
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
}

type decoded struct {
	Type string           `json:"type"`
	Data telemetry.Record `json:"data"`
}

func receive(t *testing.T, c *Client) decoded {
	t.Helper()
	select {
	case payload := <-c.outbox:
		var msg decoded
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("bad frame %s: %v", payload, err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame received")
	}
	return decoded{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.outbox:
		t.Fatalf("unexpected frame %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitStopped(t *testing.T, c *Client) {
	t.Helper()
	select {
	case <-c.quit:
	case <-time.After(time.Second):
		t.Fatal("client was not stopped")
	}
}

func sampleRecord(robotID string) telemetry.Record {
	return telemetry.Record{
		ID:          "rec-1",
		RobotID:     robotID,
		Battery:     64,
		BinStatus:   map[string]any{"glass": "full"},
		SortedCount: 120,
		EventTime:   time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestHub_FanOutToAllClients(t *testing.T) {
	hub := setupHub(t)
	a := joinTestClient(t, hub, "", 8)
	b := joinTestClient(t, hub, "", 8)
	waitForClients(t, hub, 2)

	hub.OnTelemetry(sampleRecord("r7"))

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		if msg.Type != MessageTypeTelemetry {
			t.Errorf("type = %q, want %q", msg.Type, MessageTypeTelemetry)
		}
		if msg.Data.RobotID != "r7" || msg.Data.Battery != 64 {
			t.Errorf("record = %+v", msg.Data)
		}
	}
}

func TestHub_RobotFilter(t *testing.T) {
	hub := setupHub(t)
	all := joinTestClient(t, hub, "", 8)
	r1 := joinTestClient(t, hub, "r1", 8)
	waitForClients(t, hub, 2)

	hub.OnTelemetry(sampleRecord("r2"))
	hub.OnTelemetry(sampleRecord("r1"))

	if got := receive(t, all).Data.RobotID; got != "r2" {
		t.Errorf("unfiltered client got %q first, want r2", got)
	}
	if got := receive(t, all).Data.RobotID; got != "r1" {
		t.Errorf("unfiltered client got %q second, want r1", got)
	}
	if got := receive(t, r1).Data.RobotID; got != "r1" {
		t.Errorf("filtered client got %q, want r1", got)
	}
	expectNothing(t, r1)
}

func TestHub_LeaveStopsClient(t *testing.T) {
	hub := setupHub(t)
	c := joinTestClient(t, hub, "", 1)
	waitForClients(t, hub, 1)

	hub.leaveHub(c)
	waitForClients(t, hub, 0)
	waitStopped(t, c)

	// A second leave for the same client is a no-op.
	hub.leaveHub(c)
}

func TestHub_DisconnectsSlowClient(t *testing.T) {
	hub := setupHub(t)
	slow := joinTestClient(t, hub, "", 1)
	fast := joinTestClient(t, hub, "", 8)
	waitForClients(t, hub, 2)

	hub.OnTelemetry(sampleRecord("r1"))
	receive(t, fast)
	hub.OnTelemetry(sampleRecord("r1"))
	receive(t, fast)

	waitForClients(t, hub, 1)
	waitStopped(t, slow)
}

func TestClient_ReplyAfterDropDoesNotPanic(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil, "")
	hub.add(c)

	for i := 0; i < outboxSize; i++ {
		c.outbox <- []byte("{}")
	}
	hub.fanOut(frame{kind: MessageTypeTelemetry, payload: []byte("{}")})
	if hub.ClientCount() != 0 || !c.stopped() {
		t.Fatal("full client was not dropped")
	}

	// The read loop keeps running until the connection closes.
	c.handle(inbound{Type: MessageTypePing})
	c.handle(inbound{Type: MessageTypeSubscribe, RobotID: "r1"})

	hub.remove(c)
	c.stop()
}

func TestClient_ReplyAfterHubStop(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	c := joinTestClient(t, hub, "", 1)
	waitForClients(t, hub, 1)
	cancel()
	<-errCh
	waitStopped(t, c)

	for i := 0; i < 3; i++ {
		c.handle(inbound{Type: MessageTypePing})
	}
}

func TestHub_FilteredClientIsNotDroppedForOtherRobots(t *testing.T) {
	hub := setupHub(t)
	joinTestClient(t, hub, "r9", 1)
	waitForClients(t, hub, 1)

	for i := 0; i < 5; i++ {
		hub.OnTelemetry(sampleRecord("r1"))
	}
	time.Sleep(50 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Error("client following another robot was disconnected")
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(hub.frames)+10; i++ {
			hub.OnTelemetry(sampleRecord("r1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OnTelemetry blocked on a full queue")
	}
}

func TestHub_PublishUnencodable(t *testing.T) {
	hub := NewHub()
	hub.Publish("bad", "", make(chan int))
	if len(hub.frames) != 0 {
		t.Error("unencodable data should not be queued")
	}
}

func TestHub_RunWithContext_Shutdown(t *testing.T) {
	tests := []struct {
		name    string
		makeCtx func() (context.Context, context.CancelFunc)
		cancel  bool
		wantErr error
	}{
		{
			name:    "canceled",
			makeCtx: func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			cancel:  true,
			wantErr: context.Canceled,
		},
		{
			name: "deadline",
			makeCtx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 200*time.Millisecond)
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			ctx, cancel := tt.makeCtx()
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- hub.RunWithContext(ctx) }()

			c := joinTestClient(t, hub, "", 1)
			waitForClients(t, hub, 1)

			if tt.cancel {
				cancel()
			}

			select {
			case err := <-errCh:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RunWithContext() error = %v, want %v", err, tt.wantErr)
				}
			case <-time.After(time.Second):
				t.Fatal("hub did not stop")
			}

			if hub.ClientCount() != 0 {
				t.Errorf("clients left after shutdown: %d", hub.ClientCount())
			}
			waitStopped(t, c)

			left := make(chan struct{})
			go func() {
				hub.leaveHub(c)
				close(left)
			}()
			select {
			case <-left:
			case <-time.After(time.Second):
				t.Fatal("leaveHub blocked after shutdown")
			}

			if _, err := hub.Attach(nil, ""); !errors.Is(err, ErrHubStopped) {
				t.Errorf("Attach() after shutdown error = %v, want ErrHubStopped", err)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	payload, err := encode(MessageTypeTelemetry, sampleRecord("r7"))
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	want := `{"type":"telemetry","data":{"id":"rec-1","robot_id":"r7","battery":64,"bin_status":{"glass":"full"},"sorted_count":120,"low_confidence":0,"ts":"2025-03-14T09:30:00Z","ingested_at":"0001-01-01T00:00:00Z"}}`
	if string(payload) != want {
		t.Errorf("encode() =\n%s\nwant\n%s", payload, want)
	}
}
