// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package websocket

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// Frame types.
const (
	MessageTypeTelemetry  = "telemetry"
	MessageTypePing       = "ping"
	MessageTypePong       = "pong"
	MessageTypeSubscribe  = "subscribe"
	MessageTypeSubscribed = "subscribed"
	MessageTypeError      = "error"
)

// ErrHubStopped is returned by Attach once the hub has shut down.
var ErrHubStopped = errors.New("websocket hub stopped")

// Message is the JSON envelope of every frame.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// frame is a message encoded once and fanned out to every matching client.
type frame struct {
	kind    string
	robotID string
	payload []byte
}

// Hub owns the connected clients. All membership changes and fan-out happen
// on the goroutine running RunWithContext.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client

	join   chan *Client
	leave  chan *Client
	frames chan frame

	done     chan struct{}
	doneOnce sync.Once
}

// NewHub creates a hub. It does nothing until RunWithContext is called.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint64]*Client),
		join:    make(chan *Client),
		leave:   make(chan *Client),
		frames:  make(chan frame, 256),
		done:    make(chan struct{}),
	}
}

// RunWithContext serves the hub until ctx ends, then closes every client
// and returns ctx.Err().
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.stop(ctx)
			return ctx.Err()
		case c := <-h.join:
			h.add(c)
		case c := <-h.leave:
			h.remove(c)
		case f := <-h.frames:
			h.fanOut(f)
		}
	}
}

// Attach registers an upgraded connection and starts its pumps. robotID
// restricts the feed to one robot; "" follows all of them.
func (h *Hub) Attach(conn *websocket.Conn, robotID string) (*Client, error) {
	c := newClient(h, conn, robotID)
	select {
	case h.join <- c:
	case <-h.done:
		return nil, ErrHubStopped
	}
	c.start()
	return c, nil
}

// OnTelemetry queues rec for the live feed. It never blocks; a frame is
// dropped when the queue is full.
func (h *Hub) OnTelemetry(rec telemetry.Record) {
	h.Publish(MessageTypeTelemetry, rec.RobotID, rec)
}

// Publish encodes data once and queues it for clients following robotID.
// An empty robotID reaches every client.
func (h *Hub) Publish(kind, robotID string, data any) {
	payload, err := encode(kind, data)
	if err != nil {
		logging.Error().Err(err).Str("message_type", kind).Msg("failed to encode websocket frame")
		return
	}
	select {
	case h.frames <- frame{kind: kind, robotID: robotID, payload: payload}:
	default:
		logging.Warn().Str("message_type", kind).Msg("websocket queue full, dropping frame")
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(n))
	logging.Info().Uint64("client_id", c.id).Str("robot_filter", c.RobotFilter()).
		Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	if ok {
		delete(h.clients, c.id)
		c.stop()
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.WSConnections.Set(float64(n))
		logging.Info().Uint64("client_id", c.id).Int("total_clients", n).Msg("websocket client disconnected")
	}
}

// leaveHub is called by a client's read loop when its connection ends.
func (h *Hub) leaveHub(c *Client) {
	select {
	case h.leave <- c:
	case <-h.done:
	}
}

// fanOut delivers f in client id order. A client whose outbox is full is
// disconnected.
func (h *Hub) fanOut(f frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered, dropped := 0, 0
	for _, id := range h.sortedIDs() {
		c := h.clients[id]
		if !c.wants(f.robotID) {
			continue
		}
		select {
		case c.outbox <- f.payload:
			delivered++
		default:
			c.stop()
			delete(h.clients, id)
			dropped++
		}
	}

	if delivered > 0 {
		metrics.WSMessagesSent.WithLabelValues(f.kind).Add(float64(delivered))
	}
	if dropped > 0 {
		metrics.WSClientsDropped.Add(float64(dropped))
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().Int("dropped", dropped).Msg("disconnected slow websocket clients")
	}
}

func (h *Hub) stop(ctx context.Context) {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	n := len(h.clients)
	for id, c := range h.clients {
		c.stop()
		delete(h.clients, id)
	}
	h.mu.Unlock()
	metrics.WSConnections.Set(0)

	reason := "canceled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "deadline"
	}
	logging.Info().Str("component", "websocket-hub").Str("reason", reason).
		Int("clients_closed", n).Msg("websocket hub stopped")
}

// sortedIDs lists client ids in ascending order. Caller holds h.mu.
func (h *Hub) sortedIDs() []uint64 {
	ids := make([]uint64, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func encode(kind string, data any) ([]byte, error) {
	return json.Marshal(Message{Type: kind, Data: data})
}
