// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = (pongWait * 9) / 10
	maxFrameBytes = 4 * 1024
	outboxSize    = 256
)

var nextClientID atomic.Uint64

// inbound is a control frame sent by a dashboard.
type inbound struct {
	Type    string `json:"type"`
	RobotID string `json:"robot_id"`
}

// Client is one dashboard connection. It receives every frame whose robot
// matches its filter; an empty filter matches all robots.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	outbox chan []byte
	robot  atomic.Pointer[string]

	// quit is closed by the hub when it lets go of the client. outbox is
	// never closed, since the read loop may still queue replies.
	quit     chan struct{}
	quitOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, robotID string) *Client {
	c := &Client{
		id:     nextClientID.Add(1),
		hub:    hub,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		quit:   make(chan struct{}),
	}
	c.robot.Store(&robotID)
	return c
}

// ID returns the client's hub-unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// RobotFilter returns the robot the client follows, or "" for all.
func (c *Client) RobotFilter() string {
	return *c.robot.Load()
}

// stop releases the client from the hub. It is safe to call more than once.
func (c *Client) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
}

func (c *Client) stopped() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}

func (c *Client) wants(robotID string) bool {
	f := c.RobotFilter()
	return f == "" || f == robotID
}

// reply queues a control response without blocking the read loop.
func (c *Client) reply(kind string, data any) {
	frame, err := encode(kind, data)
	if err != nil {
		return
	}
	select {
	case <-c.quit:
	case c.outbox <- frame:
	default:
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)
	case MessageTypeSubscribe:
		if msg.RobotID != "" && !telemetry.ValidRobotSegment(msg.RobotID) {
			c.reply(MessageTypeError, map[string]string{"message": "invalid robot_id"})
			return
		}
		id := msg.RobotID
		c.robot.Store(&id)
		c.reply(MessageTypeSubscribed, map[string]string{"robot_id": id})
	}
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.leaveHub(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket closed unexpectedly")
			}
			return
		}
		var msg inbound
		if json.Unmarshal(data, &msg) != nil {
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		var (
			kind    = websocket.TextMessage
			payload []byte
		)
		select {
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case payload = <-c.outbox:
		case <-ticker.C:
			kind = websocket.PingMessage
		}

		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return
		}
		if err := c.conn.WriteMessage(kind, payload); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
			return
		}
	}
}

func (c *Client) start() {
	go c.writeLoop()
	go c.readLoop()
}
