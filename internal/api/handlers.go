// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package api

import (
	"context"
	"time"

	"github.com/tomtom215/ecosort/internal/channel"
	"github.com/tomtom215/ecosort/internal/query"
	"github.com/tomtom215/ecosort/internal/telemetry"
	ws "github.com/tomtom215/ecosort/internal/websocket"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "ecosort-backend"

// QueryEngine answers the windowed statistics queries.
type QueryEngine interface {
	Overview(ctx context.Context, w query.Window) (*query.Overview, error)
	RobotSeries(ctx context.Context, robotID string, w query.Window) (*query.RobotSeries, error)
}

// RecentReader lists the newest raw records.
type RecentReader interface {
	Recent(ctx context.Context, limit int) ([]telemetry.Record, error)
}

// CommandSender publishes robot commands on a best-effort basis.
type CommandSender interface {
	Send(ctx context.Context, robotID string, command any) bool
}

// Pinger is a store that can report its availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StateReporter exposes the channel connection state.
type StateReporter interface {
	State() channel.State
}

// Deps are the collaborators of the handlers. Hub and Channel may be nil.
type Deps struct {
	Engine      QueryEngine
	Recent      RecentReader
	Commands    CommandSender
	RawStore    Pinger
	RollupStore Pinger
	Channel     StateReporter
	Hub         *ws.Hub

	Version     string
	Environment string
	CORSOrigins []string

	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// Handler holds the HTTP handlers.
type Handler struct {
	engine      QueryEngine
	recent      RecentReader
	commands    CommandSender
	rawStore    Pinger
	rollupStore Pinger
	channel     StateReporter
	wsHub       *ws.Hub

	version     string
	environment string
	corsOrigins []string
	now         func() time.Time
	startTime   time.Time
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	version := d.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		engine:      d.Engine,
		recent:      d.Recent,
		commands:    d.Commands,
		rawStore:    d.RawStore,
		rollupStore: d.RollupStore,
		channel:     d.Channel,
		wsHub:       d.Hub,
		version:     version,
		environment: d.Environment,
		corsOrigins: d.CORSOrigins,
		now:         now,
		startTime:   now(),
	}
}
