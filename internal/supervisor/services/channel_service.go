// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/ecosort/internal/logging"
)

// ChannelConnector is the lifecycle part of channel.Adapter.
type ChannelConnector interface {
	Connect(ctx context.Context) error
	Close() error
}

// ChannelService connects the channel adapter and closes it on shutdown.
// The adapter reconnects on its own; the supervisor only restarts the
// service when Connect itself fails.
type ChannelService struct {
	adapter ChannelConnector
	name    string
}

// NewChannelService wraps adapter. driver names the service in logs.
func NewChannelService(adapter ChannelConnector, driver string) *ChannelService {
	return &ChannelService{
		adapter: adapter,
		name:    "channel-" + driver,
	}
}

// Serve implements suture.Service. A closed adapter cannot be reopened, so
// Serve is not restartable after a clean shutdown; the tree only stops it
// once, at process exit.
func (c *ChannelService) Serve(ctx context.Context) error {
	if err := c.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("%s connect: %w", c.name, err)
	}

	<-ctx.Done()

	if err := c.adapter.Close(); err != nil {
		logging.Warn().Err(err).Str("service", c.name).Msg("Channel close failed")
	}
	return ctx.Err()
}

func (c *ChannelService) String() string {
	return c.name
}
