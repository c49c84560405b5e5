// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package services

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/ecosort/internal/logging"
)

// pingTimeout bounds a single keep-alive ping.
const pingTimeout = 5 * time.Second

// Pinger is a store with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeepaliveService pings every store on a fixed interval so pooled
// connections stay warm. Failures are logged and never stop the service.
type KeepaliveService struct {
	stores   map[string]Pinger
	names    []string
	interval time.Duration
	name     string

	// onPing, when set, observes each result. Tests use it.
	onPing func(store string, err error)
}

// NewKeepaliveService pings stores every interval.
func NewKeepaliveService(stores map[string]Pinger, interval time.Duration) *KeepaliveService {
	names := make([]string, 0, len(stores))
	for n := range stores {
		names = append(names, n)
	}
	sort.Strings(names)
	return &KeepaliveService{
		stores:   stores,
		names:    names,
		interval: interval,
		name:     "store-keepalive",
	}
}

// Serve implements suture.Service.
func (k *KeepaliveService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			k.pingAll(ctx)
		}
	}
}

func (k *KeepaliveService) pingAll(ctx context.Context) {
	for _, name := range k.names {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := k.stores[name].Ping(pingCtx)
		cancel()

		if err != nil {
			logging.Warn().Err(err).Str("store", name).Msg("Store keep-alive ping failed")
		} else {
			logging.Debug().Str("store", name).Msg("Store keep-alive ping ok")
		}
		if k.onPing != nil {
			k.onPing(name, err)
		}
	}
}

func (k *KeepaliveService) String() string {
	return k.name
}
