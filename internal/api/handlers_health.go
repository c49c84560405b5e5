// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package api

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// readyTimeout bounds each store ping of the readiness check.
const readyTimeout = 3 * time.Second

// HealthStatus is the liveness body.
type HealthStatus struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
	Timestamp     time.Time `json:"timestamp"`
	Environment   string    `json:"environment"`
	ChannelState  string    `json:"channel_state"`
	WSClients     int       `json:"ws_clients"`
}

// ReadyStatus is the readiness body. Stores maps store name to "ok" or the
// ping error.
type ReadyStatus struct {
	OK     bool              `json:"ok"`
	Stores map[string]string `json:"stores"`
}

// Health handles GET /api/health. It always answers 200 while the process
// serves HTTP; store availability is reported by HealthReady.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	state := "unknown"
	if h.channel != nil {
		state = h.channel.State().String()
	}
	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.ClientCount()
	}

	respondJSON(w, http.StatusOK, HealthStatus{
		Status:        "ok",
		Service:       ServiceName,
		Version:       h.version,
		UptimeSeconds: now.Sub(h.startTime).Seconds(),
		Timestamp:     now.UTC(),
		Environment:   h.environment,
		ChannelState:  state,
		WSClients:     clients,
	})
}

// HealthReady handles GET /api/health/ready by pinging both stores
// concurrently.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	stores := map[string]Pinger{
		"raw":    h.rawStore,
		"rollup": h.rollupStore,
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = ReadyStatus{OK: true, Stores: make(map[string]string, len(stores))}
	)
	for name, store := range stores {
		wg.Add(1)
		go func(name string, store Pinger) {
			defer wg.Done()
			result := "ok"
			if store == nil {
				result = "not configured"
			} else if err := pingWithTimeout(r.Context(), store); err != nil {
				result = err.Error()
			}
			mu.Lock()
			status.Stores[name] = result
			if result != "ok" {
				status.OK = false
			}
			mu.Unlock()
		}(name, store)
	}
	wg.Wait()

	code := http.StatusOK
	if !status.OK {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, status)
}

func pingWithTimeout(ctx context.Context, p Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()
	return p.Ping(ctx)
}
