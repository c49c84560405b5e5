// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tomtom215/ecosort/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServerService binds addr and serves the API until the tree stops,
// then drains in-flight requests for at most the grace period.
type HTTPServerService struct {
	server HTTPServer
	addr   string
	grace  time.Duration
	bound  atomic.Pointer[string]
}

// NewHTTPServerService serves server on addr. A non-positive grace means 10s.
func NewHTTPServerService(server HTTPServer, addr string, grace time.Duration) *HTTPServerService {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	return &HTTPServerService{server: server, addr: addr, grace: grace}
}

// Addr returns the bound listen address, or "" before the first bind.
func (s *HTTPServerService) Addr() string {
	if a := s.bound.Load(); a != nil {
		return *a
	}
	return ""
}

// Serve implements suture.Service. A bind failure is returned at once so the
// supervisor can back off and retry.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen %s: %w", s.addr, err)
	}
	bound := ln.Addr().String()
	s.bound.Store(&bound)
	logging.Info().Str("addr", bound).Msg("HTTP server listening")

	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
	defer cancel()
	if err := s.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-served
	logging.Info().Dur("grace", s.grace).Msg("HTTP server stopped")
	return ctx.Err()
}

func (s *HTTPServerService) String() string {
	return "http-server"
}
