// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package services

import "context"

// Runner is a component with its own loop that ends with its context.
type Runner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a Runner under a fixed name. The websocket hub
// runs this way.
type RunnerService struct {
	runner Runner
	name   string
}

// NewRunnerService wraps r.
func NewRunnerService(name string, r Runner) *RunnerService {
	return &RunnerService{runner: r, name: name}
}

// Serve implements suture.Service.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.RunWithContext(ctx)
}

func (r *RunnerService) String() string {
	return r.name
}
