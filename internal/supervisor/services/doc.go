// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package services adapts EcoSort components to suture.Service: each
// Serve runs until its context is canceled, cleans up, and returns
// ctx.Err(). A non-nil error before cancellation asks the supervisor for a
// restart.
package services
