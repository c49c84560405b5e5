// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package middleware provides HTTP middleware shared by the API router:
// request IDs wired into the logging context, and Prometheus request
// instrumentation labeled by chi route pattern.
package middleware
