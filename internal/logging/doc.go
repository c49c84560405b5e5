// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package logging provides centralized zerolog-based structured logging for EcoSort.
//
// JSON output is used in production and console output in development. The
// package also carries two adapters so that third-party components log
// through the same zerolog pipeline:
//
//   - SlogHandler for the suture supervisor tree (via sutureslog)
//   - WatermillAdapter for the watermill-nats channel driver
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("robot_id", id).Msg("Telemetry stored")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Rollup upsert failed")
//
// # Configuration
//
// Environment Variables:
//
//	LOG_LEVEL   - Minimum log level: trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - Output format: json, console (default: json)
//	LOG_CALLER  - Include caller file:line: true, false (default: false)
//
// Always terminate log chains with .Msg() or .Send():
//
//	logging.Info().Str("key", "value").Msg("message")  // Correct
//	logging.Info().Str("key", "value")                 // WRONG - log not emitted
package logging
