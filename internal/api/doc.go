// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

/*
Package api serves the EcoSort HTTP interface on a chi router.

Routes:

	GET  /api/health                 liveness and build information
	GET  /api/health/ready           pings both stores, 503 when one is down
	GET  /api/stats/overview         fleet overview for ?from&to
	GET  /api/stats/robot/{id}       per-minute series of one robot for ?from&to
	GET  /api/robots                 most recent raw records, ?limit (default 20, max 200)
	POST /api/robot/{id}/command     publish the JSON body to the robot's command topic
	GET  /api/ws[?robot_id=]         live telemetry websocket, optionally one robot
	GET  /metrics                    Prometheus exposition

Successful bodies carry "ok": true. Failures are

	{"ok": false, "error": "...", "code": "BAD_REQUEST" | "DATABASE_ERROR" | ...}

Query windows are ISO-8601 timestamps; "to" defaults to now and "from" to
24 hours before "to". A malformed or inverted window is rejected before any
store is read.
*/
package api
