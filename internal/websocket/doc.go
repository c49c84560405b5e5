// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

/*
Package websocket provides the live telemetry feed.

Every record the ingest pipeline stores is encoded once and fanned out to
the attached dashboards:

	{"type": "telemetry", "data": {"robot_id": "r1", "battery": 88, ...}}

A client follows all robots unless it was attached with a robot filter
(GET /api/ws?robot_id=r1) or later sends

	{"type": "subscribe", "robot_id": "r1"}

which is answered with {"type": "subscribed"}. An empty robot_id returns to
the full feed. {"type": "ping"} is answered with {"type": "pong"}.

Publishing never blocks ingestion: frames are dropped when the hub queue is
full, and a client whose outbox is full is disconnected.
*/
package websocket
