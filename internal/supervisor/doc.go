// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

/*
Package supervisor runs the EcoSort process as a suture v4 supervisor tree.

	ecosort (root)
	├── storage-layer   store keep-alive pings
	├── ingest-layer    channel adapter (MQTT or NATS)
	└── api-layer       websocket hub, HTTP server

Each layer restarts its own services with suture's failure backoff, so a
broker outage that crashes the channel service does not take the HTTP
server down. Supervisor events are logged through sutureslog into the
zerolog pipeline.

Service adapters live in the services subpackage.
*/
package supervisor
