// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

/*
Package ingest turns channel messages into stored telemetry.

A Pipeline is the channel handler: it normalizes each message, hands the
record to the Writer and then notifies observers such as the websocket hub.

The Writer performs the dual write:

 1. InsertRaw on the raw sink (append only)
 2. UpsertMinute on the rollup sink, derived from the record's event time

The two writes have independent failure domains. A failure on one side is
logged and counted and the other side is still attempted; nothing is
retried or queued, so a store outage loses that side of the write for the
affected messages. Readers must tolerate a raw record with no matching
rollup and vice versa.

Each sink may be wrapped in a gobreaker circuit breaker. An open breaker
rejects the write immediately, which keeps a dead store from holding
goroutines for the full driver timeout under sustained traffic.
*/
package ingest
