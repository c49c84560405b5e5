// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
are exposed at /metrics in Prometheus text format:

	curl http://localhost:3001/metrics

# Available Metrics

Ingestion:
  - ecosort_telemetry_messages_total: Inbound messages (counter)
    Labels: result (accepted, discarded)
  - ecosort_telemetry_discards_total: Discarded messages (counter)
    Labels: reason (topic_mismatch, invalid_payload)
  - ecosort_store_writes_total: Dual-store writes (counter)
    Labels: store (raw, rollup), result (ok, error, rejected)
  - ecosort_store_write_duration_seconds: Write latency (histogram)
    Labels: store
  - ecosort_circuit_breaker_state: 0=closed, 1=half-open, 2=open (gauge)
    Labels: name

Channel:
  - ecosort_channel_state: Adapter state, 0=disconnected .. 3=reconnecting (gauge)
    Labels: driver
  - ecosort_channel_reconnects_total: Reconnect attempts (counter)
    Labels: driver
  - ecosort_command_publishes_total: Outbound commands (counter)
    Labels: result (sent, not_connected, error)

Queries and API:
  - ecosort_query_duration_seconds: Windowed query latency (histogram)
    Labels: query (overview, robot_series), result
  - ecosort_api_requests_total, ecosort_api_request_duration_seconds,
    ecosort_api_active_requests

Live feed:
  - ecosort_websocket_clients (gauge)
  - ecosort_websocket_frames_sent_total (counter), labels: message_type
  - ecosort_websocket_clients_dropped_total (counter)

  - ecosort_build_info{version, go_version} is always 1

# Usage

	start := time.Now()
	err := store.UpsertMinute(ctx, row)
	metrics.RecordStoreWrite("rollup", time.Since(start), err)
*/
package metrics
