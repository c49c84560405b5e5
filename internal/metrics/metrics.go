// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion Metrics
	TelemetryMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_telemetry_messages_total",
			Help: "Total number of inbound telemetry messages",
		},
		[]string{"result"}, // "accepted", "discarded"
	)

	TelemetryDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_telemetry_discards_total",
			Help: "Total number of discarded telemetry messages by reason",
		},
		[]string{"reason"},
	)

	StoreWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_store_writes_total",
			Help: "Total number of dual-store writes",
		},
		[]string{"store", "result"}, // store: "raw", "rollup"; result: "ok", "error", "rejected"
	)

	StoreWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecosort_store_write_duration_seconds",
			Help:    "Duration of store writes in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"store"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecosort_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Channel Metrics
	ChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecosort_channel_state",
			Help: "Channel adapter state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
		},
		[]string{"driver"},
	)

	ChannelReconnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_channel_reconnects_total",
			Help: "Total number of channel reconnect attempts",
		},
		[]string{"driver"},
	)

	CommandPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_command_publishes_total",
			Help: "Total number of robot commands by publish outcome",
		},
		[]string{"result"}, // "sent", "not_connected", "encode_error", "invalid_robot_id", "publish_error"
	)

	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecosort_query_duration_seconds",
			Help:    "Duration of windowed analytics queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query", "result"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ecosort_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecosort_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ecosort_websocket_clients",
			Help: "Dashboard clients attached to the live feed",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecosort_websocket_frames_sent_total",
			Help: "Frames queued to live feed clients",
		},
		[]string{"message_type"},
	)

	WSClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ecosort_websocket_clients_dropped_total",
			Help: "Live feed clients disconnected for falling behind",
		},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ecosort_build_info",
			Help: "Always 1; labels carry the running version",
		},
		[]string{"version", "go_version"},
	)
)

// SetBuildInfo exports the running version.
func SetBuildInfo(version string) {
	BuildInfo.WithLabelValues(version, runtime.Version()).Set(1)
}

// RecordTelemetryAccepted counts a message that produced a record.
func RecordTelemetryAccepted() {
	TelemetryMessages.WithLabelValues("accepted").Inc()
}

// RecordTelemetryDiscard counts a discarded message.
func RecordTelemetryDiscard(reason string) {
	TelemetryMessages.WithLabelValues("discarded").Inc()
	TelemetryDiscards.WithLabelValues(reason).Inc()
}

// RecordStoreWrite records the outcome and latency of one sink write.
func RecordStoreWrite(store string, duration time.Duration, err error) {
	StoreWriteDuration.WithLabelValues(store).Observe(duration.Seconds())
	if err != nil {
		StoreWrites.WithLabelValues(store, "error").Inc()
		return
	}
	StoreWrites.WithLabelValues(store, "ok").Inc()
}

// RecordStoreRejected counts a write refused by an open circuit breaker.
func RecordStoreRejected(store string) {
	StoreWrites.WithLabelValues(store, "rejected").Inc()
}

// SetChannelState publishes the numeric adapter state.
func SetChannelState(driver string, state int) {
	ChannelState.WithLabelValues(driver).Set(float64(state))
}

// RecordChannelReconnect counts a reconnect attempt.
func RecordChannelReconnect(driver string) {
	ChannelReconnects.WithLabelValues(driver).Inc()
}

// RecordCommandPublish counts an outbound command by result.
func RecordCommandPublish(result string) {
	CommandPublishes.WithLabelValues(result).Inc()
}

// RecordQuery records a windowed query.
func RecordQuery(query string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	QueryDuration.WithLabelValues(query, result).Observe(duration.Seconds())
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
