// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package metrics

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTelemetry(t *testing.T) {
	accepted := testutil.ToFloat64(TelemetryMessages.WithLabelValues("accepted"))
	discarded := testutil.ToFloat64(TelemetryMessages.WithLabelValues("discarded"))
	badJSON := testutil.ToFloat64(TelemetryDiscards.WithLabelValues("invalid_payload"))

	RecordTelemetryAccepted()
	RecordTelemetryDiscard("invalid_payload")
	RecordTelemetryDiscard("invalid_payload")

	if got := testutil.ToFloat64(TelemetryMessages.WithLabelValues("accepted")) - accepted; got != 1 {
		t.Errorf("accepted delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(TelemetryMessages.WithLabelValues("discarded")) - discarded; got != 2 {
		t.Errorf("discarded delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(TelemetryDiscards.WithLabelValues("invalid_payload")) - badJSON; got != 2 {
		t.Errorf("invalid_payload delta = %v, want 2", got)
	}
}

func TestRecordStoreWrite(t *testing.T) {
	tests := []struct {
		name   string
		store  string
		err    error
		result string
	}{
		{"raw ok", "raw", nil, "ok"},
		{"rollup ok", "rollup", nil, "ok"},
		{"raw error", "raw", errors.New("connection refused"), "error"},
		{"rollup error", "rollup", errors.New("deadline exceeded"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(StoreWrites.WithLabelValues(tt.store, tt.result))
			RecordStoreWrite(tt.store, 3*time.Millisecond, tt.err)
			after := testutil.ToFloat64(StoreWrites.WithLabelValues(tt.store, tt.result))
			if after-before != 1 {
				t.Errorf("StoreWrites{%s,%s} delta = %v, want 1", tt.store, tt.result, after-before)
			}
		})
	}
}

func TestRecordStoreRejected(t *testing.T) {
	before := testutil.ToFloat64(StoreWrites.WithLabelValues("raw", "rejected"))
	RecordStoreRejected("raw")
	if got := testutil.ToFloat64(StoreWrites.WithLabelValues("raw", "rejected")) - before; got != 1 {
		t.Errorf("rejected delta = %v, want 1", got)
	}
}

func TestSetChannelState(t *testing.T) {
	SetChannelState("mqtt", 2)
	if got := testutil.ToFloat64(ChannelState.WithLabelValues("mqtt")); got != 2 {
		t.Errorf("ChannelState = %v, want 2", got)
	}
	SetChannelState("mqtt", 3)
	if got := testutil.ToFloat64(ChannelState.WithLabelValues("mqtt")); got != 3 {
		t.Errorf("ChannelState = %v, want 3", got)
	}
}

func TestRecordCommandPublish(t *testing.T) {
	for _, result := range []string{"sent", "not_connected", "error"} {
		before := testutil.ToFloat64(CommandPublishes.WithLabelValues(result))
		RecordCommandPublish(result)
		if got := testutil.ToFloat64(CommandPublishes.WithLabelValues(result)) - before; got != 1 {
			t.Errorf("CommandPublishes{%s} delta = %v, want 1", result, got)
		}
	}
}

func TestRecordQueryAndAPI(t *testing.T) {
	// Histograms only need to accept observations without panicking.
	RecordQuery("overview", 12*time.Millisecond, nil)
	RecordQuery("robot_series", 40*time.Millisecond, errors.New("boom"))

	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	RecordAPIRequest("GET", "/api/health", "200", time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/health", "200")) - before; got != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("APIActiveRequests delta = %v, want 1", got)
	}
}

func TestSetBuildInfo(t *testing.T) {
	SetBuildInfo("1.4.0")
	if got := testutil.ToFloat64(BuildInfo.WithLabelValues("1.4.0", runtime.Version())); got != 1 {
		t.Errorf("BuildInfo = %v, want 1", got)
	}
}
