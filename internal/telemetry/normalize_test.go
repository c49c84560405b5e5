// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package telemetry

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(MQTTScheme("ecosort"), WithClock(func() time.Time { return fixedNow }))
}

func TestNormalize_FullPayload(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	rec, err := n.Normalize("ecosort/r1/telemetry", []byte(`{
		"battery": 87,
		"bin_status": {"plastic": "full", "glass": 40},
		"sorted_count": 1200,
		"low_confidence": 3,
		"ts": "2025-03-14T09:20:15Z"
	}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if rec.RobotID != "r1" {
		t.Errorf("RobotID = %q, want r1", rec.RobotID)
	}
	if rec.Battery != 87 || rec.SortedCount != 1200 || rec.LowConfidence != 3 {
		t.Errorf("unexpected counters: %+v", rec)
	}
	wantBin := map[string]any{"plastic": "full", "glass": float64(40)}
	if !reflect.DeepEqual(rec.BinStatus, wantBin) {
		t.Errorf("BinStatus = %v, want %v", rec.BinStatus, wantBin)
	}
	if want := time.Date(2025, 3, 14, 9, 20, 15, 0, time.UTC); !rec.EventTime.Equal(want) {
		t.Errorf("EventTime = %v, want %v", rec.EventTime, want)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	t.Parallel()

	rec, err := newTestNormalizer().Normalize("ecosort/r9/telemetry", []byte(`{}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.RobotID != "r9" {
		t.Errorf("RobotID = %q, want topic segment r9", rec.RobotID)
	}
	if rec.Battery != 0 || rec.SortedCount != 0 || rec.LowConfidence != 0 {
		t.Errorf("expected zero defaults, got %+v", rec)
	}
	if rec.BinStatus == nil || len(rec.BinStatus) != 0 {
		t.Errorf("BinStatus = %v, want empty map", rec.BinStatus)
	}
	if !rec.EventTime.Equal(fixedNow) {
		t.Errorf("EventTime = %v, want ingestion time %v", rec.EventTime, fixedNow)
	}
}

func TestNormalize_BatteryClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    int
	}{
		{`{"battery": 150}`, 100},
		{`{"battery": -5}`, 0},
		{`{"battery": 100}`, 100},
		{`{"battery": 0}`, 0},
		{`{"battery": "42%"}`, 42},
		{`{"battery": 99.9}`, 99},
		{`{"battery": "abc"}`, 0},
	}
	n := newTestNormalizer()
	for _, tt := range tests {
		rec, err := n.Normalize("ecosort/r1/telemetry", []byte(tt.payload))
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", tt.payload, err)
		}
		if rec.Battery != tt.want {
			t.Errorf("Normalize(%s).Battery = %d, want %d", tt.payload, rec.Battery, tt.want)
		}
	}
}

func TestParseIntValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{`12`, 12, true},
		{`-7`, -7, true},
		{`3.9`, 3, true},
		{`-3.9`, -3, true},
		{`1e3`, 1000, true},
		{`"  42abc"`, 42, true},
		{`"+8"`, 8, true},
		{`"-0012"`, -12, true},
		{`"0x10"`, 0, true},
		{`"abc"`, 0, false},
		{`""`, 0, false},
		{`"-"`, 0, false},
		{`true`, 0, false},
		{`null`, 0, false},
		{`[1]`, 0, false},
		{`{"a":1}`, 0, false},
		{`"99999999999999999999"`, math.MaxInt64, true},
		{`1e300`, math.MaxInt64, true},
	}
	for _, tt := range tests {
		got, ok := parseIntValue([]byte(tt.in))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseIntValue(%s) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormalize_BinStatusMustBeObject(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer()
	for _, p := range []string{
		`{"bin_status": [1,2]}`,
		`{"bin_status": "full"}`,
		`{"bin_status": null}`,
		`{"bin_status": 7}`,
	} {
		rec, err := n.Normalize("ecosort/r1/telemetry", []byte(p))
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", p, err)
		}
		if rec.BinStatus == nil || len(rec.BinStatus) != 0 {
			t.Errorf("Normalize(%s).BinStatus = %v, want {}", p, rec.BinStatus)
		}
	}
}

func TestNormalize_EventTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ts   string
		want time.Time
	}{
		{"utc", `"2025-03-14T08:00:00Z"`, time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)},
		{"offset", `"2025-03-14T10:00:00+02:00"`, time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)},
		{"fractional", `"2025-03-14T08:00:00.250Z"`, time.Date(2025, 3, 14, 8, 0, 0, 250e6, time.UTC)},
		{"date only", `"2025-03-14"`, fixedNow},
		{"epoch number", `1710400000`, fixedNow},
		{"garbage", `"yesterday"`, fixedNow},
		{"iso prefix but invalid", `"2025-13-45Tnope"`, fixedNow},
		{"null", `null`, fixedNow},
	}
	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := n.Normalize("ecosort/r1/telemetry", []byte(`{"ts":`+tt.ts+`}`))
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if !rec.EventTime.Equal(tt.want) {
				t.Errorf("EventTime = %v, want %v", rec.EventTime, tt.want)
			}
			if rec.EventTime.Location() != time.UTC {
				t.Errorf("EventTime location = %v, want UTC", rec.EventTime.Location())
			}
		})
	}
}

func TestNormalize_RobotID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    string
	}{
		{`{"robot_id": "sorter-7"}`, "sorter-7"},
		{`{"robot_id": ""}`, "r1"},
		{`{"robot_id": 42}`, "42"},
		{`{"robot_id": 0}`, "r1"},
		{`{"robot_id": null}`, "r1"},
		{`{"robot_id": {"x":1}}`, "r1"},
		{`{"robot_id": "a/b"}`, "r1"},
	}
	n := newTestNormalizer()
	for _, tt := range tests {
		rec, err := n.Normalize("ecosort/r1/telemetry", []byte(tt.payload))
		if err != nil {
			t.Fatalf("Normalize(%s) error = %v", tt.payload, err)
		}
		if rec.RobotID != tt.want {
			t.Errorf("Normalize(%s).RobotID = %q, want %q", tt.payload, rec.RobotID, tt.want)
		}
	}
}

func TestNormalize_Discards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"wrong namespace", "other/r1/telemetry", `{}`, ErrTopicMismatch},
		{"commands topic", "ecosort/r1/commands", `{}`, ErrTopicMismatch},
		{"extra segment", "ecosort/r1/x/telemetry", `{}`, ErrTopicMismatch},
		{"empty robot", "ecosort//telemetry", `{}`, ErrTopicMismatch},
		{"not json", "ecosort/r1/telemetry", `battery=50`, ErrInvalidPayload},
		{"truncated json", "ecosort/r1/telemetry", `{"battery": 5`, ErrInvalidPayload},
		{"array", "ecosort/r1/telemetry", `[{"battery": 5}]`, ErrInvalidPayload},
		{"string", "ecosort/r1/telemetry", `"hello"`, ErrInvalidPayload},
		{"empty", "ecosort/r1/telemetry", ``, ErrInvalidPayload},
	}
	n := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.topic, []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrDiscard) {
				t.Errorf("expected error to wrap ErrDiscard, got %v", err)
			}
		})
	}
}

func TestNormalize_NATSScheme(t *testing.T) {
	t.Parallel()

	n := NewNormalizer(NATSScheme("ecosort"), WithClock(func() time.Time { return fixedNow }))
	rec, err := n.Normalize("ecosort.r5.telemetry", []byte(`{"sorted_count": "17"}`))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if rec.RobotID != "r5" || rec.SortedCount != 17 {
		t.Errorf("unexpected record %+v", rec)
	}
}
