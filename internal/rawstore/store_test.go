// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rawstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/database"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

var base = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func rec(robot string, offset time.Duration, battery int, sorted int64) telemetry.Record {
	ts := base.Add(offset)
	return telemetry.Record{
		ID:          uuid.NewString(),
		RobotID:     robot,
		Battery:     battery,
		BinStatus:   map[string]any{"plastic": "ok"},
		SortedCount: sorted,
		EventTime:   ts,
		IngestedAt:  ts.Add(time.Second),
	}
}

// runStoreContract exercises the behavior every backend must share.
func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	records := []telemetry.Record{
		rec("r2", 1*time.Minute, 80, 10),
		rec("r1", 2*time.Minute, 90, 5),
		rec("r1", 5*time.Minute, 70, 9),
		rec("r2", 9*time.Minute, 60, 40),  // outside the window below
		rec("r3", -5*time.Minute, 50, 1), // before the window
	}
	for _, r := range records {
		if err := s.InsertRaw(ctx, r); err != nil {
			t.Fatalf("InsertRaw() error = %v", err)
		}
	}

	t.Run("latest per robot in window", func(t *testing.T) {
		latest, err := s.LatestPerRobot(ctx, base, base.Add(5*time.Minute))
		if err != nil {
			t.Fatalf("LatestPerRobot() error = %v", err)
		}
		if len(latest) != 2 {
			t.Fatalf("LatestPerRobot() returned %d robots, want 2: %+v", len(latest), latest)
		}
		if latest[0].RobotID != "r1" || latest[1].RobotID != "r2" {
			t.Errorf("unexpected order: %s, %s", latest[0].RobotID, latest[1].RobotID)
		}
		if latest[0].Battery != 70 {
			t.Errorf("r1 battery = %d, want 70 (newest in window, inclusive upper bound)", latest[0].Battery)
		}
		if latest[1].Battery != 80 {
			t.Errorf("r2 battery = %d, want 80", latest[1].Battery)
		}
		if !latest[0].EventTime.Equal(base.Add(5 * time.Minute)) {
			t.Errorf("r1 ts = %v", latest[0].EventTime)
		}
		if latest[0].BinStatus["plastic"] != "ok" {
			t.Errorf("r1 bin_status = %v", latest[0].BinStatus)
		}
	})

	t.Run("empty window", func(t *testing.T) {
		latest, err := s.LatestPerRobot(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
		if err != nil {
			t.Fatalf("LatestPerRobot() error = %v", err)
		}
		if latest == nil || len(latest) != 0 {
			t.Errorf("LatestPerRobot() = %v, want empty non-nil slice", latest)
		}
	})

	t.Run("recent newest first", func(t *testing.T) {
		recent, err := s.Recent(ctx, 3)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(recent) != 3 {
			t.Fatalf("Recent() returned %d, want 3", len(recent))
		}
		if recent[0].RobotID != "r2" || recent[0].SortedCount != 40 {
			t.Errorf("Recent()[0] = %+v, want newest r2 record", recent[0])
		}
		for i := 1; i < len(recent); i++ {
			if recent[i].EventTime.After(recent[i-1].EventTime) {
				t.Errorf("Recent() not ordered newest first at %d", i)
			}
		}
	})

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestDuckDBStore(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenDuckDB(ctx, config.DuckDBConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("OpenDuckDB() error = %v", err)
	}
	s, err := NewDuckDBStore(ctx, db)
	if err != nil {
		t.Fatalf("NewDuckDBStore() error = %v", err)
	}
	defer s.Close()

	runStoreContract(t, s)
}

func TestDuckDBStore_SharedHandleStaysOpen(t *testing.T) {
	ctx := context.Background()
	db, err := database.OpenDuckDB(ctx, config.DuckDBConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("OpenDuckDB() error = %v", err)
	}
	defer db.Close()

	s, err := NewDuckDBStore(ctx, db, WithSharedDB())
	if err != nil {
		t.Fatalf("NewDuckDBStore() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		t.Errorf("shared handle closed by store: %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 20}, {-3, 20}, {5, 5}, {200, 200}, {5000, MaxRecentLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
