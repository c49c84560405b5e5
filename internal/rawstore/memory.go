// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rawstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/ecosort/internal/telemetry"
)

// MemoryStore is a process-local raw log. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []telemetry.Record

	// FailWith, when set, is returned by InsertRaw. Tests use it to simulate
	// an unavailable backend.
	FailWith error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertRaw(_ context.Context, rec telemetry.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	rec.BinStatus = nonNilBin(rec.BinStatus)
	s.records = append(s.records, rec)
	return nil
}

func (s *MemoryStore) LatestPerRobot(_ context.Context, from, to time.Time) ([]telemetry.LatestStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := map[string]telemetry.Record{}
	for _, r := range s.records {
		if r.EventTime.Before(from) || r.EventTime.After(to) {
			continue
		}
		cur, ok := latest[r.RobotID]
		if !ok || newer(r, cur) {
			latest[r.RobotID] = r
		}
	}

	out := make([]telemetry.LatestStatus, 0, len(latest))
	for _, r := range latest {
		out = append(out, telemetry.LatestStatus{
			RobotID:   r.RobotID,
			Battery:   r.Battery,
			BinStatus: r.BinStatus,
			EventTime: r.EventTime.UTC(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RobotID < out[j].RobotID })
	return out, nil
}

func (s *MemoryStore) Recent(_ context.Context, limit int) ([]telemetry.Record, error) {
	s.mu.RLock()
	all := make([]telemetry.Record, len(s.records))
	copy(all, s.records)
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool { return newer(all[i], all[j]) })
	if n := clampLimit(limit); len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func newer(a, b telemetry.Record) bool {
	if !a.EventTime.Equal(b.EventTime) {
		return a.EventTime.After(b.EventTime)
	}
	return a.IngestedAt.After(b.IngestedAt)
}
