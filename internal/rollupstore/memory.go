// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package rollupstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/ecosort/internal/telemetry"
)

type key struct {
	robot  string
	bucket int64
}

// MemoryStore is a map-backed rollup table.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[key]telemetry.MinuteRollup

	// FailWith, when set, is returned by UpsertMinute.
	FailWith error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[key]telemetry.MinuteRollup)}
}

func (s *MemoryStore) UpsertMinute(_ context.Context, r telemetry.MinuteRollup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	r.BucketTS = telemetry.BucketOf(r.BucketTS)
	s.rows[key{robot: r.RobotID, bucket: r.BucketTS.UnixNano()}] = r
	return nil
}

func (s *MemoryStore) Aggregates(_ context.Context, from, to time.Time) ([]RobotAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byRobot := map[string]*RobotAggregate{}
	sums := map[string]int64{}
	for _, r := range s.rows {
		if !inWindow(r.BucketTS, from, to) {
			continue
		}
		a, ok := byRobot[r.RobotID]
		if !ok {
			a = &RobotAggregate{RobotID: r.RobotID, MinSorted: r.LastSortedCount, MaxSorted: r.LastSortedCount}
			byRobot[r.RobotID] = a
		}
		a.MinSorted = min(a.MinSorted, r.LastSortedCount)
		a.MaxSorted = max(a.MaxSorted, r.LastSortedCount)
		a.Buckets++
		sums[r.RobotID] += int64(r.LastBattery)
	}

	out := make([]RobotAggregate, 0, len(byRobot))
	for id, a := range byRobot {
		a.AvgBattery = float64(sums[id]) / float64(a.Buckets)
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RobotID < out[j].RobotID })
	return out, nil
}

func (s *MemoryStore) Series(_ context.Context, robotID string, from, to time.Time) ([]telemetry.MinuteRollup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []telemetry.MinuteRollup{}
	for k, r := range s.rows {
		if k.robot == robotID && inWindow(r.BucketTS, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BucketTS.Before(out[j].BucketTS) })
	return out, nil
}

// Len returns the number of rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Get returns the row for (robotID, bucket).
func (s *MemoryStore) Get(robotID string, bucket time.Time) (telemetry.MinuteRollup, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[key{robot: robotID, bucket: telemetry.BucketOf(bucket).UnixNano()}]
	return r, ok
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
