// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package query computes windowed analytics from the rollup and raw stores.
//
// Reads are independent of the write path and see eventually consistent
// data: a bucket may be observed mid-update, and the raw snapshot may be
// ahead of or behind the rollups.
package query

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/rollupstore"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// RollupReader is the read side of the rollup store.
type RollupReader interface {
	Aggregates(ctx context.Context, from, to time.Time) ([]rollupstore.RobotAggregate, error)
	Series(ctx context.Context, robotID string, from, to time.Time) ([]telemetry.MinuteRollup, error)
}

// LatestReader returns the newest raw record per robot.
type LatestReader interface {
	LatestPerRobot(ctx context.Context, from, to time.Time) ([]telemetry.LatestStatus, error)
}

// RobotStats is one robot's entry in an overview.
type RobotStats struct {
	RobotID     string `json:"robot_id"`
	ItemsSorted int64  `json:"items_sorted"`
	AvgBattery  int64  `json:"avg_battery"`
}

// Overview aggregates every robot over a window.
type Overview struct {
	Window            Window                   `json:"window"`
	TotalItemsSorted  int64                    `json:"total_items_sorted"`
	AvgBatteryOverall int64                    `json:"avg_battery_overall"`
	PerRobot          []RobotStats             `json:"per_robot"`
	Latest            []telemetry.LatestStatus `json:"latest"`
}

// SeriesPoint is one minute of a robot series. ItemsPerMinute is nil for
// the first point.
type SeriesPoint struct {
	TS             time.Time `json:"ts"`
	Battery        int       `json:"battery"`
	SortedCount    int64     `json:"sorted_count"`
	LowConfidence  int64     `json:"low_confidence"`
	ItemsPerMinute *int64    `json:"items_per_minute"`
}

// Summary is the window-level figure of a robot series.
type Summary struct {
	ItemsSorted int64 `json:"items_sorted"`
	AvgBattery  int64 `json:"avg_battery"`
}

// RobotSeries is the per-minute history of one robot.
type RobotSeries struct {
	RobotID string        `json:"robot_id"`
	Window  Window        `json:"window"`
	Summary Summary       `json:"summary"`
	Points  []SeriesPoint `json:"points"`
}

// Engine answers windowed queries.
type Engine struct {
	rollups RollupReader
	raw     LatestReader
}

// NewEngine creates an engine over the two stores.
func NewEngine(rollups RollupReader, raw LatestReader) *Engine {
	return &Engine{rollups: rollups, raw: raw}
}

// Overview computes per-robot and fleet figures for w. items_sorted is
// max-min of the sorted counter and is reported as computed; a counter reset
// inside the window can make it smaller than the real throughput but never
// negative; counters at the ends of the int64 range saturate.
func (e *Engine) Overview(ctx context.Context, w Window) (out *Overview, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("overview", time.Since(start), err) }()

	aggs, err := e.rollups.Aggregates(ctx, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("rollup aggregates: %w", err)
	}
	latest, err := e.raw.LatestPerRobot(ctx, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("latest raw telemetry: %w", err)
	}

	out = &Overview{
		Window:   w,
		PerRobot: make([]RobotStats, 0, len(aggs)),
		Latest:   latest,
	}
	if out.Latest == nil {
		out.Latest = []telemetry.LatestStatus{}
	}

	var batterySum float64
	for _, a := range aggs {
		rs := RobotStats{
			RobotID:     a.RobotID,
			ItemsSorted: span(a.MaxSorted, a.MinSorted),
			AvgBattery:  round(a.AvgBattery),
		}
		out.PerRobot = append(out.PerRobot, rs)
		out.TotalItemsSorted = addSaturating(out.TotalItemsSorted, rs.ItemsSorted)
		batterySum += float64(rs.AvgBattery)
	}
	if n := len(out.PerRobot); n > 0 {
		out.AvgBatteryOverall = round(batterySum / float64(n))
	}
	return out, nil
}

// RobotSeries returns the minute rows of robotID in w with per-minute deltas
// clamped at zero.
func (e *Engine) RobotSeries(ctx context.Context, robotID string, w Window) (out *RobotSeries, err error) {
	start := time.Now()
	defer func() { metrics.RecordQuery("robot_series", time.Since(start), err) }()

	rows, err := e.rollups.Series(ctx, robotID, w.From, w.To)
	if err != nil {
		return nil, fmt.Errorf("rollup series: %w", err)
	}

	out = &RobotSeries{
		RobotID: robotID,
		Window:  w,
		Points:  make([]SeriesPoint, 0, len(rows)),
	}
	if len(rows) == 0 {
		return out, nil
	}

	minSorted, maxSorted := rows[0].LastSortedCount, rows[0].LastSortedCount
	var batterySum float64
	for i, r := range rows {
		p := SeriesPoint{
			TS:            r.BucketTS.UTC(),
			Battery:       r.LastBattery,
			SortedCount:   r.LastSortedCount,
			LowConfidence: r.LastLowConfidence,
		}
		if i > 0 {
			delta := span(r.LastSortedCount, rows[i-1].LastSortedCount)
			p.ItemsPerMinute = &delta
		}
		out.Points = append(out.Points, p)

		minSorted = min(minSorted, r.LastSortedCount)
		maxSorted = max(maxSorted, r.LastSortedCount)
		batterySum += float64(r.LastBattery)
	}

	out.Summary = Summary{
		ItemsSorted: span(maxSorted, minSorted),
		AvgBattery:  round(batterySum / float64(len(rows))),
	}
	return out, nil
}

// span returns hi-lo, 0 when hi <= lo, and MaxInt64 when the difference
// does not fit.
func span(hi, lo int64) int64 {
	if hi <= lo {
		return 0
	}
	if d := hi - lo; d > 0 {
		return d
	}
	return math.MaxInt64
}

// addSaturating adds two non-negative counts, stopping at MaxInt64.
func addSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// round rounds half away from zero.
func round(v float64) int64 {
	return int64(math.Round(v))
}
