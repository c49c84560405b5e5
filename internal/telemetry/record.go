// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package telemetry defines the robot telemetry data model, the topic
// naming scheme, and the normalizer that turns raw channel payloads into
// validated records.
package telemetry

import (
	"time"
)

// Battery bounds. Values outside are clamped.
const (
	MinBattery = 0
	MaxBattery = 100
)

// Record is one normalized telemetry sample. It is stored verbatim in the
// raw store and never modified after creation.
type Record struct {
	ID            string         `json:"id,omitempty" bson:"_id,omitempty"`
	RobotID       string         `json:"robot_id" bson:"robot_id"`
	Battery       int            `json:"battery" bson:"battery"`
	BinStatus     map[string]any `json:"bin_status" bson:"bin_status"`
	SortedCount   int64          `json:"sorted_count" bson:"sorted_count"`
	LowConfidence int64          `json:"low_confidence" bson:"low_confidence"`
	EventTime     time.Time      `json:"ts" bson:"ts"`
	IngestedAt    time.Time      `json:"ingested_at" bson:"ingested_at"`
}

// MinuteRollup is the last-value-wins summary of a robot for one minute.
// The key is (RobotID, BucketTS).
type MinuteRollup struct {
	RobotID           string    `json:"robot_id"`
	BucketTS          time.Time `json:"bucket_ts"`
	LastBattery       int       `json:"last_battery"`
	LastSortedCount   int64     `json:"last_sorted_count"`
	LastLowConfidence int64     `json:"last_low_confidence"`
}

// BucketOf returns the minute bucket for an event time: UTC, seconds and
// sub-seconds dropped.
func BucketOf(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

// RollupFromRecord derives the rollup row a record contributes to.
func RollupFromRecord(r Record) MinuteRollup {
	return MinuteRollup{
		RobotID:           r.RobotID,
		BucketTS:          BucketOf(r.EventTime),
		LastBattery:       r.Battery,
		LastSortedCount:   r.SortedCount,
		LastLowConfidence: r.LowConfidence,
	}
}

// LatestStatus is the newest raw record of a robot inside a query window.
type LatestStatus struct {
	RobotID   string         `json:"robot_id" bson:"robot_id"`
	Battery   int            `json:"battery" bson:"battery"`
	BinStatus map[string]any `json:"bin_status" bson:"bin_status"`
	EventTime time.Time      `json:"ts" bson:"ts"`
}

func clampBattery(v int64) int {
	switch {
	case v < MinBattery:
		return MinBattery
	case v > MaxBattery:
		return MaxBattery
	default:
		return int(v)
	}
}
