// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package ingest

import (
	"context"

	"github.com/tomtom215/ecosort/internal/telemetry"
)

// RawSink receives every normalized record.
type RawSink interface {
	InsertRaw(ctx context.Context, rec telemetry.Record) error
}

// RollupSink receives the minute rollup derived from each record.
type RollupSink interface {
	UpsertMinute(ctx context.Context, r telemetry.MinuteRollup) error
}

// Observer is notified after a record has been written, whatever the
// outcome of the individual writes.
type Observer interface {
	OnTelemetry(rec telemetry.Record)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(rec telemetry.Record)

// OnTelemetry implements Observer.
func (f ObserverFunc) OnTelemetry(rec telemetry.Record) { f(rec) }
