// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// Store labels used in logs and metrics.
const (
	StoreRaw    = "raw"
	StoreRollup = "rollup"
)

// Result reports the outcome of both writes. A nil error means that side
// was persisted.
type Result struct {
	Record    telemetry.Record
	RawErr    error
	RollupErr error
}

// OK reports whether both writes succeeded.
func (r Result) OK() bool {
	return r.RawErr == nil && r.RollupErr == nil
}

// Writer performs the non-transactional dual write.
type Writer struct {
	raw    RawSink
	rollup RollupSink
	now    func() time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterClock overrides the ingested_at clock.
func WithWriterClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

// WithCircuitBreakers wraps both sinks in their own breaker when cfg is
// enabled.
func WithCircuitBreakers(cfg config.CircuitBreakerConfig) WriterOption {
	return func(w *Writer) {
		if !cfg.Enabled {
			return
		}
		w.raw = RawWithBreaker(w.raw, NewCircuitBreaker("raw_store", cfg))
		w.rollup = RollupWithBreaker(w.rollup, NewCircuitBreaker("rollup_store", cfg))
	}
}

// NewWriter creates a Writer over the two sinks.
func NewWriter(raw RawSink, rollup RollupSink, opts ...WriterOption) *Writer {
	w := &Writer{raw: raw, rollup: rollup, now: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write stamps ingested_at (and an id when missing), inserts the raw record,
// then upserts the minute rollup. The upsert runs even if the insert failed.
func (w *Writer) Write(ctx context.Context, rec telemetry.Record) Result {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.IngestedAt = w.now().UTC()

	res := Result{Record: rec}
	res.RawErr = w.write(ctx, StoreRaw, rec, func() error {
		return w.raw.InsertRaw(ctx, rec)
	})
	res.RollupErr = w.write(ctx, StoreRollup, rec, func() error {
		return w.rollup.UpsertMinute(ctx, telemetry.RollupFromRecord(rec))
	})
	return res
}

func (w *Writer) write(ctx context.Context, store string, rec telemetry.Record, fn func() error) error {
	start := time.Now()
	err := fn()
	if err == nil {
		metrics.RecordStoreWrite(store, time.Since(start), nil)
		return nil
	}

	if IsRejected(err) {
		metrics.RecordStoreRejected(store)
	} else {
		metrics.RecordStoreWrite(store, time.Since(start), err)
	}
	logging.Ctx(ctx).Error().
		Err(err).
		Str("store", store).
		Str("robot_id", rec.RobotID).
		Time("ts", rec.EventTime).
		Msg("Telemetry write failed, record dropped for this store")
	return err
}
