// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package ingest

import (
	"context"
	"errors"

	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// Pipeline connects the normalizer, the writer and the observers. Handle is
// safe for concurrent use; it holds no state of its own beyond the sinks.
type Pipeline struct {
	normalizer *telemetry.Normalizer
	writer     *Writer
	observers  []Observer
}

// NewPipeline creates a pipeline.
func NewPipeline(normalizer *telemetry.Normalizer, writer *Writer, observers ...Observer) *Pipeline {
	return &Pipeline{normalizer: normalizer, writer: writer, observers: observers}
}

// Handle processes one channel message. It never returns an error: discards
// and write failures are logged and counted.
func (p *Pipeline) Handle(ctx context.Context, topic string, payload []byte) {
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}

	rec, err := p.normalizer.Normalize(topic, payload)
	if err != nil {
		metrics.RecordTelemetryDiscard(discardReason(err))
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("topic", topic).
			Int("payload_bytes", len(payload)).
			Msg("Discarding telemetry message")
		return
	}
	metrics.RecordTelemetryAccepted()
	ctx = logging.ContextWithRobotID(ctx, rec.RobotID)

	res := p.writer.Write(ctx, rec)
	logging.Ctx(ctx).Debug().
		Time("ts", res.Record.EventTime).
		Bool("raw_ok", res.RawErr == nil).
		Bool("rollup_ok", res.RollupErr == nil).
		Msg("Telemetry ingested")

	for _, o := range p.observers {
		o.OnTelemetry(res.Record)
	}
}

func discardReason(err error) string {
	switch {
	case errors.Is(err, telemetry.ErrTopicMismatch):
		return "topic_mismatch"
	case errors.Is(err, telemetry.ErrInvalidPayload):
		return "invalid_payload"
	default:
		return "other"
	}
}
