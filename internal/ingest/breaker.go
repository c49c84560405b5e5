// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package ingest

import (
	"context"
	"errors"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ecosort/internal/config"
	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/metrics"
	"github.com/tomtom215/ecosort/internal/telemetry"
)

// NewCircuitBreaker creates a breaker that opens after FailureThreshold
// consecutive failures. State changes are logged and exported as a gauge.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig) *gobreaker.CircuitBreaker[struct{}] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[struct{}](settings)
}

// IsRejected reports whether err came from an open or saturated breaker
// rather than from the store.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type breakerRawSink struct {
	next RawSink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// RawWithBreaker wraps sink in cb.
func RawWithBreaker(sink RawSink, cb *gobreaker.CircuitBreaker[struct{}]) RawSink {
	return &breakerRawSink{next: sink, cb: cb}
}

func (s *breakerRawSink) InsertRaw(ctx context.Context, rec telemetry.Record) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.InsertRaw(ctx, rec)
	})
	return err
}

type breakerRollupSink struct {
	next RollupSink
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// RollupWithBreaker wraps sink in cb.
func RollupWithBreaker(sink RollupSink, cb *gobreaker.CircuitBreaker[struct{}]) RollupSink {
	return &breakerRollupSink{next: sink, cb: cb}
}

func (s *breakerRollupSink) UpsertMinute(ctx context.Context, r telemetry.MinuteRollup) error {
	_, err := s.cb.Execute(func() (struct{}, error) {
		return struct{}{}, s.next.UpsertMinute(ctx, r)
	})
	return err
}
