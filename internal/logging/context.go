// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	robotIDKey       contextKey = "robot_id"
)

// GenerateCorrelationID returns the first 8 characters of a random UUID.
func GenerateCorrelationID() string {
	return uuid.NewString()[:8]
}

// GenerateRequestID returns a random UUID.
func GenerateRequestID() string {
	return uuid.NewString()
}

func withValue(ctx context.Context, key contextKey, v string) context.Context {
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ContextWithCorrelationID tags ctx with a correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID tags ctx with a fresh correlation ID. Every
// telemetry message gets one so that its normalize, raw-insert and
// rollup-upsert lines can be joined.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext returns the correlation ID, or "".
func CorrelationIDFromContext(ctx context.Context) string {
	return valueOf(ctx, correlationIDKey)
}

// ContextWithRequestID tags ctx with an HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return valueOf(ctx, requestIDKey)
}

// ContextWithRobotID tags ctx with the robot a message or command concerns.
func ContextWithRobotID(ctx context.Context, id string) context.Context {
	return withValue(ctx, robotIDKey, id)
}

// RobotIDFromContext returns the robot ID, or "".
func RobotIDFromContext(ctx context.Context) string {
	return valueOf(ctx, robotIDKey)
}

// Ctx returns the global logger with correlation_id, request_id and
// robot_id fields for whichever of them ctx carries.
//
//	logging.Ctx(ctx).Info().Msg("Processing request")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := With()
	for _, key := range []contextKey{correlationIDKey, requestIDKey, robotIDKey} {
		if v := valueOf(ctx, key); v != "" {
			logCtx = logCtx.Str(string(key), v)
		}
	}
	l := logCtx.Logger()
	return &l
}

// WithComponent creates a child logger with a component field.
//
//	storeLogger := logging.WithComponent("rollupstore")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
