// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Enabled(t *testing.T) {
	t.Parallel()

	h := NewSlogHandler(zerolog.New(nil).Level(zerolog.WarnLevel))

	tests := []struct {
		level slog.Level
		want  bool
	}{
		{slog.LevelDebug, false},
		{slog.LevelInfo, false},
		{slog.LevelWarn, true},
		{slog.LevelError, true},
	}
	for _, tt := range tests {
		if got := h.Enabled(context.Background(), tt.level); got != tt.want {
			t.Errorf("Enabled(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestSlogHandler_Handle(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf)))

	logger.Warn("service restarted",
		slog.String("service", "channel"),
		slog.Int("attempt", 3),
		slog.Bool("terminated", false),
		slog.Duration("backoff", 2*time.Second),
	)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"service":"channel"`,
		`"attempt":3`,
		`"terminated":false`,
		"service restarted",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogHandler_WithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		With(slog.String("tree", "root")).
		WithGroup("supervisor")

	logger.Info("started", slog.String("layer", "data"))

	out := buf.String()
	if !strings.Contains(out, `"tree":"root"`) || strings.Contains(out, `"supervisor.tree"`) {
		t.Errorf("attribute added before the group must stay unqualified: %s", out)
	}
	if !strings.Contains(out, `"supervisor.layer":"data"`) {
		t.Errorf("expected grouped record attribute in output: %s", out)
	}
}

func TestSlogHandler_NestedGroupAttr(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf)))

	logger.Info("event", slog.Group("store", slog.String("driver", "duckdb")))

	if !strings.Contains(buf.String(), `"store.driver":"duckdb"`) {
		t.Errorf("expected nested group key in output: %s", buf.String())
	}
}

func TestSlogHandler_GroupThenAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(zerolog.New(&buf))).
		WithGroup("broker").
		With(slog.String("listener", "tcp"))

	logger.Info("client connected", slog.String("client", "robot-1"), slog.Attr{})

	out := buf.String()
	for _, want := range []string{`"broker.listener":"tcp"`, `"broker.client":"robot-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
	if strings.Contains(out, `"":`) {
		t.Errorf("empty attribute should be skipped: %s", out)
	}
}

func TestNewSlogLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	NewSlogLogger("supervisor").Warn("service restarted", slog.String("service", "channel-mqtt"))

	out := buf.String()
	for _, want := range []string{`"component":"supervisor"`, `"service":"channel-mqtt"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
