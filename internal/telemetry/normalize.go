// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package telemetry

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/relvacode/iso8601"
)

// ErrDiscard is the base error for messages the normalizer rejects.
// A discarded message is logged and counted, never stored.
var ErrDiscard = errors.New("telemetry discarded")

var (
	// ErrTopicMismatch is returned when the topic is not {ns}/{robot}/telemetry.
	ErrTopicMismatch = fmt.Errorf("%w: topic does not match telemetry pattern", ErrDiscard)

	// ErrInvalidPayload is returned when the payload is not a JSON object.
	ErrInvalidPayload = fmt.Errorf("%w: payload is not a JSON object", ErrDiscard)
)

// isoPrefix is the shape an event timestamp must have to be trusted.
var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

// Normalizer converts raw channel messages into Records.
type Normalizer struct {
	scheme TopicScheme
	now    func() time.Time
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithClock overrides the ingestion clock. Used by tests.
func WithClock(now func() time.Time) NormalizerOption {
	return func(n *Normalizer) {
		n.now = now
	}
}

// NewNormalizer creates a normalizer for the given topic scheme.
func NewNormalizer(scheme TopicScheme, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{scheme: scheme, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// payload mirrors the wire format. Every field tolerates any JSON type so
// that one bad field degrades to its default instead of failing the decode.
type payload struct {
	RobotID       flexString      `json:"robot_id"`
	Battery       flexInt         `json:"battery"`
	BinStatus     json.RawMessage `json:"bin_status"`
	SortedCount   flexInt         `json:"sorted_count"`
	LowConfidence flexInt         `json:"low_confidence"`
	TS            json.RawMessage `json:"ts"`
}

// Normalize validates a telemetry message. It returns an error wrapping
// ErrDiscard when the message must be dropped.
func (n *Normalizer) Normalize(topic string, raw []byte) (Record, error) {
	topicRobot, ok := n.scheme.RobotFromTelemetryTopic(topic)
	if !ok {
		return Record{}, fmt.Errorf("%w: %q", ErrTopicMismatch, topic)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Record{}, ErrInvalidPayload
	}

	var p payload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	now := n.now().UTC()
	rec := Record{
		RobotID:       topicRobot,
		Battery:       clampBattery(p.Battery.or(0)),
		BinStatus:     decodeBinStatus(p.BinStatus),
		SortedCount:   p.SortedCount.or(0),
		LowConfidence: p.LowConfidence.or(0),
		EventTime:     now,
	}
	if p.RobotID.val != "" {
		rec.RobotID = p.RobotID.val
	}
	if ts, ok := parseEventTime(p.TS); ok {
		rec.EventTime = ts
	}

	return rec, nil
}

func decodeBinStatus(raw json.RawMessage) map[string]any {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return map[string]any{}
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func parseEventTime(raw json.RawMessage) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return time.Time{}, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	if !isoPrefix.MatchString(s) {
		return time.Time{}, false
	}
	t, err := iso8601.ParseString(s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// flexInt decodes with parse-int semantics: numbers truncate toward zero,
// strings contribute their leading signed digit run, anything else is unset.
type flexInt struct {
	val int64
	ok  bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	f.val, f.ok = parseIntValue(data)
	return nil
}

func (f flexInt) or(def int64) int64 {
	if !f.ok {
		return def
	}
	return f.val
}

func parseIntValue(data []byte) (int64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, false
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		return parseIntPrefix(s)
	case c == '-' || (c >= '0' && c <= '9'):
		if i, err := strconv.ParseInt(string(data), 10, 64); err == nil {
			return i, true
		}
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return truncToInt64(f)
	default:
		return 0, false
	}
}

// parseIntPrefix parses optional leading whitespace, an optional sign and a
// run of decimal digits. Trailing characters are ignored.
func parseIntPrefix(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	u, err := strconv.ParseUint(s[:end], 10, 64)
	if err != nil || u > math.MaxInt64 {
		if neg {
			return math.MinInt64, true
		}
		return math.MaxInt64, true
	}
	if neg {
		return -int64(u), true
	}
	return int64(u), true
}

func truncToInt64(f float64) (int64, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt64:
		return math.MaxInt64, true
	case f <= math.MinInt64:
		return math.MinInt64, true
	default:
		return int64(math.Trunc(f)), true
	}
}

// flexString accepts a non-empty string or a non-zero number as a robot id.
type flexString struct {
	val string
}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch c := data[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			f.val = strings.TrimSpace(s)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		if n, err := strconv.ParseFloat(string(data), 64); err == nil && n != 0 {
			f.val = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	if !ValidRobotSegment(f.val) {
		f.val = ""
	}
	return nil
}
