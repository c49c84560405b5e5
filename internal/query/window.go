// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package query

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// DefaultWindow is the span used when "from" is omitted.
const DefaultWindow = 24 * time.Hour

// ErrInvalidWindow is returned for unparseable or inverted ranges.
var ErrInvalidWindow = errors.New("invalid time window")

// Window is an inclusive [From, To] range in UTC.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ParseWindow parses optional ISO-8601 bounds. An empty to means now; an
// empty from means 24 hours before to.
func ParseWindow(from, to string, now time.Time) (Window, error) {
	w := Window{To: now.UTC()}

	if s := strings.TrimSpace(to); s != "" {
		t, err := iso8601.ParseString(s)
		if err != nil {
			return Window{}, fmt.Errorf("%w: 'to' is not an ISO-8601 timestamp: %q", ErrInvalidWindow, to)
		}
		w.To = t.UTC()
	}

	w.From = w.To.Add(-DefaultWindow)
	if s := strings.TrimSpace(from); s != "" {
		t, err := iso8601.ParseString(s)
		if err != nil {
			return Window{}, fmt.Errorf("%w: 'from' is not an ISO-8601 timestamp: %q", ErrInvalidWindow, from)
		}
		w.From = t.UTC()
	}

	if w.From.After(w.To) {
		return Window{}, fmt.Errorf("%w: 'from' (%s) is after 'to' (%s)",
			ErrInvalidWindow, w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	return w, nil
}
