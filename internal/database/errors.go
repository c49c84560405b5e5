// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package database

import (
	"errors"
	"io"
)

// ErrUnsupportedDialect is returned by store constructors given a DB whose
// dialect they have no schema for.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// closeQuietly closes a resource and explicitly ignores any error.
// Use this for cleanup in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
