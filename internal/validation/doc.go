// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

// Package validation provides struct validation using go-playground/validator v10.
//
// A singleton validator is built once with the custom "robotid" tag, which
// accepts ids usable as one MQTT or NATS topic segment. Field names in
// messages are taken from json tags.
//
// Handlers validate request structs and render failures as BAD_REQUEST:
//
//	req := validation.CommandRequest{RobotID: id, Command: string(body)}
//	if verr := validation.Validate(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
//	    return
//	}
package validation
