// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/ecosort/internal/logging"
	"github.com/tomtom215/ecosort/internal/telemetry"
	"github.com/tomtom215/ecosort/internal/validation"
)

// maxCommandBodyBytes bounds command bodies.
const maxCommandBodyBytes = 64 << 10

type recentResponse struct {
	OK      bool               `json:"ok"`
	Count   int                `json:"count"`
	Records []telemetry.Record `json:"records"`
}

type commandResponse struct {
	OK      bool            `json:"ok"`
	RobotID string          `json:"robotId"`
	Command json.RawMessage `json:"command"`
}

// RecentRobots handles GET /api/robots?limit=N.
func (h *Handler) RecentRobots(w http.ResponseWriter, r *http.Request) {
	req := validation.RecentRequest{}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, CodeBadRequest, "limit must be an integer", err)
			return
		}
		req.Limit = n
	}
	if verr := validation.Validate(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	records, err := h.recent.Recent(r.Context(), req.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabaseError, "failed to load recent telemetry", err)
		return
	}

	respondJSON(w, http.StatusOK, recentResponse{OK: true, Count: len(records), Records: records})
}

// RobotCommand handles POST /api/robot/{id}/command. The body is any JSON
// value and is forwarded verbatim; an empty body is sent as {}. The reply does not depend on whether the
// channel was connected: delivery is best effort and failures are logged.
func (h *Handler) RobotCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "command body too large", err)
			return
		}
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, "failed to read request body", err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	req := validation.CommandRequest{
		RobotID: chi.URLParam(r, "id"),
		Command: string(body),
	}
	if verr := validation.Validate(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	command := json.RawMessage(body)
	sent := h.commands.Send(r.Context(), req.RobotID, command)
	logging.Ctx(r.Context()).Debug().
		Str("robot_id", req.RobotID).
		Bool("sent", sent).
		Msg("Command request handled")

	respondJSON(w, http.StatusOK, commandResponse{OK: true, RobotID: req.RobotID, Command: command})
}
