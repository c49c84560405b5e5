// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ecosort/internal/query"
	"github.com/tomtom215/ecosort/internal/validation"
)

// overviewResponse flattens the overview next to "ok".
type overviewResponse struct {
	OK bool `json:"ok"`
	*query.Overview
}

type robotSeriesResponse struct {
	OK bool `json:"ok"`
	*query.RobotSeries
}

// parseWindow reads ?from&to. It writes the 400 itself and reports false on
// failure.
func (h *Handler) parseWindow(w http.ResponseWriter, r *http.Request) (query.Window, bool) {
	q := r.URL.Query()
	win, err := query.ParseWindow(q.Get("from"), q.Get("to"), h.now())
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error(), err)
		return query.Window{}, false
	}
	return win, true
}

// StatsOverview handles GET /api/stats/overview.
func (h *Handler) StatsOverview(w http.ResponseWriter, r *http.Request) {
	win, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	overview, err := h.engine.Overview(r.Context(), win)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabaseError, "failed to compute overview", err)
		return
	}

	respondJSON(w, http.StatusOK, overviewResponse{OK: true, Overview: overview})
}

// StatsRobot handles GET /api/stats/robot/{id}.
func (h *Handler) StatsRobot(w http.ResponseWriter, r *http.Request) {
	req := validation.RobotRequest{RobotID: chi.URLParam(r, "id")}
	if verr := validation.Validate(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details, nil)
		return
	}

	win, ok := h.parseWindow(w, r)
	if !ok {
		return
	}

	series, err := h.engine.RobotSeries(r.Context(), req.RobotID, win)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabaseError, "failed to load robot series", err)
		return
	}

	respondJSON(w, http.StatusOK, robotSeriesResponse{OK: true, RobotSeries: series})
}
