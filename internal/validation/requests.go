// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package validation

// RobotRequest identifies a robot from a URL path.
type RobotRequest struct {
	RobotID string `json:"robot_id" validate:"required,max=128,robotid"`
}

// CommandRequest is a command addressed to a robot. Command holds the raw
// request body and must be a JSON value of any kind.
type CommandRequest struct {
	RobotID string `json:"robot_id" validate:"required,max=128,robotid"`
	Command string `json:"command" validate:"required,json"`
}

// RecentRequest is the query of the recent-records listing. Zero means the
// default page size; the store caps large values.
type RecentRequest struct {
	Limit int `json:"limit" validate:"min=0"`
}
