// EcoSort - Robot Telemetry Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ecosort

package telemetry

import (
	"strings"
)

const (
	telemetrySuffix = "telemetry"
	commandsSuffix  = "commands"
)

// TopicScheme builds and parses {namespace}{sep}{robot_id}{sep}{kind} topics.
// MQTT uses "/" with "+" as the single-segment wildcard; NATS uses "." with "*".
type TopicScheme struct {
	Namespace string
	Separator string
	Wildcard  string
}

// MQTTScheme returns the scheme used over MQTT.
func MQTTScheme(namespace string) TopicScheme {
	return TopicScheme{Namespace: namespace, Separator: "/", Wildcard: "+"}
}

// NATSScheme returns the scheme used over NATS subjects.
func NATSScheme(namespace string) TopicScheme {
	return TopicScheme{Namespace: namespace, Separator: ".", Wildcard: "*"}
}

// TelemetryFilter is the subscription pattern matching every robot's telemetry.
func (s TopicScheme) TelemetryFilter() string {
	return s.join(s.Wildcard, telemetrySuffix)
}

// TelemetryTopic is the topic a robot publishes telemetry on.
func (s TopicScheme) TelemetryTopic(robotID string) string {
	return s.join(robotID, telemetrySuffix)
}

// CommandTopic is the topic a robot listens on for commands.
func (s TopicScheme) CommandTopic(robotID string) string {
	return s.join(robotID, commandsSuffix)
}

// RobotFromTelemetryTopic extracts the robot segment of a telemetry topic.
// It reports false unless the topic has exactly three segments, the first
// equal to the namespace, the last "telemetry", and a non-empty middle.
func (s TopicScheme) RobotFromTelemetryTopic(topic string) (string, bool) {
	parts := strings.Split(topic, s.Separator)
	if len(parts) != 3 || parts[0] != s.Namespace || parts[2] != telemetrySuffix {
		return "", false
	}
	if !ValidRobotSegment(parts[1]) {
		return "", false
	}
	return parts[1], true
}

// ValidRobotSegment reports whether id can be used as a single topic segment
// on both transports.
func ValidRobotSegment(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/.+*#> \t\r\n")
}

func (s TopicScheme) join(robot, kind string) string {
	return s.Namespace + s.Separator + robot + s.Separator + kind
}
