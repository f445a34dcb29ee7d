package models

import "time"

// Kinds of alert events flowing from the correlator to the fanout.
const (
	EventNewAlert         = "NEW_ALERT"
	EventUpdatedAlert     = "UPDATED_ALERT"
	EventStatisticsUpdate = "STATISTICS_UPDATE"
)

// AlertEvent is the ephemeral message handed across the async boundary.
// The embedded alert is a full snapshot; consumers must never treat it
// as a delta because events may arrive out of order.
type AlertEvent struct {
	Kind   string `json:"kind"`
	UserID string `json:"user_id"`
	Alert  *Alert `json:"alert,omitempty"`
}

// AlertStatistics is the per-user summary pushed on the statistics channel.
type AlertStatistics struct {
	ActiveCount         int `json:"active_count"`
	CriticalCount       int `json:"critical_count"`
	UnacknowledgedCount int `json:"unacknowledged_count"`
}

// DeviceStatusUpdate is the low-level push sent on the device status
// channel, bypassing the alert event pipeline.
type DeviceStatusUpdate struct {
	DeviceID  string    `json:"device_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// MonitorSignal is the raw payload a monitoring collaborator publishes
// when it observes a state change on a monitored entity.
type MonitorSignal struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SourceID    string `json:"source_id"`
	SourceType  string `json:"source_type"`
	SourceName  string `json:"source_name"`
	UserID      string `json:"user_id"`
}
