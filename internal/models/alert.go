package models

import (
	"fmt"
	"time"
)

// Severity levels for monitoring signals. INFO-level signals are
// suppressed before they ever become an alert row.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeveritySevere   = "SEVERE"
	SeverityCritical = "CRITICAL"
)

// Alert lifecycle states. CLEARED is terminal; rows are never hard-deleted.
const (
	StatusActive       = "ACTIVE"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusResolved     = "RESOLVED"
	StatusCleared      = "CLEARED"
)

// Kinds of monitored conditions.
const (
	TypeDeviceDown       = "DEVICE_DOWN"
	TypeDeviceUp         = "DEVICE_UP"
	TypeInterfaceDown    = "INTERFACE_DOWN"
	TypeInterfaceUp      = "INTERFACE_UP"
	TypeThresholdBreach  = "THRESHOLD_BREACH"
	TypeSystemUnitFailed = "SYSTEM_UNIT_FAILED"
	TypeTrapReceived     = "TRAP_RECEIVED"
)

// Monitored entity kinds an alert can originate from.
const (
	SourceDevice     = "DEVICE"
	SourceInterface  = "INTERFACE"
	SourceSystemUnit = "SYSTEM_UNIT"
)

// Alert is the persistent record of a correlated monitoring condition.
type Alert struct {
	ID              int64      `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	AlertKey        string     `json:"alert_key" db:"alert_key"`
	Type            string     `json:"type" db:"type"`
	Severity        string     `json:"severity" db:"severity"`
	SourceType      string     `json:"source_type" db:"source_type"`
	SourceID        string     `json:"source_id" db:"source_id"`
	SourceName      string     `json:"source_name" db:"source_name"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	Status          string     `json:"status" db:"status"`
	OccurrenceCount int        `json:"occurrence_count" db:"occurrence_count"`
	FirstOccurrence time.Time  `json:"first_occurrence" db:"first_occurrence"`
	LastOccurrence  time.Time  `json:"last_occurrence" db:"last_occurrence"`
	Acknowledged    bool       `json:"acknowledged" db:"acknowledged"`
	AcknowledgedBy  string     `json:"acknowledged_by,omitempty" db:"acknowledged_by"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	AckComment      string     `json:"ack_comment,omitempty" db:"ack_comment"`
	ResolvedBy      string     `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// AlertKey derives the correlation key for a signal. It is stable across
// restarts so recurring signals for the same condition always collide.
func AlertKey(alertType, sourceType, sourceID, severity string) string {
	return fmt.Sprintf("%s|%s|%s|%s", alertType, sourceType, sourceID, severity)
}

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved, StatusCleared:
		return true
	}
	return false
}
