package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus tracks the lifecycle of an extraction session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionComplete   SessionStatus = "complete"
	SessionIncomplete SessionStatus = "incomplete"
)

// SessionSummary carries the aggregate counts recorded when a session
// completes. A session with all counts at zero is still a valid, complete
// session: an empty flowsheet is not an error.
type SessionSummary struct {
	StreamCount    int     `json:"stream_count"`
	EquipmentCount int     `json:"equipment_count"`
	HexCount       int     `json:"hex_count"`
	TotalDutyKW    float64 `json:"total_duty_kw"`
	TotalAreaM2    float64 `json:"total_area_m2"`
}

// ExtractionSession identifies one extraction run. It owns every stream,
// equipment and heat-exchanger record produced during the run; records are
// never shared across sessions.
type ExtractionSession struct {
	ID             string         `json:"id" db:"id"`
	ExtractionTime time.Time      `json:"extraction_time" db:"extraction_time"`
	SimFilePath    string         `json:"sim_file_path,omitempty" db:"sim_file_path"`
	HexFilePath    string         `json:"hex_file_path,omitempty" db:"hex_file_path"`
	Status         SessionStatus  `json:"status" db:"status"`
	Summary        SessionSummary `json:"summary"`
	Notes          string         `json:"notes,omitempty" db:"notes"`
}

// NewSessionID builds a timestamp-derived session identifier with a short
// random suffix so that two runs within the same second stay distinct.
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405"), uuid.NewString()[:8])
}
