package model

import (
	"time"

	"github.com/google/uuid"
)

type DoseStatus string

const (
	DoseStatusPending DoseStatus = "pending"
	DoseStatusTaken   DoseStatus = "taken"
	DoseStatusMissed  DoseStatus = "missed"
)

func (s DoseStatus) Valid() bool {
	switch s {
	case DoseStatusPending, DoseStatusTaken, DoseStatusMissed:
		return true
	}
	return false
}

// DoseLog is written once and never updated.
type DoseLog struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	MedicationID  uuid.UUID  `json:"medication_id" db:"medication_id"`
	ScheduledTime time.Time  `json:"scheduled_time" db:"scheduled_time"`
	TakenTime     *time.Time `json:"taken_time,omitempty" db:"taken_time"`
	Status        DoseStatus `json:"status" db:"status"`
	Notes         string     `json:"notes" db:"notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
