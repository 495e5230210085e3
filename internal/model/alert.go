package model

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertTypeMissedDose      AlertType = "missed_dose"
	AlertTypeLowStock        AlertType = "low_stock"
	AlertTypeDrugInteraction AlertType = "drug_interaction"
)

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

type Alert struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	UserID       uuid.UUID     `json:"user_id" db:"user_id"`
	MedicationID *uuid.UUID    `json:"medication_id,omitempty" db:"medication_id"`
	Type         AlertType     `json:"type" db:"type"`
	Severity     AlertSeverity `json:"severity" db:"severity"`
	Title        string        `json:"title" db:"title"`
	Message      string        `json:"message" db:"message"`
	IsRead       bool          `json:"is_read" db:"is_read"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// NewAlert builds an unread alert stamped with the given time.
func NewAlert(userID uuid.UUID, medicationID *uuid.UUID, typ AlertType, severity AlertSeverity, title, message string, now time.Time) *Alert {
	return &Alert{
		ID:           uuid.New(),
		UserID:       userID,
		MedicationID: medicationID,
		Type:         typ,
		Severity:     severity,
		Title:        title,
		Message:      message,
		CreatedAt:    now,
	}
}

type AlertFilter struct {
	UnreadOnly bool
	Limit      int
}
