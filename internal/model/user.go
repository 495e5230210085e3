package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

// User is read-only to the monitoring engine. Name and email feed alert text and delivery.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CaregiverLink associates a caregiver with a patient they watch over.
type CaregiverLink struct {
	CaregiverID uuid.UUID `json:"caregiver_id" db:"caregiver_id"`
	PatientID   uuid.UUID `json:"patient_id" db:"patient_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
