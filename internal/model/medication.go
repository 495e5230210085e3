package model

import (
	"time"

	"github.com/google/uuid"
)

// Defaults applied to new medications when the caller leaves a field empty.
const (
	DefaultForm           = "pill"
	DefaultDoseUnit       = "mg"
	DefaultHalfLifeHours  = 6.0
	DefaultStockThreshold = 5.0
)

type Medication struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	Name           string     `json:"name" db:"name" validate:"required,max=200"`
	RxCUI          *string    `json:"rxcui,omitempty" db:"rxcui"`
	Form           string     `json:"form" db:"form"`
	DoseAmount     float64    `json:"dose_amount" db:"dose_amount" validate:"gt=0"`
	DoseUnit       string     `json:"dose_unit" db:"dose_unit"`
	FrequencyHours float64    `json:"frequency_hours" db:"frequency_hours" validate:"gt=0"`
	HalfLifeHours  float64    `json:"half_life_hours" db:"half_life_hours" validate:"gt=0"`
	CurrentStock   float64    `json:"current_stock" db:"current_stock" validate:"gte=0"`
	StockThreshold float64    `json:"stock_threshold" db:"stock_threshold" validate:"gte=0"`
	NextDoseTime   *time.Time `json:"next_dose_time,omitempty" db:"next_dose_time"`
	Active         bool       `json:"active" db:"active"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// LowStock reports whether the remaining stock is at or below the threshold.
func (m *Medication) LowStock() bool {
	return m.CurrentStock <= m.StockThreshold
}

// Frequency is the dosing interval as a duration.
func (m *Medication) Frequency() time.Duration {
	return time.Duration(m.FrequencyHours * float64(time.Hour))
}

// ApplyDefaults fills the optional fields with their defaults.
func (m *Medication) ApplyDefaults() {
	if m.Form == "" {
		m.Form = DefaultForm
	}
	if m.DoseUnit == "" {
		m.DoseUnit = DefaultDoseUnit
	}
	if m.HalfLifeHours == 0 {
		m.HalfLifeHours = DefaultHalfLifeHours
	}
	if m.StockThreshold == 0 {
		m.StockThreshold = DefaultStockThreshold
	}
}
