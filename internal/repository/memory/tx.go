package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
)

type tx struct {
	st *state
}

func (t *tx) CreateMedication(ctx context.Context, med *model.Medication) error {
	t.st.medications[med.ID] = copyMedication(med)
	return nil
}

func (t *tx) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	m, ok := t.st.medications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyMedication(m), nil
}

func (t *tx) DeactivateMedication(ctx context.Context, id uuid.UUID, now time.Time) error {
	m, ok := t.st.medications[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Active = false
	m.UpdatedAt = now
	return nil
}

func (t *tx) AdvanceNextDoseTime(ctx context.Context, medicationID uuid.UUID, next time.Time, now time.Time) (bool, error) {
	m, ok := t.st.medications[medicationID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if m.NextDoseTime != nil && next.Before(*m.NextDoseTime) {
		return false, nil
	}
	m.NextDoseTime = &next
	m.UpdatedAt = now
	return true, nil
}

func (t *tx) ConsumeStock(ctx context.Context, medicationID uuid.UUID, amount float64, now time.Time) error {
	m, ok := t.st.medications[medicationID]
	if !ok {
		return repository.ErrNotFound
	}
	m.CurrentStock -= amount
	if m.CurrentStock < 0 {
		m.CurrentStock = 0
	}
	m.UpdatedAt = now
	return nil
}

func (t *tx) CreateDoseLog(ctx context.Context, log *model.DoseLog) error {
	cp := *log
	t.st.doseLogs = append(t.st.doseLogs, &cp)
	return nil
}

func (t *tx) CreateAlert(ctx context.Context, alert *model.Alert) error {
	cp := *alert
	t.st.alerts = append(t.st.alerts, &cp)
	return nil
}

func (t *tx) MissedDoseExists(ctx context.Context, medicationID uuid.UUID, scheduled time.Time, tolerance time.Duration) (bool, error) {
	for _, l := range t.st.doseLogs {
		if l.MedicationID == medicationID && l.Status == model.DoseStatusMissed &&
			absDuration(l.ScheduledTime.Sub(scheduled)) <= tolerance {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) UnreadAlertExists(ctx context.Context, userID, medicationID uuid.UUID, typ model.AlertType) (bool, error) {
	for _, a := range t.st.alerts {
		if a.UserID == userID && a.Type == typ && !a.IsRead &&
			a.MedicationID != nil && *a.MedicationID == medicationID {
			return true, nil
		}
	}
	return false, nil
}

func (t *tx) LockOverdueMedications(ctx context.Context, cutoff time.Time) ([]*model.Medication, error) {
	var meds []*model.Medication
	for _, m := range t.st.medications {
		if m.Active && m.NextDoseTime != nil && !m.NextDoseTime.After(cutoff) {
			meds = append(meds, copyMedication(m))
		}
	}
	sortMedications(meds)
	return meds, nil
}

func (t *tx) LowStockMedications(ctx context.Context) ([]*model.Medication, error) {
	var meds []*model.Medication
	for _, m := range t.st.medications {
		if m.Active && m.LowStock() {
			meds = append(meds, copyMedication(m))
		}
	}
	sortMedications(meds)
	return meds, nil
}

func (t *tx) CaregiversOf(ctx context.Context, patientID uuid.UUID) ([]*model.User, error) {
	var caregivers []*model.User
	for _, l := range t.st.links {
		if l.PatientID != patientID {
			continue
		}
		if u, ok := t.st.users[l.CaregiverID]; ok {
			cp := *u
			caregivers = append(caregivers, &cp)
		}
	}
	return caregivers, nil
}

func (t *tx) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
