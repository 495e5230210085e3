package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
)

var ErrNotFound = errors.New("not found")

// All repository interfaces in one file
type (
	MedicationRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		ListActive(ctx context.Context, patientID uuid.UUID) ([]*model.Medication, error)
	}

	DoseLogRepository interface {
		// LatestTaken returns the most recent taken time per medication. Medications
		// without a taken dose are absent from the map.
		LatestTaken(ctx context.Context, medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)
		List(ctx context.Context, medicationID uuid.UUID, limit int) ([]*model.DoseLog, error)
		// ListForPatientSince returns logs recorded at or after since across the patient's medications.
		ListForPatientSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*model.DoseLog, error)
	}

	AlertRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Alert, error)
		List(ctx context.Context, userID uuid.UUID, filter model.AlertFilter) ([]*model.Alert, error)
		MarkRead(ctx context.Context, id uuid.UUID) error
		MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
		// CountUnread counts every unread alert of the user. An empty severity counts all severities.
		CountUnread(ctx context.Context, userID uuid.UUID, severity model.AlertSeverity) (int, error)
	}

	CaregiverRepository interface {
		ListPatients(ctx context.Context, caregiverID uuid.UUID) ([]*model.User, error)
		IsLinked(ctx context.Context, caregiverID, patientID uuid.UUID) (bool, error)
		Link(ctx context.Context, link *model.CaregiverLink) error
	}

	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Create(ctx context.Context, user *model.User) error
	}

	// Tx is the write set of one atomic unit. Nothing it does is visible to
	// other callers until the surrounding WithTx returns nil.
	Tx interface {
		CreateMedication(ctx context.Context, med *model.Medication) error
		GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error)
		DeactivateMedication(ctx context.Context, id uuid.UUID, now time.Time) error
		// AdvanceNextDoseTime moves next_dose_time forward only. It reports whether the row changed.
		AdvanceNextDoseTime(ctx context.Context, medicationID uuid.UUID, next time.Time, now time.Time) (bool, error)
		// ConsumeStock subtracts amount, clamping at zero.
		ConsumeStock(ctx context.Context, medicationID uuid.UUID, amount float64, now time.Time) error
		CreateDoseLog(ctx context.Context, log *model.DoseLog) error
		CreateAlert(ctx context.Context, alert *model.Alert) error
		// MissedDoseExists reports a missed log scheduled within tolerance of scheduled.
		MissedDoseExists(ctx context.Context, medicationID uuid.UUID, scheduled time.Time, tolerance time.Duration) (bool, error)
		UnreadAlertExists(ctx context.Context, userID, medicationID uuid.UUID, typ model.AlertType) (bool, error)
		// LockOverdueMedications returns active medications with next_dose_time at or
		// before cutoff, locking their rows where the database supports it.
		LockOverdueMedications(ctx context.Context, cutoff time.Time) ([]*model.Medication, error)
		LowStockMedications(ctx context.Context) ([]*model.Medication, error)
		CaregiversOf(ctx context.Context, patientID uuid.UUID) ([]*model.User, error)
		GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	}

	Store interface {
		Medications() MedicationRepository
		DoseLogs() DoseLogRepository
		Alerts() AlertRepository
		Caregivers() CaregiverRepository
		Users() UserRepository
		// WithTx runs fn in one transaction. fn's error rolls everything back.
		WithTx(ctx context.Context, fn func(tx Tx) error) error
		Ping(ctx context.Context) error
	}
)
