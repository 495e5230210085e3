package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
)

type txRepository struct {
	tx       *sqlx.Tx
	lockRows bool
}

func (t *txRepository) exec(ctx context.Context, what, query string, args ...interface{}) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.tx.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to %s: %w", what, err)
	}
	return n, nil
}

func (t *txRepository) CreateMedication(ctx context.Context, med *model.Medication) error {
	query := `INSERT INTO medications (` + medicationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.exec(ctx, "create medication", query,
		med.ID, med.PatientID, med.Name, med.RxCUI, med.Form, med.DoseAmount, med.DoseUnit,
		med.FrequencyHours, med.HalfLifeHours, med.CurrentStock, med.StockThreshold,
		utcPtr(med.NextDoseTime), med.Active, med.CreatedAt.UTC(), med.UpdatedAt.UTC(),
	)
	return err
}

func (t *txRepository) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	var med model.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`
	if t.lockRows {
		query += ` FOR UPDATE`
	}
	if err := getOne(ctx, t.tx, &med, "medication", query, id); err != nil {
		return nil, err
	}
	return &med, nil
}

func (t *txRepository) DeactivateMedication(ctx context.Context, id uuid.UUID, now time.Time) error {
	n, err := t.exec(ctx, "deactivate medication",
		`UPDATE medications SET active = ?, updated_at = ? WHERE id = ?`, false, now.UTC(), id)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AdvanceNextDoseTime never moves the schedule backwards.
func (t *txRepository) AdvanceNextDoseTime(ctx context.Context, medicationID uuid.UUID, next time.Time, now time.Time) (bool, error) {
	n, err := t.exec(ctx, "advance next dose time",
		`UPDATE medications SET next_dose_time = ?, updated_at = ?
		WHERE id = ? AND (next_dose_time IS NULL OR next_dose_time <= ?)`,
		next.UTC(), now.UTC(), medicationID, next.UTC())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *txRepository) ConsumeStock(ctx context.Context, medicationID uuid.UUID, amount float64, now time.Time) error {
	n, err := t.exec(ctx, "consume stock",
		`UPDATE medications
		SET current_stock = CASE WHEN current_stock - ? < 0 THEN 0 ELSE current_stock - ? END,
			updated_at = ?
		WHERE id = ?`,
		amount, amount, now.UTC(), medicationID)
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *txRepository) CreateDoseLog(ctx context.Context, log *model.DoseLog) error {
	query := `INSERT INTO dose_logs (` + doseLogColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := t.exec(ctx, "create dose log", query,
		log.ID, log.MedicationID, log.ScheduledTime.UTC(), utcPtr(log.TakenTime),
		log.Status, log.Notes, log.CreatedAt.UTC(),
	)
	return err
}

func (t *txRepository) CreateAlert(ctx context.Context, alert *model.Alert) error {
	query := `INSERT INTO alerts (` + alertColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := t.exec(ctx, "create alert", query,
		alert.ID, alert.UserID, alert.MedicationID, alert.Type, alert.Severity,
		alert.Title, alert.Message, alert.IsRead, alert.CreatedAt.UTC(),
	)
	return err
}

func (t *txRepository) MissedDoseExists(ctx context.Context, medicationID uuid.UUID, scheduled time.Time, tolerance time.Duration) (bool, error) {
	return exists(ctx, t.tx, "missed dose log",
		`SELECT COUNT(*) FROM dose_logs
		WHERE medication_id = ? AND status = ? AND scheduled_time >= ? AND scheduled_time <= ?`,
		medicationID, model.DoseStatusMissed, scheduled.Add(-tolerance).UTC(), scheduled.Add(tolerance).UTC())
}

func (t *txRepository) UnreadAlertExists(ctx context.Context, userID, medicationID uuid.UUID, typ model.AlertType) (bool, error) {
	return exists(ctx, t.tx, "unread alert",
		`SELECT COUNT(*) FROM alerts
		WHERE user_id = ? AND medication_id = ? AND type = ? AND is_read = ?`,
		userID, medicationID, typ, false)
}

// LockOverdueMedications skips rows another transaction holds so concurrent
// sweeps never process the same medication twice.
func (t *txRepository) LockOverdueMedications(ctx context.Context, cutoff time.Time) ([]*model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications
		WHERE active = ? AND next_dose_time IS NOT NULL AND next_dose_time <= ?
		ORDER BY next_dose_time, id`
	if t.lockRows {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	var meds []*model.Medication
	if err := t.tx.SelectContext(ctx, &meds, t.tx.Rebind(query), true, cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("failed to select overdue medications: %w", err)
	}
	return meds, nil
}

func (t *txRepository) LowStockMedications(ctx context.Context) ([]*model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications
		WHERE active = ? AND current_stock <= stock_threshold
		ORDER BY created_at, id`
	if t.lockRows {
		query += ` FOR UPDATE SKIP LOCKED`
	}

	var meds []*model.Medication
	if err := t.tx.SelectContext(ctx, &meds, t.tx.Rebind(query), true); err != nil {
		return nil, fmt.Errorf("failed to select low stock medications: %w", err)
	}
	return meds, nil
}

func (t *txRepository) CaregiversOf(ctx context.Context, patientID uuid.UUID) ([]*model.User, error) {
	query := `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM users u
		JOIN caregiver_links l ON l.caregiver_id = u.id
		WHERE l.patient_id = ?
		ORDER BY u.name`

	var caregivers []*model.User
	if err := t.tx.SelectContext(ctx, &caregivers, t.tx.Rebind(query), patientID); err != nil {
		return nil, fmt.Errorf("failed to list caregivers: %w", err)
	}
	return caregivers, nil
}

func (t *txRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := getOne(ctx, t.tx, &user, "user", `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
