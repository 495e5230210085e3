package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Nayana519/PulseGuard/internal/model"
)

const doseLogColumns = `id, medication_id, scheduled_time, taken_time, status, notes, created_at`

type doseLogRepository struct {
	BaseRepository
}

func (r *doseLogRepository) LatestTaken(ctx context.Context, medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	latest := make(map[uuid.UUID]time.Time)
	if len(medicationIDs) == 0 {
		return latest, nil
	}

	query, args, err := sqlx.In(`SELECT medication_id, taken_time, created_at FROM dose_logs
		WHERE status = ? AND medication_id IN (?)`, model.DoseStatusTaken, medicationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build latest dose query: %w", err)
	}

	var rows []struct {
		MedicationID uuid.UUID  `db:"medication_id"`
		TakenTime    *time.Time `db:"taken_time"`
		CreatedAt    time.Time  `db:"created_at"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get latest doses: %w", err)
	}

	for _, row := range rows {
		t := row.CreatedAt
		if row.TakenTime != nil {
			t = *row.TakenTime
		}
		if cur, ok := latest[row.MedicationID]; !ok || t.After(cur) {
			latest[row.MedicationID] = t
		}
	}
	return latest, nil
}

func (r *doseLogRepository) List(ctx context.Context, medicationID uuid.UUID, limit int) ([]*model.DoseLog, error) {
	if limit <= 0 {
		limit = 30
	}
	query := `SELECT ` + doseLogColumns + ` FROM dose_logs
		WHERE medication_id = ?
		ORDER BY scheduled_time DESC
		LIMIT ?`

	var logs []*model.DoseLog
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(query), medicationID, limit); err != nil {
		return nil, fmt.Errorf("failed to list dose logs: %w", err)
	}
	return logs, nil
}

func (r *doseLogRepository) ListForPatientSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*model.DoseLog, error) {
	query := `SELECT d.id, d.medication_id, d.scheduled_time, d.taken_time, d.status, d.notes, d.created_at
		FROM dose_logs d
		JOIN medications m ON m.id = d.medication_id
		WHERE m.patient_id = ? AND d.created_at >= ?
		ORDER BY d.created_at DESC`

	var logs []*model.DoseLog
	if err := r.db.SelectContext(ctx, &logs, r.db.Rebind(query), patientID, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to list patient dose logs: %w", err)
	}
	return logs, nil
}
