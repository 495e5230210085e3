package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
)

const medicationColumns = `id, patient_id, name, rxcui, form, dose_amount, dose_unit,
	frequency_hours, half_life_hours, current_stock, stock_threshold,
	next_dose_time, active, created_at, updated_at`

type medicationRepository struct {
	BaseRepository
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	var med model.Medication
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = ?`
	if err := getOne(ctx, r.db, &med, "medication", query, id); err != nil {
		return nil, err
	}
	return &med, nil
}

func (r *medicationRepository) ListActive(ctx context.Context, patientID uuid.UUID) ([]*model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications
		WHERE patient_id = ? AND active = ?
		ORDER BY created_at, id`

	var meds []*model.Medication
	if err := r.db.SelectContext(ctx, &meds, r.db.Rebind(query), patientID, true); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}
