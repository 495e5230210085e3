package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
)

const userColumns = `id, name, email, role, created_at`

type userRepository struct {
	BaseRepository
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		user.ID, user.Name, user.Email, user.Role, user.CreatedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := getOne(ctx, r.db, &user, "user", `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := getOne(ctx, r.db, &user, "user by email", `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, email); err != nil {
		return nil, err
	}
	return &user, nil
}

type caregiverRepository struct {
	BaseRepository
}

func (r *caregiverRepository) ListPatients(ctx context.Context, caregiverID uuid.UUID) ([]*model.User, error) {
	query := `SELECT u.id, u.name, u.email, u.role, u.created_at
		FROM users u
		JOIN caregiver_links l ON l.patient_id = u.id
		WHERE l.caregiver_id = ?
		ORDER BY u.name`

	var patients []*model.User
	if err := r.db.SelectContext(ctx, &patients, r.db.Rebind(query), caregiverID); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *caregiverRepository) IsLinked(ctx context.Context, caregiverID, patientID uuid.UUID) (bool, error) {
	return exists(ctx, r.db, "caregiver link",
		`SELECT COUNT(*) FROM caregiver_links WHERE caregiver_id = ? AND patient_id = ?`, caregiverID, patientID)
}

func (r *caregiverRepository) Link(ctx context.Context, link *model.CaregiverLink) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO caregiver_links (caregiver_id, patient_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (caregiver_id, patient_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), link.CaregiverID, link.PatientID, link.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to link caregiver: %w", err)
	}
	return nil
}
