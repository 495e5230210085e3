package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
)

const alertColumns = `id, user_id, medication_id, type, severity, title, message, is_read, created_at`

type alertRepository struct {
	BaseRepository
}

func (r *alertRepository) Get(ctx context.Context, id uuid.UUID) (*model.Alert, error) {
	var alert model.Alert
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	if err := getOne(ctx, r.db, &alert, "alert", query, id); err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) List(ctx context.Context, userID uuid.UUID, filter model.AlertFilter) ([]*model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = ?`
	args := []interface{}{userID}
	if filter.UnreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	var alerts []*model.Alert
	if err := r.db.SelectContext(ctx, &alerts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

func (r *alertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE alerts SET is_read = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark alert read: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *alertRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE alerts SET is_read = ? WHERE user_id = ? AND is_read = ?`), true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark alerts read: %w", err)
	}
	return res.RowsAffected()
}

func (r *alertRepository) CountUnread(ctx context.Context, userID uuid.UUID, severity model.AlertSeverity) (int, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE user_id = ? AND is_read = ?`
	args := []interface{}{userID, false}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, severity)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count unread alerts: %w", err)
	}
	return n, nil
}
