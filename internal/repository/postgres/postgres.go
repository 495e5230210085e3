package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Nayana519/PulseGuard/internal/repository"
)

// Store is the sqlx backed repository.Store. Queries are written with ?
// placeholders and rebound for the active driver.
type Store struct {
	BaseRepository
	medications *medicationRepository
	doseLogs    *doseLogRepository
	alerts      *alertRepository
	caregivers  *caregiverRepository
	users       *userRepository
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	base := NewBaseRepository(db)
	return &Store{
		BaseRepository: base,
		medications:    &medicationRepository{base},
		doseLogs:       &doseLogRepository{base},
		alerts:         &alertRepository{base},
		caregivers:     &caregiverRepository{base},
		users:          &userRepository{base},
	}
}

func (s *Store) Medications() repository.MedicationRepository { return s.medications }
func (s *Store) DoseLogs() repository.DoseLogRepository       { return s.doseLogs }
func (s *Store) Alerts() repository.AlertRepository           { return s.alerts }
func (s *Store) Caregivers() repository.CaregiverRepository   { return s.caregivers }
func (s *Store) Users() repository.UserRepository             { return s.users }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	return s.BaseRepository.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&txRepository{tx: tx, lockRows: s.IsPostgres()})
	})
}

func getOne(ctx context.Context, q sqlx.ExtContext, dest interface{}, what, query string, args ...interface{}) error {
	if err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to get %s: %w", what, err)
	}
	return nil
}

func exists(ctx context.Context, q sqlx.ExtContext, what, query string, args ...interface{}) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, q.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("failed to check %s: %w", what, err)
	}
	return n > 0, nil
}
