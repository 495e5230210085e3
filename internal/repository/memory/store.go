// Package memory is an in-process Store. Transactions stage their writes on
// a copy of the state and swap it in on success.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
)

type state struct {
	medications map[uuid.UUID]*model.Medication
	doseLogs    []*model.DoseLog
	alerts      []*model.Alert
	users       map[uuid.UUID]*model.User
	links       []model.CaregiverLink
}

func newState() *state {
	return &state{
		medications: make(map[uuid.UUID]*model.Medication),
		users:       make(map[uuid.UUID]*model.User),
	}
}

func (s *state) clone() *state {
	c := &state{
		medications: make(map[uuid.UUID]*model.Medication, len(s.medications)),
		doseLogs:    make([]*model.DoseLog, len(s.doseLogs)),
		alerts:      make([]*model.Alert, len(s.alerts)),
		users:       make(map[uuid.UUID]*model.User, len(s.users)),
		links:       append([]model.CaregiverLink(nil), s.links...),
	}
	for id, m := range s.medications {
		c.medications[id] = copyMedication(m)
	}
	// logs are immutable once written
	copy(c.doseLogs, s.doseLogs)
	for i, a := range s.alerts {
		cp := *a
		c.alerts[i] = &cp
	}
	for id, u := range s.users {
		c.users[id] = u
	}
	return c
}

type Store struct {
	mu sync.RWMutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) Medications() repository.MedicationRepository { return &medicationRepository{s} }
func (s *Store) DoseLogs() repository.DoseLogRepository       { return &doseLogRepository{s} }
func (s *Store) Alerts() repository.AlertRepository           { return &alertRepository{s} }
func (s *Store) Caregivers() repository.CaregiverRepository   { return &caregiverRepository{s} }
func (s *Store) Users() repository.UserRepository             { return &userRepository{s} }

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// WithTx serializes transactions. A panic or error in fn leaves the state untouched.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.st.clone()
	if err := fn(&tx{st: staged}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

func copyMedication(m *model.Medication) *model.Medication {
	cp := *m
	if m.NextDoseTime != nil {
		t := *m.NextDoseTime
		cp.NextDoseTime = &t
	}
	if m.RxCUI != nil {
		id := *m.RxCUI
		cp.RxCUI = &id
	}
	return &cp
}

func sortMedications(meds []*model.Medication) {
	sort.Slice(meds, func(i, j int) bool {
		if !meds[i].CreatedAt.Equal(meds[j].CreatedAt) {
			return meds[i].CreatedAt.Before(meds[j].CreatedAt)
		}
		return meds[i].ID.String() < meds[j].ID.String()
	})
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
