package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
)

type medicationRepository struct{ s *Store }

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (med *model.Medication, err error) {
	r.s.read(func(st *state) {
		m, ok := st.medications[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		med = copyMedication(m)
	})
	return med, err
}

func (r *medicationRepository) ListActive(ctx context.Context, patientID uuid.UUID) ([]*model.Medication, error) {
	var meds []*model.Medication
	r.s.read(func(st *state) {
		for _, m := range st.medications {
			if m.Active && m.PatientID == patientID {
				meds = append(meds, copyMedication(m))
			}
		}
	})
	sortMedications(meds)
	return meds, nil
}

type doseLogRepository struct{ s *Store }

func (r *doseLogRepository) LatestTaken(ctx context.Context, medicationIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	want := make(map[uuid.UUID]struct{}, len(medicationIDs))
	for _, id := range medicationIDs {
		want[id] = struct{}{}
	}
	latest := make(map[uuid.UUID]time.Time)
	r.s.read(func(st *state) {
		for _, l := range st.doseLogs {
			if _, ok := want[l.MedicationID]; !ok || l.Status != model.DoseStatusTaken {
				continue
			}
			t := l.CreatedAt
			if l.TakenTime != nil {
				t = *l.TakenTime
			}
			if cur, ok := latest[l.MedicationID]; !ok || t.After(cur) {
				latest[l.MedicationID] = t
			}
		}
	})
	return latest, nil
}

func (r *doseLogRepository) List(ctx context.Context, medicationID uuid.UUID, limit int) ([]*model.DoseLog, error) {
	var logs []*model.DoseLog
	r.s.read(func(st *state) {
		for _, l := range st.doseLogs {
			if l.MedicationID == medicationID {
				cp := *l
				logs = append(logs, &cp)
			}
		}
	})
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].ScheduledTime.After(logs[j].ScheduledTime)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (r *doseLogRepository) ListForPatientSince(ctx context.Context, patientID uuid.UUID, since time.Time) ([]*model.DoseLog, error) {
	var logs []*model.DoseLog
	r.s.read(func(st *state) {
		for _, l := range st.doseLogs {
			m, ok := st.medications[l.MedicationID]
			if !ok || m.PatientID != patientID || l.CreatedAt.Before(since) {
				continue
			}
			cp := *l
			logs = append(logs, &cp)
		}
	})
	return logs, nil
}

type alertRepository struct{ s *Store }

func (r *alertRepository) Get(ctx context.Context, id uuid.UUID) (alert *model.Alert, err error) {
	err = repository.ErrNotFound
	r.s.read(func(st *state) {
		for _, a := range st.alerts {
			if a.ID == id {
				cp := *a
				alert, err = &cp, nil
				return
			}
		}
	})
	return alert, err
}

func (r *alertRepository) List(ctx context.Context, userID uuid.UUID, filter model.AlertFilter) ([]*model.Alert, error) {
	var alerts []*model.Alert
	r.s.read(func(st *state) {
		for _, a := range st.alerts {
			if a.UserID != userID || (filter.UnreadOnly && a.IsRead) {
				continue
			}
			cp := *a
			alerts = append(alerts, &cp)
		}
	})
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	if filter.Limit > 0 && len(alerts) > filter.Limit {
		alerts = alerts[:filter.Limit]
	}
	return alerts, nil
}

func (r *alertRepository) MarkRead(ctx context.Context, id uuid.UUID) (err error) {
	err = repository.ErrNotFound
	r.s.write(func(st *state) {
		for _, a := range st.alerts {
			if a.ID == id {
				a.IsRead = true
				err = nil
				return
			}
		}
	})
	return err
}

func (r *alertRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (n int64, err error) {
	r.s.write(func(st *state) {
		for _, a := range st.alerts {
			if a.UserID == userID && !a.IsRead {
				a.IsRead = true
				n++
			}
		}
	})
	return n, nil
}

func (r *alertRepository) CountUnread(ctx context.Context, userID uuid.UUID, severity model.AlertSeverity) (n int, err error) {
	r.s.read(func(st *state) {
		for _, a := range st.alerts {
			if a.UserID == userID && !a.IsRead && (severity == "" || a.Severity == severity) {
				n++
			}
		}
	})
	return n, nil
}

type caregiverRepository struct{ s *Store }

func (r *caregiverRepository) ListPatients(ctx context.Context, caregiverID uuid.UUID) ([]*model.User, error) {
	var patients []*model.User
	r.s.read(func(st *state) {
		for _, l := range st.links {
			if l.CaregiverID != caregiverID {
				continue
			}
			if u, ok := st.users[l.PatientID]; ok {
				cp := *u
				patients = append(patients, &cp)
			}
		}
	})
	return patients, nil
}

func (r *caregiverRepository) IsLinked(ctx context.Context, caregiverID, patientID uuid.UUID) (linked bool, err error) {
	r.s.read(func(st *state) {
		for _, l := range st.links {
			if l.CaregiverID == caregiverID && l.PatientID == patientID {
				linked = true
				return
			}
		}
	})
	return linked, nil
}

func (r *caregiverRepository) Link(ctx context.Context, link *model.CaregiverLink) error {
	r.s.write(func(st *state) {
		for _, l := range st.links {
			if l.CaregiverID == link.CaregiverID && l.PatientID == link.PatientID {
				return
			}
		}
		st.links = append(st.links, *link)
	})
	return nil
}

type userRepository struct{ s *Store }

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (user *model.User, err error) {
	r.s.read(func(st *state) {
		u, ok := st.users[id]
		if !ok {
			err = repository.ErrNotFound
			return
		}
		cp := *u
		user = &cp
	})
	return user, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user *model.User, err error) {
	err = repository.ErrNotFound
	r.s.read(func(st *state) {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				cp := *u
				user, err = &cp, nil
				return
			}
		}
	})
	return user, err
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.s.write(func(st *state) {
		cp := *user
		st.users[user.ID] = &cp
	})
	return nil
}
