package caregiver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/logger"
)

const (
	complianceWindow = 7 * 24 * time.Hour
	recentMissWindow = 2 * time.Hour
	unreadAlertLimit = 50
)

type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// PatientOverview is a caregiver's summary of one linked patient.
type PatientOverview struct {
	Patient           *model.User         `json:"patient"`
	Medications       []*model.Medication `json:"medications"`
	CompliancePercent float64             `json:"compliance_percent"`
	UnreadAlerts      []*model.Alert      `json:"unread_alerts"`
	CriticalAlerts    int                 `json:"critical_alerts"`
	LowStock          []string            `json:"low_stock"`
	RecentMissedDose  bool                `json:"recent_missed_dose"`
	Status            Status              `json:"status"`
}

type LinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CaregiverServicer interface {
	Overview(ctx context.Context, caregiverID uuid.UUID) ([]*PatientOverview, error)
	PatientOverview(ctx context.Context, caregiverID, patientID uuid.UUID) (*PatientOverview, error)
	LinkPatient(ctx context.Context, caregiverID uuid.UUID, email string) (*model.User, error)
}

type Service struct {
	store  repository.Store
	logger *logger.Logger
	now    func() time.Time
}

var _ CaregiverServicer = (*Service)(nil)

func NewService(store repository.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{store: store, logger: log, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Overview summarises every patient linked to the caregiver.
func (s *Service) Overview(ctx context.Context, caregiverID uuid.UUID) ([]*PatientOverview, error) {
	if err := s.requireCaregiver(ctx, caregiverID); err != nil {
		return nil, err
	}
	patients, err := s.store.Caregivers().ListPatients(ctx, caregiverID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}

	now := s.now().UTC()
	overviews := make([]*PatientOverview, 0, len(patients))
	for _, p := range patients {
		o, err := s.summarise(ctx, p, now)
		if err != nil {
			return nil, err
		}
		overviews = append(overviews, o)
	}
	return overviews, nil
}

func (s *Service) PatientOverview(ctx context.Context, caregiverID, patientID uuid.UUID) (*PatientOverview, error) {
	if err := s.requireCaregiver(ctx, caregiverID); err != nil {
		return nil, err
	}
	linked, err := s.store.Caregivers().IsLinked(ctx, caregiverID, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !linked {
		return nil, apperrors.NewForbidden("patient is not linked to this caregiver")
	}
	patient, err := s.store.Users().Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Internal(err)
	}
	return s.summarise(ctx, patient, s.now().UTC())
}

// LinkPatient attaches the patient registered under email to the caregiver.
func (s *Service) LinkPatient(ctx context.Context, caregiverID uuid.UUID, email string) (*model.User, error) {
	if err := s.requireCaregiver(ctx, caregiverID); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.NewValidation("email is required", []string{"email"}, nil)
	}

	patient, err := s.store.Users().GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if patient == nil || patient.Role != model.RolePatient {
		return nil, apperrors.NotFound("patient", err)
	}

	linked, err := s.store.Caregivers().IsLinked(ctx, caregiverID, patient.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if linked {
		return nil, apperrors.NewConflict("patient already linked")
	}

	if err := s.store.Caregivers().Link(ctx, &model.CaregiverLink{
		CaregiverID: caregiverID,
		PatientID:   patient.ID,
		CreatedAt:   s.now().UTC(),
	}); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to link patient: %w", err))
	}
	s.logger.Info("patient linked", "caregiver_id", caregiverID.String(), "patient_id", patient.ID.String())
	return patient, nil
}

func (s *Service) requireCaregiver(ctx context.Context, id uuid.UUID) error {
	user, err := s.store.Users().Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewForbidden("caregiver access required")
		}
		return apperrors.Internal(err)
	}
	if user.Role != model.RoleCaregiver {
		return apperrors.NewForbidden("caregiver access required")
	}
	return nil
}

func (s *Service) summarise(ctx context.Context, patient *model.User, now time.Time) (*PatientOverview, error) {
	meds, err := s.store.Medications().ListActive(ctx, patient.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list medications: %w", err))
	}
	logs, err := s.store.DoseLogs().ListForPatientSince(ctx, patient.ID, now.Add(-complianceWindow))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list dose logs: %w", err))
	}
	alerts, err := s.store.Alerts().List(ctx, patient.ID, model.AlertFilter{UnreadOnly: true, Limit: unreadAlertLimit})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list alerts: %w", err))
	}
	critical, err := s.store.Alerts().CountUnread(ctx, patient.ID, model.AlertSeverityCritical)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to count critical alerts: %w", err))
	}

	o := &PatientOverview{
		Patient:           patient,
		Medications:       meds,
		CompliancePercent: compliance(logs),
		UnreadAlerts:      alerts,
		CriticalAlerts:    critical,
		LowStock:          []string{},
	}
	if o.Medications == nil {
		o.Medications = []*model.Medication{}
	}
	if o.UnreadAlerts == nil {
		o.UnreadAlerts = []*model.Alert{}
	}
	for _, m := range meds {
		if m.LowStock() {
			o.LowStock = append(o.LowStock, m.Name)
		}
	}
	cutoff := now.Add(-recentMissWindow)
	for _, l := range logs {
		if l.Status == model.DoseStatusMissed && !l.CreatedAt.Before(cutoff) {
			o.RecentMissedDose = true
			break
		}
	}
	o.Status = status(o)
	return o, nil
}

// compliance is the share of taken doses, in percent to one decimal. No logs counts as full compliance.
func compliance(logs []*model.DoseLog) float64 {
	if len(logs) == 0 {
		return 100
	}
	taken := 0
	for _, l := range logs {
		if l.Status == model.DoseStatusTaken {
			taken++
		}
	}
	return math.Round(float64(taken)/float64(len(logs))*1000) / 10
}

func status(o *PatientOverview) Status {
	switch {
	case o.CriticalAlerts > 0 || o.CompliancePercent < 60:
		return StatusRed
	case o.RecentMissedDose || len(o.LowStock) > 0 || o.CompliancePercent < 80:
		return StatusYellow
	default:
		return StatusGreen
	}
}
