package medication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/interaction"
	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/pharma"
	"github.com/Nayana519/PulseGuard/internal/repository"
	"github.com/Nayana519/PulseGuard/internal/service/notification"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/validator"
)

const (
	firstDoseDelay   = time.Hour
	doseHistoryLimit = 30
)

type AddMedicationRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	Form           string   `json:"form" validate:"max=50"`
	DoseAmount     float64  `json:"dose_amount" validate:"gt=0"`
	DoseUnit       string   `json:"dose_unit" validate:"max=20"`
	FrequencyHours float64  `json:"frequency_hours" validate:"gt=0,lte=8760"`
	HalfLifeHours  *float64 `json:"half_life_hours" validate:"omitempty,gt=0"`
	CurrentStock   float64  `json:"current_stock" validate:"gte=0"`
	StockThreshold *float64 `json:"stock_threshold" validate:"omitempty,gte=0"`
}

func (r *AddMedicationRequest) halfLife() float64 {
	if r.HalfLifeHours == nil {
		return model.DefaultHalfLifeHours
	}
	return *r.HalfLifeHours
}

type PreviewRequest struct {
	Name          string   `json:"name" validate:"required,max=200"`
	HalfLifeHours *float64 `json:"half_life_hours" validate:"omitempty,gt=0"`
}

type LogDoseRequest struct {
	Status model.DoseStatus `json:"status" validate:"omitempty,oneof=pending taken missed"`
	Notes  string           `json:"notes" validate:"max=1000"`
}

// AddResult carries the safety decision and, unless blocked, the stored medication.
type AddResult struct {
	Medication *model.Medication    `json:"medication,omitempty"`
	Decision   interaction.Decision `json:"decision"`
}

type MedicationServicer interface {
	AddMedication(ctx context.Context, patientID uuid.UUID, req *AddMedicationRequest) (*AddResult, error)
	Preview(ctx context.Context, patientID uuid.UUID, req *PreviewRequest) (*interaction.Assessment, error)
	ListActive(ctx context.Context, patientID uuid.UUID) ([]*model.Medication, error)
	Get(ctx context.Context, patientID, medicationID uuid.UUID) (*model.Medication, error)
	Deactivate(ctx context.Context, patientID, medicationID uuid.UUID) error
	CheckOverlaps(ctx context.Context, patientID uuid.UUID) ([]interaction.Overlap, error)
	ConcentrationCurve(ctx context.Context, patientID, medicationID uuid.UUID, cycles int) ([]pharma.Sample, error)
	LogDose(ctx context.Context, patientID, medicationID uuid.UUID, req *LogDoseRequest) (*model.DoseLog, error)
	DoseHistory(ctx context.Context, patientID, medicationID uuid.UUID) ([]*model.DoseLog, error)
}

type Service struct {
	store        repository.Store
	orchestrator *interaction.Orchestrator
	notifier     notification.Service
	validator    validator.Validator
	logger       *logger.Logger
	now          func() time.Time
}

var _ MedicationServicer = (*Service)(nil)

func NewService(store repository.Store, orchestrator *interaction.Orchestrator, notifier notification.Service, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:        store,
		orchestrator: orchestrator,
		notifier:     notifier,
		validator:    validator.New(),
		logger:       log,
		now:          time.Now,
	}
}

// WithClock overrides the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddMedication evaluates the candidate against the patient's active
// medications and stores it unless blocked. A blocked add still commits its
// critical alert. Either way the alerts and the medication commit together.
func (s *Service) AddMedication(ctx context.Context, patientID uuid.UUID, req *AddMedicationRequest) (*AddResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	active, err := s.activeSet(ctx, patientID)
	if err != nil {
		return nil, err
	}

	decision := s.orchestrator.EvaluateCandidate(ctx, interaction.Candidate{
		PatientID:     patientID,
		Name:          req.Name,
		HalfLifeHours: req.halfLife(),
	}, active)

	if decision.Blocked() {
		if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
			return createAlerts(ctx, tx, decision.Alerts)
		}); err != nil {
			return nil, apperrors.Internal(fmt.Errorf("failed to record blocked medication: %w", err))
		}
		s.notify(ctx, decision.Alerts)
		return &AddResult{Decision: decision}, nil
	}

	now := s.now().UTC()
	next := now.Add(firstDoseDelay)
	med := &model.Medication{
		ID:             uuid.New(),
		PatientID:      patientID,
		Name:           req.Name,
		Form:           req.Form,
		DoseAmount:     req.DoseAmount,
		DoseUnit:       req.DoseUnit,
		FrequencyHours: req.FrequencyHours,
		HalfLifeHours:  req.halfLife(),
		CurrentStock:   req.CurrentStock,
		NextDoseTime:   &next,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	med.ApplyDefaults()
	if req.StockThreshold != nil {
		med.StockThreshold = *req.StockThreshold
	}
	if decision.RxCUI != "" {
		rx := decision.RxCUI
		med.RxCUI = &rx
	}
	for _, a := range decision.Alerts {
		a.MedicationID = &med.ID
	}

	if err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateMedication(ctx, med); err != nil {
			return err
		}
		return createAlerts(ctx, tx, decision.Alerts)
	}); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to add medication: %w", err))
	}

	s.logger.Info("medication added",
		"patient_id", patientID.String(),
		"medication_id", med.ID.String(),
		"verdict", string(decision.Verdict))
	s.notify(ctx, decision.Alerts)
	return &AddResult{Medication: med, Decision: decision}, nil
}

// Preview reports what adding the named medication would do, without writing anything.
func (s *Service) Preview(ctx context.Context, patientID uuid.UUID, req *PreviewRequest) (*interaction.Assessment, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	active, err := s.activeSet(ctx, patientID)
	if err != nil {
		return nil, err
	}
	halfLife := model.DefaultHalfLifeHours
	if req.HalfLifeHours != nil {
		halfLife = *req.HalfLifeHours
	}
	a := s.orchestrator.Preview(ctx, interaction.Candidate{PatientID: patientID, Name: req.Name, HalfLifeHours: halfLife}, active)
	return &a, nil
}

func (s *Service) ListActive(ctx context.Context, patientID uuid.UUID) ([]*model.Medication, error) {
	meds, err := s.store.Medications().ListActive(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if meds == nil {
		meds = []*model.Medication{}
	}
	return meds, nil
}

func (s *Service) Get(ctx context.Context, patientID, medicationID uuid.UUID) (*model.Medication, error) {
	med, err := s.store.Medications().Get(ctx, medicationID)
	if err != nil {
		return nil, mapRepoErr("medication", err)
	}
	if med.PatientID != patientID {
		return nil, apperrors.NotFound("medication", nil)
	}
	return med, nil
}

func (s *Service) Deactivate(ctx context.Context, patientID, medicationID uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		med, err := tx.GetMedication(ctx, medicationID)
		if err != nil {
			return err
		}
		if med.PatientID != patientID {
			return repository.ErrNotFound
		}
		return tx.DeactivateMedication(ctx, medicationID, s.now().UTC())
	})
	return mapRepoErr("medication", err)
}

// CheckOverlaps lists dangerous overlaps already present among the patient's active medications.
func (s *Service) CheckOverlaps(ctx context.Context, patientID uuid.UUID) ([]interaction.Overlap, error) {
	active, err := s.activeSet(ctx, patientID)
	if err != nil {
		return nil, err
	}
	overlaps := s.orchestrator.CheckAllOverlaps(active)
	if overlaps == nil {
		overlaps = []interaction.Overlap{}
	}
	return overlaps, nil
}

func (s *Service) ConcentrationCurve(ctx context.Context, patientID, medicationID uuid.UUID, cycles int) ([]pharma.Sample, error) {
	med, err := s.Get(ctx, patientID, medicationID)
	if err != nil {
		return nil, err
	}
	samples, err := pharma.GenerateConcentrationCurve(med.HalfLifeHours, med.FrequencyHours, cycles)
	if err != nil {
		return nil, apperrors.BadRequest("cannot model concentration for this medication", err)
	}
	return samples, nil
}

// LogDose records a dose against the current slot. A taken dose restarts the
// schedule from now and draws down stock.
func (s *Service) LogDose(ctx context.Context, patientID, medicationID uuid.UUID, req *LogDoseRequest) (*model.DoseLog, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = model.DoseStatusTaken
	}

	now := s.now().UTC()
	var log *model.DoseLog
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		med, err := tx.GetMedication(ctx, medicationID)
		if err != nil {
			return err
		}
		if med.PatientID != patientID {
			return repository.ErrNotFound
		}

		scheduled := now
		if med.NextDoseTime != nil {
			scheduled = *med.NextDoseTime
		}
		log = &model.DoseLog{
			ID:            uuid.New(),
			MedicationID:  med.ID,
			ScheduledTime: scheduled,
			Status:        status,
			Notes:         req.Notes,
			CreatedAt:     now,
		}

		if status == model.DoseStatusTaken {
			taken := now
			log.TakenTime = &taken
			if _, err := tx.AdvanceNextDoseTime(ctx, med.ID, now.Add(med.Frequency()), now); err != nil {
				return err
			}
			if err := tx.ConsumeStock(ctx, med.ID, med.DoseAmount, now); err != nil {
				return err
			}
		}
		return tx.CreateDoseLog(ctx, log)
	})
	if err != nil {
		return nil, mapRepoErr("medication", err)
	}
	return log, nil
}

func (s *Service) DoseHistory(ctx context.Context, patientID, medicationID uuid.UUID) ([]*model.DoseLog, error) {
	if _, err := s.Get(ctx, patientID, medicationID); err != nil {
		return nil, err
	}
	logs, err := s.store.DoseLogs().List(ctx, medicationID, doseHistoryLimit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if logs == nil {
		logs = []*model.DoseLog{}
	}
	return logs, nil
}

func (s *Service) activeSet(ctx context.Context, patientID uuid.UUID) ([]interaction.ActiveMedication, error) {
	meds, err := s.store.Medications().ListActive(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list active medications: %w", err))
	}
	ids := make([]uuid.UUID, len(meds))
	for i, m := range meds {
		ids[i] = m.ID
	}
	latest, err := s.store.DoseLogs().LatestTaken(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load dose history: %w", err))
	}

	active := make([]interaction.ActiveMedication, len(meds))
	for i, m := range meds {
		active[i] = interaction.ActiveMedication{Medication: m}
		if t, ok := latest[m.ID]; ok {
			t := t
			active[i].LastTakenAt = &t
		}
	}
	return active, nil
}

func (s *Service) validate(req interface{}) error {
	if err := s.validator.Validate(req); err != nil {
		var fe *validator.FieldError
		if errors.As(err, &fe) {
			return apperrors.NewValidation(fe.Error(), fe.Fields, err)
		}
		return apperrors.NewValidation("invalid request", nil, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, alerts []*model.Alert) {
	if s.notifier != nil && len(alerts) > 0 {
		s.notifier.Send(ctx, alerts...)
	}
}

func createAlerts(ctx context.Context, tx repository.Tx, alerts []*model.Alert) error {
	for _, a := range alerts {
		if err := tx.CreateAlert(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func mapRepoErr(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, err)
	default:
		return apperrors.Internal(err)
	}
}
