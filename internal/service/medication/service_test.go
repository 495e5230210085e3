package medication

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nayana519/PulseGuard/internal/interaction"
	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
	"github.com/Nayana519/PulseGuard/internal/repository/memory"
	apperrors "github.com/Nayana519/PulseGuard/pkg/errors"
	"github.com/Nayana519/PulseGuard/pkg/logger"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type stubResolver map[string]string

func (r stubResolver) ResolveIdentifier(ctx context.Context, name string) (string, bool) {
	id, ok := r[name]
	return id, ok
}

type stubLookup struct {
	records []interaction.RawInteraction
}

func (l *stubLookup) Interactions(ctx context.Context, ids []string) []interaction.RawInteraction {
	return l.records
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*model.Alert
}

func (n *recordingNotifier) Send(ctx context.Context, alerts ...*model.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alerts...)
}

type fixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	svc      *Service
	patient  uuid.UUID
}

func newFixture(t *testing.T, resolver interaction.Resolver, lookup interaction.Lookup) *fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.NewStore()
	patient := &model.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", Role: model.RolePatient, CreatedAt: fixedNow}
	require.NoError(t, store.Users().Create(context.Background(), patient))

	orch := interaction.NewOrchestrator(resolver, lookup, nil, logger.Nop(), interaction.WithClock(clock))
	notifier := &recordingNotifier{}
	svc := NewService(store, orch, notifier, logger.Nop()).WithClock(clock)
	return &fixture{store: store, notifier: notifier, svc: svc, patient: patient.ID}
}

func (f *fixture) seed(t *testing.T, med *model.Medication) *model.Medication {
	t.Helper()
	med.ID = uuid.New()
	med.PatientID = f.patient
	med.Active = true
	med.CreatedAt = fixedNow.Add(-24 * time.Hour)
	med.UpdatedAt = med.CreatedAt
	med.ApplyDefaults()
	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateMedication(context.Background(), med)
	}))
	return med
}

func (f *fixture) takeDose(t *testing.T, med *model.Medication, at time.Time) {
	t.Helper()
	require.NoError(t, f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateDoseLog(context.Background(), &model.DoseLog{
			ID: uuid.New(), MedicationID: med.ID, ScheduledTime: at, TakenTime: &at,
			Status: model.DoseStatusTaken, CreatedAt: at,
		})
	}))
}

func (f *fixture) alerts(t *testing.T) []*model.Alert {
	t.Helper()
	alerts, err := f.store.Alerts().List(context.Background(), f.patient, model.AlertFilter{Limit: 50})
	require.NoError(t, err)
	return alerts
}

func floatPtr(v float64) *float64 { return &v }

func TestAddMedication_AllowAppliesDefaults(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{
		Name: "Lisinopril", DoseAmount: 10, FrequencyHours: 24, CurrentStock: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, interaction.VerdictAllow, res.Decision.Verdict)
	require.NotNil(t, res.Medication)

	med := res.Medication
	assert.Equal(t, model.DefaultForm, med.Form)
	assert.Equal(t, model.DefaultDoseUnit, med.DoseUnit)
	assert.Equal(t, model.DefaultHalfLifeHours, med.HalfLifeHours)
	assert.Equal(t, model.DefaultStockThreshold, med.StockThreshold)
	assert.True(t, med.Active)
	require.NotNil(t, med.NextDoseTime)
	assert.Equal(t, fixedNow.Add(time.Hour), *med.NextDoseTime)

	active, err := f.svc.ListActive(context.Background(), f.patient)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, med.ID, active[0].ID)
	assert.Empty(t, f.alerts(t))
	assert.Empty(t, f.notifier.alerts)
}

func TestAddMedication_ExplicitZeroThresholdKept(t *testing.T) {
	f := newFixture(t, nil, nil)

	res, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{
		Name: "Vitamin D", DoseAmount: 1, FrequencyHours: 24, StockThreshold: floatPtr(0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Medication.StockThreshold)
}

func TestAddMedication_OverlapBlocks(t *testing.T) {
	f := newFixture(t, nil, nil)
	aspirin := f.seed(t, &model.Medication{Name: "aspirin", DoseAmount: 81, FrequencyHours: 24, HalfLifeHours: 8, CurrentStock: 20})
	f.takeDose(t, aspirin, fixedNow.Add(-2*time.Hour))

	res, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{
		Name: "warfarin", DoseAmount: 5, FrequencyHours: 24, CurrentStock: 30,
	})
	require.NoError(t, err)
	assert.True(t, res.Decision.Blocked())
	assert.Equal(t, interaction.ReasonPharmacokineticOverlap, res.Decision.Reason)
	assert.Nil(t, res.Medication)

	active, err := f.svc.ListActive(context.Background(), f.patient)
	require.NoError(t, err)
	require.Len(t, active, 1)

	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSeverityCritical, alerts[0].Severity)
	assert.Equal(t, "CRITICAL: Cannot add warfarin", alerts[0].Title)
	assert.Nil(t, alerts[0].MedicationID)
	assert.Len(t, f.notifier.alerts, 1)
}

func TestAddMedication_KnownInteractionBlocks(t *testing.T) {
	lookup := &stubLookup{records: []interaction.RawInteraction{
		{Severity: "high", Description: "Increased exposure", Drugs: []string{"drugx", "drugy"}, Source: "DrugBank"},
	}}
	f := newFixture(t, stubResolver{"drugx": "111"}, lookup)
	f.seed(t, &model.Medication{Name: "drugy", RxCUI: strPtr("222"), DoseAmount: 1, FrequencyHours: 12, CurrentStock: 10})

	res, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{
		Name: "drugx", DoseAmount: 1, FrequencyHours: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, interaction.ReasonKnownInteraction, res.Decision.Reason)
	require.Len(t, res.Decision.Critical, 1)
	assert.Len(t, f.alerts(t), 1)
}

func TestAddMedication_WarningAlertLinkedToMedication(t *testing.T) {
	lookup := &stubLookup{records: []interaction.RawInteraction{
		{Severity: "moderate", Description: "May increase drowsiness", Drugs: []string{"drugx", "drugy"}},
	}}
	f := newFixture(t, stubResolver{"drugx": "111"}, lookup)
	f.seed(t, &model.Medication{Name: "drugy", RxCUI: strPtr("222"), DoseAmount: 1, FrequencyHours: 12, CurrentStock: 10})

	res, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{
		Name: "drugx", DoseAmount: 1, FrequencyHours: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, interaction.VerdictAllowWithWarning, res.Decision.Verdict)
	require.NotNil(t, res.Medication)
	require.NotNil(t, res.Medication.RxCUI)
	assert.Equal(t, "111", *res.Medication.RxCUI)

	alerts := f.alerts(t)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertSeverityWarning, alerts[0].Severity)
	require.NotNil(t, alerts[0].MedicationID)
	assert.Equal(t, res.Medication.ID, *alerts[0].MedicationID)
}

func TestAddMedication_Validation(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.svc.AddMedication(context.Background(), f.patient, &AddMedicationRequest{DoseAmount: 1, FrequencyHours: 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestPreview_DoesNotWrite(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.seed(t, &model.Medication{Name: "aspirin", DoseAmount: 81, FrequencyHours: 24, HalfLifeHours: 8, CurrentStock: 20})

	a, err := f.svc.Preview(context.Background(), f.patient, &PreviewRequest{Name: "warfarin"})
	require.NoError(t, err)
	assert.Equal(t, interaction.VerdictBlock, a.Verdict)
	assert.Len(t, a.Overlaps, 1)
	assert.Empty(t, f.alerts(t))
}

func TestLogDose_TakenAdvancesScheduleAndStock(t *testing.T) {
	f := newFixture(t, nil, nil)
	next := fixedNow.Add(-30 * time.Minute)
	med := f.seed(t, &model.Medication{Name: "metformin", DoseAmount: 2, FrequencyHours: 8, CurrentStock: 3, NextDoseTime: &next})

	log, err := f.svc.LogDose(context.Background(), f.patient, med.ID, &LogDoseRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.DoseStatusTaken, log.Status)
	assert.Equal(t, next, log.ScheduledTime)
	require.NotNil(t, log.TakenTime)

	stored, err := f.store.Medications().Get(context.Background(), med.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, stored.CurrentStock)
	assert.Equal(t, fixedNow.Add(8*time.Hour), *stored.NextDoseTime)

	_, err = f.svc.LogDose(context.Background(), f.patient, med.ID, &LogDoseRequest{})
	require.NoError(t, err)
	stored, err = f.store.Medications().Get(context.Background(), med.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.CurrentStock)

	history, err := f.svc.DoseHistory(context.Background(), f.patient, med.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLogDose_MissedLeavesStock(t *testing.T) {
	f := newFixture(t, nil, nil)
	med := f.seed(t, &model.Medication{Name: "metformin", DoseAmount: 2, FrequencyHours: 8, CurrentStock: 3})

	log, err := f.svc.LogDose(context.Background(), f.patient, med.ID, &LogDoseRequest{Status: model.DoseStatusMissed})
	require.NoError(t, err)
	assert.Nil(t, log.TakenTime)
	assert.Equal(t, fixedNow, log.ScheduledTime)

	stored, err := f.store.Medications().Get(context.Background(), med.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, stored.CurrentStock)
	assert.Nil(t, stored.NextDoseTime)
}

func TestLogDose_RejectsUnknownStatusAndOtherPatients(t *testing.T) {
	f := newFixture(t, nil, nil)
	med := f.seed(t, &model.Medication{Name: "metformin", DoseAmount: 2, FrequencyHours: 8, CurrentStock: 3})

	_, err := f.svc.LogDose(context.Background(), f.patient, med.ID, &LogDoseRequest{Status: "skipped"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	_, err = f.svc.LogDose(context.Background(), uuid.New(), med.ID, &LogDoseRequest{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t, nil, nil)
	med := f.seed(t, &model.Medication{Name: "metformin", DoseAmount: 2, FrequencyHours: 8, CurrentStock: 3})

	err := f.svc.Deactivate(context.Background(), uuid.New(), med.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	require.NoError(t, f.svc.Deactivate(context.Background(), f.patient, med.ID))
	active, err := f.svc.ListActive(context.Background(), f.patient)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCheckOverlaps(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.seed(t, &model.Medication{Name: "warfarin", DoseAmount: 5, FrequencyHours: 24, HalfLifeHours: 40, CurrentStock: 20})
	f.seed(t, &model.Medication{Name: "ibuprofen", DoseAmount: 200, FrequencyHours: 6, HalfLifeHours: 2, CurrentStock: 20})
	f.seed(t, &model.Medication{Name: "lisinopril", DoseAmount: 10, FrequencyHours: 24, CurrentStock: 20})

	overlaps, err := f.svc.CheckOverlaps(context.Background(), f.patient)
	require.NoError(t, err)
	require.Len(t, overlaps, 1)
	names := []string{overlaps[0].Med1, overlaps[0].Med2}
	assert.ElementsMatch(t, []string{"warfarin", "ibuprofen"}, names)
}

func TestConcentrationCurve(t *testing.T) {
	f := newFixture(t, nil, nil)
	med := f.seed(t, &model.Medication{Name: "metformin", DoseAmount: 2, FrequencyHours: 8, HalfLifeHours: 4, CurrentStock: 3})

	samples, err := f.svc.ConcentrationCurve(context.Background(), f.patient, med.ID, 3)
	require.NoError(t, err)
	require.NotEmpty(t, samples)
	assert.Equal(t, 100.0, samples[0].Concentration)

	_, err = f.svc.ConcentrationCurve(context.Background(), f.patient, med.ID, 1000)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func strPtr(s string) *string { return &s }
