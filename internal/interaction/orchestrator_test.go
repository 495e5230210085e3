package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) ResolveIdentifier(ctx context.Context, name string) (string, bool) {
	args := m.Called(ctx, name)
	return args.String(0), args.Bool(1)
}

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) Interactions(ctx context.Context, ids []string) []RawInteraction {
	args := m.Called(ctx, ids)
	if v := args.Get(0); v != nil {
		return v.([]RawInteraction)
	}
	return nil
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func newMed(name string, halfLife float64, rxcui *string, next *time.Time) *model.Medication {
	return &model.Medication{
		ID:             uuid.New(),
		PatientID:      uuid.New(),
		Name:           name,
		RxCUI:          rxcui,
		HalfLifeHours:  halfLife,
		FrequencyHours: 24,
		NextDoseTime:   next,
		Active:         true,
	}
}

func newTestOrchestrator(r Resolver, l Lookup) *Orchestrator {
	return NewOrchestrator(r, l, nil, logger.Nop(),
		WithClock(func() time.Time { return fixedNow }),
		WithMetrics(metrics.New("test")))
}

func TestEvaluateCandidate_ScenarioOverlapBlocks(t *testing.T) {
	resolver := new(mockResolver)
	resolver.On("ResolveIdentifier", mock.Anything, "warfarin").Return("", false)

	b := newMed("aspirin", 8, nil, nil)
	active := []ActiveMedication{{Medication: b, LastTakenAt: timePtr(fixedNow.Add(-2 * time.Hour))}}
	patient := uuid.New()

	d := newTestOrchestrator(resolver, new(mockLookup)).EvaluateCandidate(context.Background(),
		Candidate{PatientID: patient, Name: "warfarin", HalfLifeHours: 6}, active)

	require.Equal(t, VerdictBlock, d.Verdict)
	assert.Equal(t, ReasonPharmacokineticOverlap, d.Reason)
	require.Len(t, d.Overlaps, 1)
	assert.Equal(t, fixedNow.Add(30*time.Hour), d.Overlaps[0].Med1Window.End)
	assert.Equal(t, fixedNow.Add(38*time.Hour), d.Overlaps[0].Med2Window.End)
	assert.Equal(t, b.ID, d.Overlaps[0].Med2ID)

	require.Len(t, d.Alerts, 1)
	alert := d.Alerts[0]
	assert.Equal(t, patient, alert.UserID)
	assert.Equal(t, model.AlertSeverityCritical, alert.Severity)
	assert.Equal(t, model.AlertTypeDrugInteraction, alert.Type)
	assert.Equal(t, "CRITICAL: Cannot add warfarin", alert.Title)
	assert.Contains(t, alert.Message, "at the same time as aspirin")
}

func TestEvaluateCandidate_NoOverlapNoBlock(t *testing.T) {
	// aspirin last taken long enough ago that its window has closed
	b := newMed("aspirin", 2, nil, nil)
	active := []ActiveMedication{{Medication: b, LastTakenAt: timePtr(fixedNow.Add(-11 * time.Hour))}}

	d := newTestOrchestrator(nil, nil).EvaluateCandidate(context.Background(),
		Candidate{Name: "warfarin", HalfLifeHours: 6}, active)

	assert.Equal(t, VerdictAllow, d.Verdict)
	assert.Empty(t, d.Alerts)
	assert.Empty(t, d.Overlaps)
}

func TestEvaluateCandidate_AnchorPriority(t *testing.T) {
	// no taken dose: the next scheduled dose anchors the window
	future := fixedNow.Add(40 * time.Hour)
	b := newMed("aspirin", 1, nil, &future)
	o := newTestOrchestrator(nil, nil)

	d := o.EvaluateCandidate(context.Background(), Candidate{Name: "warfarin", HalfLifeHours: 6},
		[]ActiveMedication{{Medication: b}})
	assert.Equal(t, VerdictAllow, d.Verdict)

	// neither: anchored at now and overlapping
	c := newMed("aspirin", 1, nil, nil)
	d = o.EvaluateCandidate(context.Background(), Candidate{Name: "warfarin", HalfLifeHours: 6},
		[]ActiveMedication{{Medication: c}})
	assert.Equal(t, VerdictBlock, d.Verdict)

	// the taken dose wins over the next scheduled dose
	d = o.EvaluateCandidate(context.Background(), Candidate{Name: "warfarin", HalfLifeHours: 6},
		[]ActiveMedication{{Medication: b, LastTakenAt: timePtr(fixedNow.Add(-time.Hour))}})
	assert.Equal(t, VerdictBlock, d.Verdict)
}

func TestEvaluateCandidate_NonPositiveHalfLifeNeverOverlaps(t *testing.T) {
	b := newMed("aspirin", 0, nil, nil)
	d := newTestOrchestrator(nil, nil).EvaluateCandidate(context.Background(),
		Candidate{Name: "warfarin", HalfLifeHours: 6}, []ActiveMedication{{Medication: b}})
	assert.Equal(t, VerdictAllow, d.Verdict)
}

func TestEvaluateCandidate_ExternalCriticalBlocks(t *testing.T) {
	resolver := new(mockResolver)
	lookup := new(mockLookup)
	resolver.On("ResolveIdentifier", mock.Anything, "Tramadol").Return("10689", true)

	crit := RawInteraction{Severity: "high", Description: "Risk of serotonin syndrome.", Drugs: []string{"tramadol", "sertraline"}, Source: "DrugBank"}
	lookup.On("Interactions", mock.Anything, []string{"10689", "36437", "5640"}).Return([]RawInteraction{crit})
	lookup.On("Interactions", mock.Anything, []string{"10689", "36437"}).Return([]RawInteraction{crit})
	lookup.On("Interactions", mock.Anything, []string{"10689", "5640"}).Return(nil)

	active := []ActiveMedication{
		{Medication: newMed("sertraline", 26, strPtr("36437"), nil)},
		{Medication: newMed("ibuprofen", 2, strPtr("5640"), nil)},
		{Medication: newMed("vitamin d", 24, nil, nil)},
	}

	d := newTestOrchestrator(resolver, lookup).EvaluateCandidate(context.Background(),
		Candidate{Name: "Tramadol", HalfLifeHours: 6}, active)

	require.Equal(t, VerdictBlock, d.Verdict)
	assert.Equal(t, ReasonKnownInteraction, d.Reason)
	assert.Equal(t, "10689", d.RxCUI)
	// bulk and pairwise returned the same record
	require.Len(t, d.Findings, 1)
	require.Len(t, d.Critical, 1)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, "CRITICAL: Cannot add Tramadol", d.Alerts[0].Title)
	assert.Equal(t, "This medication has a HIGH-SEVERITY interaction with your current medications: tramadol. Please consult with your healthcare provider.", d.Alerts[0].Message)
	lookup.AssertNumberOfCalls(t, "Interactions", 3)
}

func TestEvaluateCandidate_ModerateFindingWarnsOnce(t *testing.T) {
	resolver := new(mockResolver)
	lookup := new(mockLookup)
	resolver.On("ResolveIdentifier", mock.Anything, "omeprazole").Return("7646", true)
	lookup.On("Interactions", mock.Anything, []string{"7646", "1"}).Return([]RawInteraction{
		{Description: "may reduce absorption", Drugs: []string{"omeprazole", "iron"}},
		{Description: "may alter levels", Drugs: []string{"omeprazole", "iron"}},
	})

	active := []ActiveMedication{{Medication: newMed("iron", 6, strPtr("1"), nil)}}
	d := newTestOrchestrator(resolver, lookup).EvaluateCandidate(context.Background(),
		Candidate{Name: "omeprazole", HalfLifeHours: 1}, active)

	require.Equal(t, VerdictAllowWithWarning, d.Verdict)
	require.NotNil(t, d.Warning)
	assert.Equal(t, "may reduce absorption", d.Warning.Description)
	assert.Len(t, d.Findings, 2)
	require.Len(t, d.Alerts, 1)
	assert.Equal(t, model.AlertSeverityWarning, d.Alerts[0].Severity)
	assert.Equal(t, "Drug Interaction: omeprazole", d.Alerts[0].Title)
	assert.Equal(t, "Moderate interaction detected: may reduce absorption. Monitor for side effects.", d.Alerts[0].Message)
}

func TestEvaluateCandidate_LookupSkippedWithoutExistingIdentifiers(t *testing.T) {
	resolver := new(mockResolver)
	lookup := new(mockLookup)
	resolver.On("ResolveIdentifier", mock.Anything, "warfarin").Return("11289", true)

	active := []ActiveMedication{{Medication: newMed("aspirin", 8, nil, nil), LastTakenAt: timePtr(fixedNow.Add(-2 * time.Hour))}}
	d := newTestOrchestrator(resolver, lookup).EvaluateCandidate(context.Background(),
		Candidate{Name: "warfarin", HalfLifeHours: 6}, active)

	// no external data, but the overlap gate still blocks the known combination
	assert.Equal(t, VerdictBlock, d.Verdict)
	assert.Equal(t, ReasonPharmacokineticOverlap, d.Reason)
	lookup.AssertNotCalled(t, "Interactions", mock.Anything, mock.Anything)
}

func TestPreview_RunsBothGates(t *testing.T) {
	resolver := new(mockResolver)
	lookup := new(mockLookup)
	resolver.On("ResolveIdentifier", mock.Anything, "warfarin").Return("11289", true)
	lookup.On("Interactions", mock.Anything, []string{"11289", "1191"}).Return([]RawInteraction{
		{Severity: "high", Description: "bleeding risk", Drugs: []string{"warfarin", "aspirin"}},
	})

	active := []ActiveMedication{{Medication: newMed("aspirin", 8, strPtr("1191"), nil)}}
	a := newTestOrchestrator(resolver, lookup).Preview(context.Background(),
		Candidate{Name: "warfarin", HalfLifeHours: 6}, active)

	assert.Equal(t, VerdictBlock, a.Verdict)
	assert.Len(t, a.Critical, 1)
	assert.Len(t, a.Overlaps, 1)
}

func TestCheckAllOverlaps(t *testing.T) {
	active := []ActiveMedication{
		{Medication: newMed("warfarin", 40, nil, nil), LastTakenAt: timePtr(fixedNow.Add(-time.Hour))},
		{Medication: newMed("aspirin", 8, nil, nil), LastTakenAt: timePtr(fixedNow.Add(-2 * time.Hour))},
		{Medication: newMed("metformin", 6, nil, nil)},
		{Medication: newMed("ibuprofen", 2, nil, nil), LastTakenAt: timePtr(fixedNow.Add(-300 * time.Hour))},
	}

	overlaps := newTestOrchestrator(nil, nil).CheckAllOverlaps(active)
	require.Len(t, overlaps, 1)
	assert.Equal(t, "warfarin", overlaps[0].Med1)
	assert.Equal(t, "aspirin", overlaps[0].Med2)

	assert.Empty(t, newTestOrchestrator(nil, nil).CheckAllOverlaps(active[:1]))
}
