package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/pharma"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

// Orchestrator runs the two safety gates for a candidate medication: known
// interactions from the external source, then the active window overlap gate.
type Orchestrator struct {
	resolver   Resolver
	lookup     Lookup
	classifier Classifier
	logger     *logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type Option func(*Orchestrator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the gates. A nil resolver or lookup disables the
// external gate; a nil classifier falls back to the keyword classifier.
func NewOrchestrator(resolver Resolver, lookup Lookup, classifier Classifier, log *logger.Logger, opts ...Option) *Orchestrator {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if log == nil {
		log = logger.Nop()
	}
	o := &Orchestrator{
		resolver:   resolver,
		lookup:     lookup,
		classifier: classifier,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// EvaluateCandidate decides whether the candidate may be added next to the
// active set. The external gate runs first and short-circuits on a critical
// finding; the overlap gate runs whenever the first one passes.
func (o *Orchestrator) EvaluateCandidate(ctx context.Context, c Candidate, active []ActiveMedication) Decision {
	now := o.now().UTC()

	rxcui, findings := o.externalFindings(ctx, c.Name, active)
	decision := Decision{RxCUI: rxcui, Findings: findings}

	if critical := criticalOnly(findings); len(critical) > 0 {
		decision.Verdict = VerdictBlock
		decision.Reason = ReasonKnownInteraction
		decision.Critical = critical
		decision.Alerts = []*model.Alert{o.knownInteractionAlert(c, critical, now)}
		o.record(c, decision)
		return decision
	}

	if overlaps := o.candidateOverlaps(c, active, now); len(overlaps) > 0 {
		decision.Verdict = VerdictBlock
		decision.Reason = ReasonPharmacokineticOverlap
		decision.Overlaps = overlaps
		decision.Alerts = []*model.Alert{o.overlapAlert(c, overlaps, now)}
		o.record(c, decision)
		return decision
	}

	decision.Verdict = VerdictAllow
	for i := range findings {
		if !findings[i].Critical {
			w := findings[i]
			decision.Verdict = VerdictAllowWithWarning
			decision.Warning = &w
			decision.Alerts = []*model.Alert{model.NewAlert(
				c.PatientID, nil, model.AlertTypeDrugInteraction, model.AlertSeverityWarning,
				fmt.Sprintf("Drug Interaction: %s", c.Name),
				fmt.Sprintf("Moderate interaction detected: %s. Monitor for side effects.", w.Description),
				now,
			)}
			break
		}
	}
	o.record(c, decision)
	return decision
}

// Preview runs both gates without short-circuiting and without producing alerts.
func (o *Orchestrator) Preview(ctx context.Context, c Candidate, active []ActiveMedication) Assessment {
	now := o.now().UTC()
	rxcui, findings := o.externalFindings(ctx, c.Name, active)
	a := Assessment{
		RxCUI:    rxcui,
		Findings: findings,
		Critical: criticalOnly(findings),
		Overlaps: o.candidateOverlaps(c, active, now),
	}
	switch {
	case len(a.Critical) > 0 || len(a.Overlaps) > 0:
		a.Verdict = VerdictBlock
	case len(a.Findings) > 0:
		a.Verdict = VerdictAllowWithWarning
	default:
		a.Verdict = VerdictAllow
	}
	if a.Findings == nil {
		a.Findings = []Finding{}
	}
	if a.Critical == nil {
		a.Critical = []Finding{}
	}
	if a.Overlaps == nil {
		a.Overlaps = []Overlap{}
	}
	return a
}

// CheckAllOverlaps scans every pair in the active set. Read-only, never blocks.
func (o *Orchestrator) CheckAllOverlaps(active []ActiveMedication) []Overlap {
	now := o.now().UTC()
	var overlaps []Overlap
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i].Medication, active[j].Medication
			wa, aok := pharma.ActiveWindow(anchor(active[i], now), a.HalfLifeHours)
			wb, bok := pharma.ActiveWindow(anchor(active[j], now), b.HalfLifeHours)
			if !pharma.OverlapsOptional(wa, aok, wb, bok) || !o.classifier.CriticalPair(a.Name, b.Name) {
				continue
			}
			overlaps = append(overlaps, Overlap{
				Med1: a.Name, Med2: b.Name, Med2ID: b.ID,
				Med1Window: wa, Med2Window: wb,
				Reason: overlapReason,
			})
		}
	}
	return overlaps
}

func (o *Orchestrator) externalFindings(ctx context.Context, name string, active []ActiveMedication) (string, []Finding) {
	if o.resolver == nil || o.lookup == nil {
		return "", nil
	}

	rxcui, ok := o.resolver.ResolveIdentifier(ctx, name)
	if !ok || rxcui == "" {
		o.logger.Debug("candidate identifier not resolved", "name", name)
		return "", nil
	}

	existing := make([]string, 0, len(active))
	for _, am := range active {
		if id := am.Medication.RxCUI; id != nil && *id != "" {
			existing = append(existing, *id)
		}
	}
	if len(existing) == 0 {
		return rxcui, nil
	}

	var findings []Finding
	for _, raw := range o.lookup.Interactions(ctx, append([]string{rxcui}, existing...)) {
		findings = append(findings, o.classifier.Classify(raw))
	}
	for _, id := range existing {
		for _, raw := range o.lookup.Interactions(ctx, []string{rxcui, id}) {
			findings = append(findings, o.classifier.Classify(raw))
		}
	}
	return rxcui, Dedupe(findings)
}

func (o *Orchestrator) candidateOverlaps(c Candidate, active []ActiveMedication, now time.Time) []Overlap {
	cw, cok := pharma.ActiveWindow(&now, c.HalfLifeHours)
	var overlaps []Overlap
	for _, am := range active {
		m := am.Medication
		mw, mok := pharma.ActiveWindow(anchor(am, now), m.HalfLifeHours)
		if !pharma.OverlapsOptional(cw, cok, mw, mok) {
			continue
		}
		if !o.classifier.CriticalPair(c.Name, m.Name) {
			continue
		}
		overlaps = append(overlaps, Overlap{
			Med1: c.Name, Med2: m.Name, Med2ID: m.ID,
			Med1Window: cw, Med2Window: mw,
			Reason: overlapReason,
		})
	}
	return overlaps
}

func (o *Orchestrator) knownInteractionAlert(c Candidate, critical []Finding, now time.Time) *model.Alert {
	var names []string
	for i, f := range critical {
		if i == 2 {
			break
		}
		if len(f.Drugs) > 0 {
			names = append(names, f.Drugs[0])
		} else {
			names = append(names, "")
		}
	}
	return model.NewAlert(
		c.PatientID, nil, model.AlertTypeDrugInteraction, model.AlertSeverityCritical,
		fmt.Sprintf("CRITICAL: Cannot add %s", c.Name),
		fmt.Sprintf("This medication has a HIGH-SEVERITY interaction with your current medications: %s. Please consult with your healthcare provider.",
			strings.Join(names, ", ")),
		now,
	)
}

func (o *Orchestrator) overlapAlert(c Candidate, overlaps []Overlap, now time.Time) *model.Alert {
	names := make([]string, len(overlaps))
	for i, ov := range overlaps {
		names[i] = ov.Med2
	}
	return model.NewAlert(
		c.PatientID, nil, model.AlertTypeDrugInteraction, model.AlertSeverityCritical,
		fmt.Sprintf("CRITICAL: Cannot add %s", c.Name),
		fmt.Sprintf("This medication will be active in your body at the same time as %s. This combination is dangerous. Please consult with your healthcare provider.",
			strings.Join(names, ", ")),
		now,
	)
}

func (o *Orchestrator) record(c Candidate, d Decision) {
	if o.metrics != nil {
		o.metrics.Decisions.WithLabelValues(string(d.Verdict)).Inc()
	}
	if d.Blocked() {
		o.logger.Warn("candidate medication blocked",
			"patient_id", c.PatientID.String(),
			"name", c.Name,
			"reason", string(d.Reason))
	}
}

// anchor picks the dose time a medication's window starts from: the latest
// taken dose, else the next scheduled dose, else now.
func anchor(am ActiveMedication, now time.Time) *time.Time {
	if am.LastTakenAt != nil && !am.LastTakenAt.IsZero() {
		return am.LastTakenAt
	}
	if am.Medication.NextDoseTime != nil && !am.Medication.NextDoseTime.IsZero() {
		return am.Medication.NextDoseTime
	}
	return &now
}

func criticalOnly(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Critical {
			out = append(out, f)
		}
	}
	return out
}
