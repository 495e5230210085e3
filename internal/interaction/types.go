// Package interaction decides whether a candidate medication is safe to add
// next to a patient's active medications. It fuses external interaction
// records with a fixed table of critical drug combinations and the active
// window overlap gate.
package interaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/pharma"
)

// Resolver maps a drug name to its canonical identifier. Best effort: a
// failed lookup is reported as not found.
type Resolver interface {
	ResolveIdentifier(ctx context.Context, name string) (string, bool)
}

// Lookup returns the interaction records known for a set of identifiers.
// Two identifiers is a pairwise query, more is a bulk query. Failures yield
// no records, never an error.
type Lookup interface {
	Interactions(ctx context.Context, ids []string) []RawInteraction
}

// RawInteraction is one record as reported by the external source. Any
// field may be empty.
type RawInteraction struct {
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Drugs       []string `json:"drugs"`
	Source      string   `json:"source"`
}

// Finding is a classified interaction record.
type Finding struct {
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
	Drugs       []string `json:"drugs"`
	Source      string   `json:"source"`
	Critical    bool     `json:"is_critical"`
}

type Verdict string

const (
	VerdictAllow            Verdict = "allow"
	VerdictAllowWithWarning Verdict = "allow_with_warning"
	VerdictBlock            Verdict = "block"
)

type BlockReason string

const (
	ReasonNone                   BlockReason = ""
	ReasonKnownInteraction       BlockReason = "known_interaction"
	ReasonPharmacokineticOverlap BlockReason = "pharmacokinetic_overlap"
)

// Candidate is a medication proposed for a patient.
type Candidate struct {
	PatientID     uuid.UUID
	Name          string
	HalfLifeHours float64
}

// ActiveMedication pairs a stored medication with its latest taken dose, if any.
type ActiveMedication struct {
	Medication  *model.Medication
	LastTakenAt *time.Time
}

// Overlap is a pair of medications whose active windows intersect and whose
// names form a critical combination.
type Overlap struct {
	Med1       string        `json:"med1"`
	Med2       string        `json:"med2"`
	Med2ID     uuid.UUID     `json:"med2_id"`
	Med1Window pharma.Window `json:"med1_window"`
	Med2Window pharma.Window `json:"med2_window"`
	Reason     string        `json:"reason"`
}

// Decision is the outcome of evaluating a candidate. A block is a normal
// value, never an error. Alerts are unsaved and belong to the patient.
type Decision struct {
	Verdict  Verdict        `json:"verdict"`
	Reason   BlockReason    `json:"reason,omitempty"`
	RxCUI    string         `json:"rxcui,omitempty"`
	Findings []Finding      `json:"findings"`
	Critical []Finding      `json:"critical_interactions,omitempty"`
	Overlaps []Overlap      `json:"overlaps,omitempty"`
	Warning  *Finding       `json:"warning,omitempty"`
	Alerts   []*model.Alert `json:"-"`
}

func (d Decision) Blocked() bool {
	return d.Verdict == VerdictBlock
}

// Assessment is the side-effect free view of both gates.
type Assessment struct {
	Verdict  Verdict   `json:"verdict"`
	RxCUI    string    `json:"rxcui,omitempty"`
	Findings []Finding `json:"findings"`
	Critical []Finding `json:"critical_interactions"`
	Overlaps []Overlap `json:"overlaps"`
}

const overlapReason = "Pharmacokinetic overlap: both medications will be active in the body at the same time"
