package interaction

import "strings"

// Classifier labels raw records and recognises dangerous name pairs.
type Classifier interface {
	Classify(raw RawInteraction) Finding
	CriticalPair(a, b string) bool
}

// Combo is an unordered pair of name fragments.
type Combo struct {
	A, B string
}

// HighSeverityKeywords mark a record critical when found in its severity or description.
var HighSeverityKeywords = []string{
	"high", "critical", "contraindicated", "serious", "severe",
	"fatal", "life-threatening", "do not use", "avoid", "dangerous",
	"hemorrhage", "bleeding", "cardiac arrest", "arrhythmia", "torsade",
	"serotonin syndrome", "hypertensive crisis", "respiratory depression",
}

// CriticalCombos are combinations treated as critical regardless of what the
// external source reports.
var CriticalCombos = []Combo{
	{"warfarin", "aspirin"},
	{"warfarin", "ibuprofen"},
	{"warfarin", "naproxen"},
	{"warfarin", "diclofenac"},
	{"warfarin", "ketorolac"},
	{"metformin", "alcohol"},
	{"maois", "tyramine"},
	{"ssri", "maois"},
	{"methotrexate", "nsaid"},
	{"lithium", "nsaid"},
	{"lithium", "ace inhibitor"},
	{"lithium", "thiazide"},
	{"cisapride", "antifungal"},
	{"terfenadine", "ketoconazole"},
	{"cisapride", "macrolide"},
	{"thioridazine", "antipsychotic"},
	{"mefloquine", "quinine"},
	{"haloperidol", "antiarrhythmic"},
}

// KeywordClassifier matches by case-insensitive substring. "Aspirin 81mg"
// matches aspirin, and so does any name containing it.
type KeywordClassifier struct {
	Keywords []string
	Combos   []Combo
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		Keywords: HighSeverityKeywords,
		Combos:   CriticalCombos,
	}
}

func (c *KeywordClassifier) Classify(raw RawInteraction) Finding {
	critical := c.severe(raw.Severity, raw.Description) || c.namesMatchCombo(raw.Drugs)

	severity := raw.Severity
	if severity == "" {
		if critical {
			severity = "CRITICAL"
		} else {
			severity = "N/A"
		}
	}

	return Finding{
		Severity:    severity,
		Description: raw.Description,
		Drugs:       raw.Drugs,
		Source:      raw.Source,
		Critical:    critical,
	}
}

// CriticalPair reports whether the two names form a critical combination in either order.
func (c *KeywordClassifier) CriticalPair(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)
	for _, combo := range c.Combos {
		if (strings.Contains(a, combo.A) && strings.Contains(b, combo.B)) ||
			(strings.Contains(a, combo.B) && strings.Contains(b, combo.A)) {
			return true
		}
	}
	return false
}

func (c *KeywordClassifier) severe(severity, description string) bool {
	sev := strings.ToLower(severity)
	if sev == "high" || sev == "critical" {
		return true
	}
	desc := strings.ToLower(description)
	for _, kw := range c.Keywords {
		if strings.Contains(desc, kw) || strings.Contains(sev, kw) {
			return true
		}
	}
	return false
}

// namesMatchCombo checks every participant name, so a single name holding
// both fragments also matches.
func (c *KeywordClassifier) namesMatchCombo(drugs []string) bool {
	names := make([]string, len(drugs))
	for i, d := range drugs {
		names[i] = strings.ToLower(d)
	}
	for _, combo := range c.Combos {
		if anyContains(names, combo.A) && anyContains(names, combo.B) {
			return true
		}
	}
	return false
}

func anyContains(names []string, fragment string) bool {
	for _, n := range names {
		if strings.Contains(n, fragment) {
			return true
		}
	}
	return false
}

// Dedupe drops findings whose description was already seen. First occurrence wins.
func Dedupe(findings []Finding) []Finding {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if _, ok := seen[f.Description]; ok {
			continue
		}
		seen[f.Description] = struct{}{}
		out = append(out, f)
	}
	return out
}
