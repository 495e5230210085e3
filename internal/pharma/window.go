// Package pharma holds the pure pharmacokinetic primitives: active windows,
// their overlap test and the multi-dose concentration curve.
package pharma

import "time"

// ClearanceMultiplier is the number of half-lives after which a drug is
// treated as eliminated (about 97%).
const ClearanceMultiplier = 5

// Window is the half-open interval [Start, End) during which a medication
// is presumed present.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ActiveWindow returns the presence window for a dose taken at lastDose.
// There is no window when the dose time is unknown or the half-life is not positive.
func ActiveWindow(lastDose *time.Time, halfLifeHours float64) (Window, bool) {
	if lastDose == nil || lastDose.IsZero() || halfLifeHours <= 0 {
		return Window{}, false
	}
	span := time.Duration(ClearanceMultiplier * halfLifeHours * float64(time.Hour))
	return Window{Start: *lastDose, End: lastDose.Add(span)}, true
}

// Overlaps reports whether two windows intersect.
func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// OverlapsOptional treats a missing window as never overlapping.
func OverlapsOptional(a Window, aok bool, b Window, bok bool) bool {
	if !aok || !bok {
		return false
	}
	return Overlaps(a, b)
}
