package metrics

import (
	"fmt"
	"strings"
)

// Family identifies one of the four DORA metrics.
type Family string

const (
	LeadTime            Family = "leadTime"
	DeploymentFrequency Family = "deploymentFrequency"
	ChangeFailureRate   Family = "changeFailureRate"
	MeanTimeToRestore   Family = "meanTimeToRestore"
)

var families = []Family{LeadTime, DeploymentFrequency, ChangeFailureRate, MeanTimeToRestore}

// Families returns all metric families in canonical order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// Valid reports whether f is a known family.
func (f Family) Valid() bool {
	switch f {
	case LeadTime, DeploymentFrequency, ChangeFailureRate, MeanTimeToRestore:
		return true
	default:
		return false
	}
}

// Label is the human-readable name of the family.
func (f Family) Label() string {
	switch f {
	case LeadTime:
		return "Lead Time"
	case DeploymentFrequency:
		return "Deployment Frequency"
	case ChangeFailureRate:
		return "Change Failure Rate"
	case MeanTimeToRestore:
		return "Mean Time to Restore"
	default:
		return string(f)
	}
}

// LowerIsBetter reports whether a falling value is an improvement.
func (f Family) LowerIsBetter() bool {
	return f != DeploymentFrequency
}

// ParseFamily accepts the canonical identifier or its kebab-case form
// (lead-time, deployment-frequency, change-failure-rate, mttr).
func ParseFamily(s string) (Family, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	for _, f := range families {
		if strings.ToLower(string(f)) == norm {
			return f, nil
		}
	}
	if norm == "mttr" {
		return MeanTimeToRestore, nil
	}
	if norm == "cfr" {
		return ChangeFailureRate, nil
	}
	return "", &ValidationError{Field: "family", Reason: fmt.Sprintf("%q is not a metric family", s)}
}

// Tier is a performance classification. Unavailable is not a tier: it marks
// a metric with no integration or no signal.
type Tier string

const (
	Elite       Tier = "elite"
	High        Tier = "high"
	Medium      Tier = "medium"
	Low         Tier = "low"
	Unavailable Tier = "unavailable"
)

// Rank orders tiers from best (0) to worst (3). Unavailable ranks -1.
func (t Tier) Rank() int {
	switch t {
	case Elite:
		return 0
	case High:
		return 1
	case Medium:
		return 2
	case Low:
		return 3
	default:
		return -1
	}
}

// Available reports whether t is an actual classification.
func (t Tier) Available() bool {
	return t.Rank() >= 0
}

// ValidationError reports a metric value or identifier that cannot be
// classified.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("metrics: invalid %s: %s", e.Field, e.Reason)
}
