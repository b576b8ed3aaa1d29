package metrics

import (
	"fmt"
	"math"
	"time"
)

// Band is one cutoff of a threshold table. A value inside the band satisfies
// value < Limit, or value <= Limit when Inclusive is set.
type Band struct {
	Limit     float64 `json:"limit"`
	Inclusive bool    `json:"inclusive"`
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool {
	if b.Inclusive {
		return v <= b.Limit
	}
	return v < b.Limit
}

// Table holds the elite, high and medium cutoffs of a lower-is-better
// metric. Anything outside Medium is low.
type Table struct {
	Elite  Band `json:"elite"`
	High   Band `json:"high"`
	Medium Band `json:"medium"`
}

func (t Table) tier(v float64) Tier {
	switch {
	case t.Elite.Contains(v):
		return Elite
	case t.High.Contains(v):
		return High
	case t.Medium.Contains(v):
		return Medium
	default:
		return Low
	}
}

// Thresholds carries a table per threshold-based family. Durations are in
// seconds, change failure rate in percent.
type Thresholds struct {
	LeadTime          Table `json:"lead_time"`
	MeanTimeToRestore Table `json:"mean_time_to_restore"`
	ChangeFailureRate Table `json:"change_failure_rate"`
}

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
)

// DefaultThresholds returns the standard DORA cutoffs. Lead time and change
// failure rate treat the elite boundary as inclusive; restore time does not.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LeadTime: Table{
			Elite:  Band{Limit: day.Seconds(), Inclusive: true},
			High:   Band{Limit: week.Seconds()},
			Medium: Band{Limit: month.Seconds()},
		},
		MeanTimeToRestore: Table{
			Elite:  Band{Limit: time.Hour.Seconds()},
			High:   Band{Limit: day.Seconds()},
			Medium: Band{Limit: week.Seconds()},
		},
		ChangeFailureRate: Table{
			Elite:  Band{Limit: 5, Inclusive: true},
			High:   Band{Limit: 10, Inclusive: true},
			Medium: Band{Limit: 15, Inclusive: true},
		},
	}
}

// Classifier maps raw metric values to tiers.
type Classifier struct {
	thresholds Thresholds
}

// NewClassifier returns a Classifier using t.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{thresholds: t}
}

// Thresholds returns the tables the classifier was built with.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify returns the tier of v for family f. A nil value is Unavailable.
// Deployment frequency is expressed in deployments per day.
func (c *Classifier) Classify(f Family, v *float64) (Tier, error) {
	if !f.Valid() {
		return Unavailable, &ValidationError{Field: "family", Reason: fmt.Sprintf("%q is not a metric family", string(f))}
	}
	if v == nil {
		return Unavailable, nil
	}
	if err := checkValue(f, *v); err != nil {
		return Unavailable, err
	}

	switch f {
	case LeadTime:
		return c.thresholds.LeadTime.tier(*v), nil
	case MeanTimeToRestore:
		return c.thresholds.MeanTimeToRestore.tier(*v), nil
	case ChangeFailureRate:
		return c.thresholds.ChangeFailureRate.tier(*v), nil
	case DeploymentFrequency:
		return ClassifyCadence(CadenceOf(*v)), nil
	}
	return Unavailable, nil
}

func checkValue(f Family, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &ValidationError{Field: string(f), Reason: "value is not finite"}
	case v < 0:
		return &ValidationError{Field: string(f), Reason: fmt.Sprintf("value %g is negative", v)}
	}
	return nil
}
