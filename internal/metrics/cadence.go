package metrics

import "math"

// Interval is the period a deployment cadence is expressed over.
type Interval string

const (
	PerDay   Interval = "day"
	PerWeek  Interval = "week"
	PerMonth Interval = "month"
)

// Cadence is a deployment count per interval.
type Cadence struct {
	Count    float64  `json:"count"`
	Interval Interval `json:"interval"`
}

// CadenceOf picks the smallest interval in which at least one deployment
// happens on average. Monthly counts are whole deployments.
func CadenceOf(perDay float64) Cadence {
	if perDay >= 1 {
		return Cadence{Count: perDay, Interval: PerDay}
	}
	if perWeek := perDay * 7; perWeek >= 1 {
		return Cadence{Count: perWeek, Interval: PerWeek}
	}
	return Cadence{Count: math.Round(perDay * 30), Interval: PerMonth}
}

// ClassifyCadence maps a cadence to its tier.
func ClassifyCadence(c Cadence) Tier {
	switch {
	case c.Interval == PerDay && c.Count >= 1:
		return Elite
	case c.Interval == PerWeek && c.Count >= 1:
		return High
	case c.Interval == PerMonth && c.Count > 1:
		return High
	case c.Interval == PerMonth && c.Count == 1:
		return Medium
	default:
		return Low
	}
}
