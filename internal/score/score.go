package score

import (
	"fmt"

	"github.com/rigdev/pulse/internal/metrics"
	"github.com/shopspring/decimal"
)

// DefaultStandard is the industry average score teams are compared against.
const DefaultStandard = 6.3

// Band is the display band of an aggregate score.
type Band string

const (
	BandElite       Band = "elite"
	BandHigh        Band = "high"
	BandMedium      Band = "medium"
	BandLow         Band = "low"
	BandUnavailable Band = "unavailable"
)

// SubScore maps a tier to its 0-10 contribution.
func SubScore(t metrics.Tier) (float64, bool) {
	switch t {
	case metrics.Elite:
		return 10, true
	case metrics.High:
		return 7, true
	case metrics.Medium:
		return 4, true
	case metrics.Low:
		return 1, true
	default:
		return 0, false
	}
}

// Score is the aggregate of the families a team has data for.
type Score struct {
	Average    float64                    `json:"average"`
	Standard   float64                    `json:"standard"`
	Components map[metrics.Family]float64 `json:"components"`
}

// Available reports whether any family contributed.
func (s Score) Available() bool {
	return len(s.Components) > 0
}

// Band maps the average to its display band.
func (s Score) Band() Band {
	switch {
	case !s.Available():
		return BandUnavailable
	case s.Average >= 8:
		return BandElite
	case s.Average >= 6:
		return BandHigh
	case s.Average >= 4:
		return BandMedium
	default:
		return BandLow
	}
}

// Aggregator turns raw family values into a Score.
type Aggregator struct {
	classifier *metrics.Classifier
	standard   float64
}

// New returns an Aggregator. A non-positive standard selects DefaultStandard.
func New(classifier *metrics.Classifier, standard float64) *Aggregator {
	if standard <= 0 {
		standard = DefaultStandard
	}
	return &Aggregator{classifier: classifier, standard: standard}
}

// Aggregate classifies every present value and averages the sub-scores.
// Absent and nil families are left out entirely.
func (a *Aggregator) Aggregate(values map[metrics.Family]*float64) (Score, error) {
	s := Score{
		Standard:   a.standard,
		Components: make(map[metrics.Family]float64),
	}

	sum := decimal.Zero
	for _, f := range metrics.Families() {
		v, ok := values[f]
		if !ok || v == nil {
			continue
		}
		tier, err := a.classifier.Classify(f, v)
		if err != nil {
			return Score{}, fmt.Errorf("score %s: %w", f, err)
		}
		sub, ok := SubScore(tier)
		if !ok {
			continue
		}
		s.Components[f] = sub
		sum = sum.Add(decimal.NewFromFloat(sub))
	}

	if n := len(s.Components); n > 0 {
		s.Average = sum.Div(decimal.NewFromInt(int64(n))).Round(1).InexactFloat64()
	}
	return s, nil
}
