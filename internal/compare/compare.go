package compare

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	// DefaultMateriality is the smallest delta reported as a trend change.
	DefaultMateriality = 0.5
	// DefaultMultiplierPercent is the percentage swing above which a change
	// is expressed as a multiplier.
	DefaultMultiplierPercent = 100.0

	// clampPercent is reported when the previous period was zero.
	clampPercent = 100.0
)

// Mode says how Delta is expressed.
type Mode string

const (
	ModePercentage Mode = "percentage"
	ModeMultiplier Mode = "multiplier"
)

// Direction is the materiality filtered sign of a change.
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
	Neutral  Direction = "neutral"
)

// ValidationError reports a comparison input that cannot be compared.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("compare: %s: %s", e.Field, e.Reason)
}

// Config tunes a Comparator. Zero values select the defaults.
type Config struct {
	Materiality       float64 `json:"materiality" yaml:"materiality"`
	MultiplierPercent float64 `json:"multiplier_percent" yaml:"multiplier_percent"`
}

// Options are per call switches.
type Options struct {
	// DifferenceBased reports the plain difference of the rounded values.
	DifferenceBased bool `json:"difference_based"`
}

// Comparison is the outcome of comparing two periods.
type Comparison struct {
	Delta     float64   `json:"delta"`
	Mode      Mode      `json:"mode"`
	Direction Direction `json:"direction"`
}

// Comparator compares a current value against a previous one.
type Comparator struct {
	materiality       float64
	multiplierPercent float64
}

// New returns a Comparator for cfg.
func New(cfg Config) *Comparator {
	c := &Comparator{
		materiality:       cfg.Materiality,
		multiplierPercent: cfg.MultiplierPercent,
	}
	if c.materiality <= 0 {
		c.materiality = DefaultMateriality
	}
	if c.multiplierPercent <= 0 {
		c.multiplierPercent = DefaultMultiplierPercent
	}
	return c
}

// Materiality returns the configured materiality threshold.
func (c *Comparator) Materiality() float64 { return c.materiality }

// Compare reports the change from previous to current. The result is always
// finite.
func (c *Comparator) Compare(current, previous float64, opts Options) (Comparison, error) {
	if err := checkInput("current", current); err != nil {
		return Comparison{}, err
	}
	if err := checkInput("previous", previous); err != nil {
		return Comparison{}, err
	}

	if current == 0 && previous == 0 {
		return Comparison{Delta: 0, Mode: ModePercentage, Direction: Neutral}, nil
	}

	if opts.DifferenceBased {
		delta := round(current, 0) - round(previous, 0)
		return c.result(delta, ModePercentage, delta), nil
	}

	if previous == 0 {
		pct := math.Copysign(clampPercent, current)
		return c.result(pct, ModePercentage, pct), nil
	}

	ratio := current / previous
	pct := round(ratio*100-100, 0)
	if math.Abs(pct) > c.multiplierPercent {
		return c.result(round(ratio, 1), ModeMultiplier, pct), nil
	}
	return c.result(pct, ModePercentage, pct), nil
}

// result builds a Comparison whose direction is taken from the signed change,
// which differs from delta in multiplier mode.
func (c *Comparator) result(delta float64, mode Mode, change float64) Comparison {
	// -0 would render as "-0%".
	if delta == 0 {
		delta = 0
	}
	return Comparison{Delta: delta, Mode: mode, Direction: c.direction(change)}
}

func (c *Comparator) direction(change float64) Direction {
	switch {
	case change > c.materiality:
		return Positive
	case change < -c.materiality:
		return Negative
	default:
		return Neutral
	}
}

func checkInput(field string, v float64) error {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return &ValidationError{Field: field, Reason: "must be finite"}
	case v < 0:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not be negative, got %v", v)}
	}
	return nil
}

func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
