// Package daterange resolves named date presets and explicit ranges into
// concrete calendar windows. Every function takes "now" from the caller.
package daterange

import (
	"errors"
	"fmt"
	"time"
)

// DefaultMaxDays is the widest span a window may cover before it is capped.
const DefaultMaxDays = 95

// DateKeyLayout is the layout of the ISO date keys used by per-day series.
const DateKeyLayout = "2006-01-02"

// Preset identifies a relative date window.
type Preset string

const (
	Yesterday   Preset = "yesterday"
	OneWeek     Preset = "oneWeek"
	TwoWeeks    Preset = "twoWeeks"
	OneMonth    Preset = "oneMonth"
	ThreeMonths Preset = "threeMonths"
	CurrMonth   Preset = "currMonth"
	Minus1Month Preset = "minus1Month"
	Minus2Month Preset = "minus2Month"
	CurrQtr     Preset = "currQtr"
	Minus1Qtr   Preset = "minus1Qtr"
	Minus2Qtr   Preset = "minus2Qtr"
	Minus3Qtr   Preset = "minus3Qtr"
	Custom      Preset = "custom"
)

// presetOrder is the display order of the resolvable presets.
var presetOrder = []Preset{
	Yesterday, OneWeek, TwoWeeks, OneMonth, ThreeMonths,
	CurrMonth, Minus1Month, Minus2Month,
	CurrQtr, Minus1Qtr, Minus2Qtr, Minus3Qtr,
}

// rollingDays maps the rolling presets to the number of days they cover,
// today included.
var rollingDays = map[Preset]int{
	OneWeek:     7,
	TwoWeeks:    14,
	OneMonth:    30,
	ThreeMonths: 90,
}

// ErrUnknownPreset is wrapped by the ValidationError returned for an
// identifier that is not a Preset.
var ErrUnknownPreset = errors.New("unknown preset")

// ValidationError reports malformed date input.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("daterange: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Presets returns every resolvable preset, custom excluded.
func Presets() []Preset {
	out := make([]Preset, len(presetOrder))
	copy(out, presetOrder)
	return out
}

// ParsePreset converts an identifier into a Preset. custom is accepted.
func ParsePreset(s string) (Preset, error) {
	p := Preset(s)
	if p == Custom || p.Valid() {
		return p, nil
	}
	return "", &ValidationError{Field: "preset", Reason: fmt.Sprintf("%q is not a known preset", s), Err: ErrUnknownPreset}
}

// Valid reports whether p is a resolvable preset. custom is not.
func (p Preset) Valid() bool {
	for _, known := range presetOrder {
		if p == known {
			return true
		}
	}
	return false
}

// Window is a closed calendar interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Equal reports whether both endpoints are the same instants.
func (w Window) Equal(o Window) bool {
	return w.Start.Equal(o.Start) && w.End.Equal(o.End)
}

// WholeDays is the number of complete 24h periods between Start and End.
func (w Window) WholeDays() int {
	return int(w.End.Sub(w.Start) / (24 * time.Hour))
}

// CalendarDays is the number of calendar days the window touches.
func (w Window) CalendarDays() int {
	return len(w.Days())
}

// Contains reports whether t falls inside the window, endpoints included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Previous returns the window of the same length that ends just before w.
func (w Window) Previous() Window {
	span := w.End.Sub(w.Start)
	end := w.Start.Add(-time.Nanosecond)
	return Window{Start: end.Add(-span), End: end}
}

// Days returns the date key of every calendar day in the window, ascending.
func (w Window) Days() []string {
	if w.End.Before(w.Start) {
		return nil
	}
	var days []string
	last := startOfDay(w.End)
	for d := startOfDay(w.Start.In(w.End.Location())); !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, d.Format(DateKeyLayout))
	}
	return days
}

// DayKey returns the calendar day of t in the window's zone, the zone of
// its end.
func (w Window) DayKey(t time.Time) string {
	return t.In(w.End.Location()).Format(DateKeyLayout)
}

// Resolve computes the window a preset covers at now.
func Resolve(p Preset, now time.Time) (Window, error) {
	if n, ok := rollingDays[p]; ok {
		return Window{Start: startOfDay(now.AddDate(0, 0, -(n - 1))), End: endOfDay(now)}, nil
	}

	switch p {
	case Yesterday:
		y := now.AddDate(0, 0, -1)
		return Window{Start: startOfDay(y), End: endOfDay(y)}, nil
	case CurrMonth:
		return Window{Start: startOfMonth(now), End: earliest(endOfDay(now), endOfMonth(now))}, nil
	case Minus1Month:
		return monthBack(now, 1), nil
	case Minus2Month:
		return monthBack(now, 2), nil
	case CurrQtr:
		return Window{Start: startOfQuarter(now), End: earliest(endOfDay(now), endOfQuarter(now))}, nil
	case Minus1Qtr:
		return quarterBack(now, 1), nil
	case Minus2Qtr:
		return quarterBack(now, 2), nil
	case Minus3Qtr:
		return quarterBack(now, 3), nil
	case Custom:
		return Window{}, &ValidationError{Field: "preset", Reason: "custom requires explicit start and end"}
	default:
		return Window{}, &ValidationError{Field: "preset", Reason: fmt.Sprintf("%q is not a known preset", string(p)), Err: ErrUnknownPreset}
	}
}

// ResolveCustom builds a window from explicit bounds. end is normalized to the
// last instant of its day. Out-of-order bounds are rejected, not swapped.
func ResolveCustom(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, &ValidationError{Field: "range", Reason: "start and end are required"}
	}
	if start.After(end) {
		return Window{}, &ValidationError{
			Field:  "range",
			Reason: fmt.Sprintf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339)),
		}
	}
	return Window{Start: start, End: endOfDay(end)}, nil
}

// CapToMaxSpan shrinks w from the past side so it spans at most maxDays whole
// days. End is never altered.
func CapToMaxSpan(w Window, maxDays int) (Window, bool) {
	if maxDays <= 0 || w.WholeDays() <= maxDays {
		return w, false
	}
	return Window{Start: w.End.AddDate(0, 0, -maxDays), End: w.End}, true
}

func monthBack(now time.Time, k int) Window {
	first := startOfMonth(now).AddDate(0, -k, 0)
	return Window{Start: first, End: endOfMonth(first)}
}

func quarterBack(now time.Time, k int) Window {
	first := startOfQuarter(now).AddDate(0, -3*k, 0)
	return Window{Start: first, End: endOfQuarter(first)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

func startOfQuarter(t time.Time) time.Time {
	m := ((int(t.Month())-1)/3)*3 + 1
	return time.Date(t.Year(), time.Month(m), 1, 0, 0, 0, 0, t.Location())
}

func endOfQuarter(t time.Time) time.Time {
	return startOfQuarter(t).AddDate(0, 3, 0).Add(-time.Nanosecond)
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
