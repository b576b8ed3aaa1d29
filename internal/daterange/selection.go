package daterange

import (
	"fmt"
	"time"
)

// Selection is the persisted form of a user's date choice. Only custom
// selections carry bounds; presets are resolved again on every load.
type Selection struct {
	Preset Preset    `json:"preset"`
	Start  time.Time `json:"start,omitzero"`
	End    time.Time `json:"end,omitzero"`
}

// Validate checks that the selection can be resolved.
func (s Selection) Validate() error {
	if s.Preset == Custom {
		_, err := ResolveCustom(s.Start, s.End)
		return err
	}
	if !s.Preset.Valid() {
		_, err := ParsePreset(string(s.Preset))
		return err
	}
	return nil
}

// Normalized drops bounds that a preset selection does not use and moves a
// custom end to the last instant of its day, as ResolveCustom does.
func (s Selection) Normalized() Selection {
	if s.Preset != Custom {
		return Selection{Preset: s.Preset}
	}
	if !s.End.IsZero() {
		s.End = endOfDay(s.End)
	}
	return s
}

// Equal reports whether two selections resolve to the same window. The
// offset of End matters since it fixes where the window's days begin.
func (s Selection) Equal(o Selection) bool {
	a, b := s.Normalized(), o.Normalized()
	if a.Preset != b.Preset || !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
		return false
	}
	_, ao := a.End.Zone()
	_, bo := b.End.Zone()
	return ao == bo
}

// ParseSelection builds a selection from a preset name or explicit bounds.
// Bounds imply the custom preset; naming any other preset with bounds is an
// error.
func ParseSelection(preset, start, end string) (Selection, error) {
	if start == "" && end == "" {
		p, err := ParsePreset(preset)
		if err != nil {
			return Selection{}, err
		}
		return Selection{Preset: p}, nil
	}

	if preset != "" && preset != string(Custom) {
		return Selection{}, &ValidationError{Field: "preset", Reason: "explicit bounds require the custom preset"}
	}
	s, err := ParseTime(start)
	if err != nil {
		return Selection{}, &ValidationError{Field: "start", Reason: err.Error()}
	}
	e, err := ParseTime(end)
	if err != nil {
		return Selection{}, &ValidationError{Field: "end", Reason: err.Error()}
	}
	return Selection{Preset: Custom, Start: s, End: e}, nil
}

// ParseTime accepts RFC 3339 or a plain date, read as UTC midnight.
func ParseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("is required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateKeyLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", v)
	}
	return t, nil
}

// Resolved is a selection turned into a bounded window.
type Resolved struct {
	Window Window `json:"window"`
	Capped bool   `json:"capped"`
}

// Resolver resolves selections and enforces the maximum span.
type Resolver struct {
	MaxDays int
}

// NewResolver returns a Resolver; a non-positive maxDays means DefaultMaxDays.
func NewResolver(maxDays int) Resolver {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	return Resolver{MaxDays: maxDays}
}

// Resolve turns sel into a window at now, capping it to MaxDays.
func (r Resolver) Resolve(sel Selection, now time.Time) (Resolved, error) {
	var (
		w   Window
		err error
	)
	if sel.Preset == Custom {
		w, err = ResolveCustom(sel.Start, sel.End)
	} else {
		w, err = Resolve(sel.Preset, now)
	}
	if err != nil {
		return Resolved{}, err
	}
	w, capped := CapToMaxSpan(w, r.MaxDays)
	return Resolved{Window: w, Capped: capped}, nil
}
