// Package dragselect tracks a pointer-driven date range selection across
// day cells and hands the normalized range to event creation on release.
//
// A Machine has a single owner and is not safe for concurrent use.
package dragselect

import (
	"time"

	"hrcal/internal/model"
)

// CreatePermissions are the permissions of which at least one is needed to
// create events by dragging.
var CreatePermissions = []string{"VACATION:USE", "VACATION:MANAGE", "SCHEDULE:WRITE", "SCHEDULE:MANAGE"}

// HasAnyPermission reports whether granted contains any of required.
func HasAnyPermission(granted, required []string) bool {
	for _, r := range required {
		for _, g := range granted {
			if g == r {
				return true
			}
		}
	}
	return false
}

// State is a copy of the machine's current selection.
type State struct {
	Selecting bool       `json:"is_selecting"`
	Start     *time.Time `json:"selection_start"`
	End       *time.Time `json:"selection_end"`
}

// Option configures a Machine.
type Option func(*Machine)

// WithGuard installs a check consulted on every StartSelection. When it
// returns false the machine stays idle.
func WithGuard(guard func() bool) Option {
	return func(m *Machine) {
		m.guard = guard
	}
}

// Machine is the Idle -> Selecting -> Idle selection state machine.
type Machine struct {
	selecting bool
	start     *time.Time
	end       *time.Time

	guard      func() bool
	onComplete func(model.DateRange)
}

// New returns an idle machine. onComplete receives every completed range and
// may be nil.
func New(onComplete func(model.DateRange), opts ...Option) *Machine {
	m := &Machine{onComplete: onComplete}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSelection begins a selection on date, replacing any selection in
// progress. It reports whether the selection started.
func (m *Machine) StartSelection(date time.Time) bool {
	return m.StartSelectionWith(date, m.guard)
}

// StartSelectionWith is StartSelection with guard consulted in place of the
// installed one. A nil guard always allows the start.
func (m *Machine) StartSelectionWith(date time.Time, guard func() bool) bool {
	if guard != nil && !guard() {
		return false
	}
	m.selecting = true
	m.start = &date
	end := date
	m.end = &end
	return true
}

// UpdateSelection moves the selection end to date. It does nothing while idle.
func (m *Machine) UpdateSelection(date time.Time) {
	if !m.selecting {
		return
	}
	m.end = &date
}

// EndSelection finishes the gesture. If a selection was in progress the
// range is normalized so Start <= End, passed to onComplete and returned with
// ok=true. In every case the machine is back to idle afterwards.
func (m *Machine) EndSelection() (rng model.DateRange, ok bool) {
	if m.selecting && m.start != nil && m.end != nil {
		rng = normalize(*m.start, *m.end)
		ok = true
	}

	m.selecting = false
	m.start = nil
	m.end = nil

	if ok && m.onComplete != nil {
		m.onComplete(rng)
	}
	return rng, ok
}

// Reset drops any selection without emitting.
func (m *Machine) Reset() {
	m.selecting = false
	m.start = nil
	m.end = nil
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	s := State{Selecting: m.selecting}
	if m.start != nil {
		v := *m.start
		s.Start = &v
	}
	if m.end != nil {
		v := *m.end
		s.End = &v
	}
	return s
}

func normalize(a, b time.Time) model.DateRange {
	if b.Before(a) {
		return model.DateRange{Start: b, End: a}
	}
	return model.DateRange{Start: a, End: b}
}
