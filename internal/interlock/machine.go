// Package interlock enforces a minimum dwell before reversing between
// heating and cooling.
package interlock

import (
	"time"

	"zone_controller/internal/models"
)

// DefaultMinIdle is the cooldown used when none is configured.
const DefaultMinIdle = 10 * time.Second

// Machine owns the interlock state of one zone. Times are monotonic offsets
// from a clock.Clock; the machine is not safe for concurrent use.
type Machine struct {
	minIdle        time.Duration
	current        models.Mode
	lastTransition time.Duration
}

// State is a copy of the machine's internal state.
type State struct {
	Current        models.Mode
	LastTransition time.Duration
}

// New returns a machine in OFF with the last transition at now.
func New(minIdle, now time.Duration) *Machine {
	return Restore(minIdle, State{Current: models.ModeOff, LastTransition: now})
}

// Restore rebuilds a machine from a previously saved state.
func Restore(minIdle time.Duration, st State) *Machine {
	if minIdle < 0 {
		minIdle = 0
	}
	if !st.Current.Valid() {
		st.Current = models.ModeOff
	}
	return &Machine{minIdle: minIdle, current: st.Current, lastTransition: st.LastTransition}
}

// Step applies one request and returns the mode to command.
//
// A reversal requested before minIdle has elapsed since the last transition
// yields OFF without updating the state, so repeated requests during the
// cooldown do not extend or shorten it. Unknown modes are treated as OFF.
func (m *Machine) Step(requested models.Mode, now time.Duration) models.Mode {
	if !requested.Valid() {
		requested = models.ModeOff
	}
	if requested == m.current {
		return m.current
	}
	if m.current.Opposes(requested) && now-m.lastTransition < m.minIdle {
		return models.ModeOff
	}
	m.current = requested
	m.lastTransition = now
	return requested
}

func (m *Machine) Current() models.Mode { return m.current }

func (m *Machine) MinIdle() time.Duration { return m.minIdle }

// Snapshot returns the current state.
func (m *Machine) Snapshot() State {
	return State{Current: m.current, LastTransition: m.lastTransition}
}

// Remaining returns how long a reversal would still be blocked at now.
func (m *Machine) Remaining(now time.Duration) time.Duration {
	left := m.minIdle - (now - m.lastTransition)
	if left < 0 || (m.current != models.ModeHeatOn && m.current != models.ModeCoolOn) {
		return 0
	}
	return left
}
