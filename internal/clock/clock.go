package clock

import (
	"sync"
	"time"
)

// Clock supplies wall time for expiry checks and monotonic time for dwell checks.
type Clock interface {
	NowUTC() time.Time
	NowMonotonic() time.Duration
}

// System reads the host clock. NowMonotonic is measured from construction
// using the runtime's monotonic reading, so wall clock jumps do not affect it.
type System struct {
	start time.Time
}

func NewSystem() *System {
	return &System{start: time.Now()}
}

func (s *System) NowUTC() time.Time { return time.Now().UTC() }

func (s *System) NowMonotonic() time.Duration { return time.Since(s.start) }

// Fake is a manually driven clock for tests and simulations.
type Fake struct {
	mu   sync.Mutex
	wall time.Time
	mono time.Duration
}

// NewFake returns a Fake starting at wall time t and monotonic zero.
func NewFake(t time.Time) *Fake {
	return &Fake{wall: t.UTC()}
}

func (f *Fake) NowUTC() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wall
}

func (f *Fake) NowMonotonic() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mono
}

// Advance moves both clocks forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wall = f.wall.Add(d)
	f.mono += d
}

// SetWall jumps the wall clock without touching the monotonic clock.
func (f *Fake) SetWall(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wall = t.UTC()
}
