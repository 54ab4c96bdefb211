// Package button turns physical button presses into override toggles.
package button

import (
	"context"
	"time"

	"zone_controller/internal/logger"
	"zone_controller/internal/override"
)

const (
	DefaultDebounce        = 300 * time.Millisecond
	DefaultDurationMinutes = 30
	Source                 = "button"
)

// Listener reads press timestamps and forwards one toggle request per
// debounced press.
type Listener struct {
	presses  <-chan time.Time
	out      chan<- override.Request
	debounce time.Duration
	duration int
	log      *logger.Logger

	last time.Time
}

func NewListener(presses <-chan time.Time, out chan<- override.Request, debounce time.Duration, durationMinutes int, log *logger.Logger) *Listener {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Listener{
		presses:  presses,
		out:      out,
		debounce: debounce,
		duration: durationMinutes,
		log:      log,
	}
}

// Run consumes presses until ctx is cancelled or the press channel closes.
func (l *Listener) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case at, ok := <-l.presses:
			if !ok {
				return
			}
			if !l.accept(at) {
				continue
			}
			req := override.Request{
				Toggle:          true,
				DurationMinutes: l.duration,
				Source:          Source,
				InitiatedBy:     Source,
			}
			select {
			case l.out <- req:
				l.log.Infow("button_pressed", "at", at.UTC())
			case <-ctx.Done():
				return
			}
		}
	}
}

// accept reports whether a press at t falls outside the debounce window of
// the previously accepted press.
func (l *Listener) accept(t time.Time) bool {
	if !l.last.IsZero() && t.Sub(l.last) < l.debounce {
		return false
	}
	l.last = t
	return true
}
