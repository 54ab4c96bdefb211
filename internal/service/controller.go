package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"zone_controller/internal/clock"
	"zone_controller/internal/decision"
	"zone_controller/internal/interlock"
	"zone_controller/internal/logger"
	"zone_controller/internal/metrics"
	"zone_controller/internal/models"
	"zone_controller/internal/override"
	"zone_controller/internal/repository"
)

const errActuator = "ACTUATOR_ERROR"

// LoopDeps are the collaborators of a ControlLoop.
type LoopDeps struct {
	Sensor        SensorSource
	Actuator      Actuator
	Resolver      *override.Resolver
	StateRepo     repository.StateRepo
	EventRepo     repository.EventRepo
	InterlockRepo repository.InterlockRepo
	Clock         clock.Clock
	Metrics       *metrics.Metrics
	Log           *logger.Logger

	Comfort models.ComfortConfig
	MinIdle time.Duration
	// Persist saves interlock transitions and restores the remaining dwell
	// at startup.
	Persist bool
}

// ControlLoop reads the sensor, decides, applies overrides and the
// interlock, and commands the actuator once per tick.
type ControlLoop struct {
	d LoopDeps

	mu        sync.Mutex
	machine   *interlock.Machine
	started   bool
	commanded bool
	lastFinal models.Mode
	lastCause string
	blocked   bool
	// lastTick is the monotonic time of the previous tick.
	lastTick time.Duration
}

func NewControlLoop(d LoopDeps) *ControlLoop {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Comfort == (models.ComfortConfig{}) {
		d.Comfort = models.DefaultComfort
	}
	return &ControlLoop{d: d}
}

// Run ticks immediately and then at the given interval until ctx is
// canceled. Tick errors are logged and the loop continues.
func (l *ControlLoop) Run(ctx context.Context, tick time.Duration) {
	if _, err := l.Tick(ctx); err != nil {
		l.d.Log.Errorw("control_tick_failed", "err", err)
	}

	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			l.stop()
			return
		case <-t.C:
			if _, err := l.Tick(ctx); err != nil {
				l.d.Log.Errorw("control_tick_failed", "err", err)
			}
		}
	}
}

// Tick runs one control cycle and returns the persisted snapshot.
func (l *ControlLoop) Tick(ctx context.Context) (models.ZoneState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	started := time.Now()
	now := l.d.Clock.NowUTC()
	mono := l.d.Clock.NowMonotonic()
	if !l.started {
		l.start(ctx, now, mono)
	}
	l.accountRuntime(mono)

	if expired, err := l.d.Resolver.ClearIfExpired(ctx, now); err != nil {
		l.d.Log.Errorw("override_expiry_check_failed", "err", err)
	} else if expired {
		l.event(ctx, now, models.EventOverrideExpired, "Manual override expired", nil)
	}

	reading := l.d.Sensor.Read(now)
	l.observeReading(reading)

	auto := decision.Decide(reading, l.d.Comfort)
	res := l.d.Resolver.Resolve(ctx, now)
	requested := auto
	if res.Active {
		requested = models.Decision{Mode: res.Mode, Origin: models.OriginManual, Cause: overrideCause(res.Source)}
	}
	l.noteFailsafe(ctx, now, auto, res.Active)

	prevSnap := l.machine.Snapshot()
	final := requested
	final.Mode = l.machine.Step(requested.Mode, mono)
	l.noteInterlock(ctx, now, mono, requested, final.Mode)
	if final.Mode != requested.Mode {
		final.Cause = models.CauseInterlockCooldown
	}
	if l.d.Persist && l.machine.Snapshot() != prevSnap {
		l.persistInterlock(ctx, now)
	}

	var errorCodes []string
	if !l.commanded || final.Mode != l.lastFinal {
		if err := l.d.Actuator.ApplyMode(ctx, final); err != nil {
			l.d.Log.Errorw("actuator_apply_failed", "mode", final.Mode, "err", err)
			errorCodes = append(errorCodes, errActuator)
			l.event(ctx, now, models.EventError, "Actuator command failed", map[string]any{
				"mode": final.Mode, "err": err.Error(),
			})
		} else {
			if l.commanded {
				l.event(ctx, now, models.EventModeChange, "Mode changed to "+string(final.Mode), map[string]any{
					"from": l.lastFinal, "to": final.Mode, "origin": final.Origin, "cause": final.Cause,
				})
			}
			l.d.Log.Infow("mode_applied", "mode", final.Mode, "origin", final.Origin, "cause", final.Cause)
			l.commanded = true
			l.lastFinal = final.Mode
		}
	}

	st := models.ZoneState{
		ID:             1,
		Mode:           final.Mode,
		RequestedMode:  requested.Mode,
		Origin:         final.Origin,
		Cause:          final.Cause,
		TemperatureC:   reading.Temperature,
		Humidity:       reading.Humidity,
		Motion:         reading.Motion,
		SensorStatus:   reading.Status,
		OverrideActive: res.Active,
		OverrideSource: string(res.Source),
		ErrorCodes:     errorCodes,
		ReadingAt:      reading.Timestamp,
		UpdatedAt:      now,
	}
	if err := l.d.StateRepo.Save(ctx, st); err != nil {
		return st, err
	}

	if l.d.Metrics != nil {
		l.d.Metrics.ObserveDecision(final.Mode, final.Origin, final.Cause)
		l.d.Metrics.TickDuration.Observe(time.Since(started).Seconds())
	}
	return st, nil
}

// start restores the interlock and records the START event.
func (l *ControlLoop) start(ctx context.Context, now time.Time, mono time.Duration) {
	l.started = true
	l.machine = interlock.New(l.d.MinIdle, mono)
	if l.d.Persist && l.d.InterlockRepo != nil {
		rec, err := l.d.InterlockRepo.LoadInterlock(ctx)
		switch {
		case err != nil:
			l.d.Log.Errorw("interlock_restore_failed", "err", err)
		case rec != nil && rec.Mode.Valid():
			elapsed := now.Sub(rec.TransitionedAt)
			if elapsed < 0 {
				elapsed = 0
			}
			l.machine = interlock.Restore(l.d.MinIdle, interlock.State{Current: rec.Mode, LastTransition: mono - elapsed})
			l.d.Log.Infow("interlock_restored", "mode", rec.Mode, "remaining", l.machine.Remaining(mono))
		}
	}
	l.event(ctx, now, models.EventStart, "Zone controller started", map[string]any{
		"min_idle_seconds": l.d.MinIdle.Seconds(),
		"interlock_mode":   l.machine.Current(),
	})
}

func (l *ControlLoop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l.event(ctx, l.d.Clock.NowUTC(), models.EventStop, "Zone controller stopped", nil)
}

// accountRuntime charges the time since the previous tick to the mode the
// actuator held over that span.
func (l *ControlLoop) accountRuntime(mono time.Duration) {
	if l.commanded && l.d.Metrics != nil {
		l.d.Metrics.ObserveRuntime(l.lastFinal, mono-l.lastTick)
	}
	l.lastTick = mono
}

func (l *ControlLoop) observeReading(r models.SensorReading) {
	if l.d.Metrics != nil {
		l.d.Metrics.ObserveReading(r)
	}
}

// noteFailsafe logs and records entry into a failsafe cause once per episode.
func (l *ControlLoop) noteFailsafe(ctx context.Context, now time.Time, auto models.Decision, overridden bool) {
	if auto.Origin != models.OriginFailsafe {
		l.lastCause = ""
		return
	}
	if auto.Cause == l.lastCause {
		return
	}
	l.lastCause = auto.Cause
	l.d.Log.Warnw("sensor_failsafe", "cause", auto.Cause, "overridden", overridden)
	l.event(ctx, now, models.EventFailsafe, "Sensor failsafe: "+auto.Cause, map[string]any{
		"cause": auto.Cause, "overridden": overridden,
	})
}

// noteInterlock records the start of each blocked reversal.
func (l *ControlLoop) noteInterlock(ctx context.Context, now time.Time, mono time.Duration, requested models.Decision, final models.Mode) {
	blocked := final != requested.Mode && final == models.ModeOff && requested.Mode.Valid()
	if blocked && !l.blocked {
		remaining := l.machine.Remaining(mono)
		l.d.Log.Warnw("interlock_blocked", "requested", requested.Mode, "current", l.machine.Current(), "remaining", remaining)
		if l.d.Metrics != nil {
			l.d.Metrics.InterlockBlocks.Inc()
		}
		l.event(ctx, now, models.EventInterlock, "Reversal to "+string(requested.Mode)+" held in cooldown", map[string]any{
			"requested":         requested.Mode,
			"remaining_seconds": remaining.Seconds(),
		})
	}
	l.blocked = blocked
}

func (l *ControlLoop) persistInterlock(ctx context.Context, now time.Time) {
	if l.d.InterlockRepo == nil {
		return
	}
	rec := models.InterlockRecord{Mode: l.machine.Current(), TransitionedAt: now}
	if err := l.d.InterlockRepo.SaveInterlock(ctx, rec); err != nil {
		l.d.Log.Errorw("interlock_persist_failed", "err", err)
	}
}

func (l *ControlLoop) event(ctx context.Context, now time.Time, typ, msg string, meta map[string]any) {
	if l.d.EventRepo == nil {
		return
	}
	err := l.d.EventRepo.Append(ctx, models.ZoneEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  now,
		Type:        typ,
		Description: msg,
		Metadata:    meta,
	})
	if err != nil {
		l.d.Log.Errorw("zone_event_append_failed", "type", typ, "err", err)
	}
}

func overrideCause(src override.Source) string {
	switch src {
	case override.SourceSchedule:
		return models.CauseSchedule
	case override.SourceDefault:
		return models.CauseDefaultMode
	default:
		return models.CauseHumanOverride
	}
}
