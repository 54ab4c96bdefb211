// Package override arbitrates manual, scheduled and default control sources.
package override

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"zone_controller/internal/audit"
	"zone_controller/internal/logger"
	"zone_controller/internal/models"
)

// MaxDurationMinutes bounds a manual override to one year.
const MaxDurationMinutes = 365 * 24 * 60

var (
	ErrInvalidDuration = errors.New("invalid duration: duration_minutes must be between 1 and 525600")
	ErrRateLimited     = errors.New("too many override requests, try again later")
)

// Store keeps the current manual override. Get returns (nil, nil) when there is none.
type Store interface {
	Get(ctx context.Context) (*models.OverrideRecord, error)
	Set(ctx context.Context, rec models.OverrideRecord) error
	Clear(ctx context.Context) error
}

// ScheduleSource returns the ordered rule set in force at now.
type ScheduleSource interface {
	RulesFor(now time.Time) ([]models.ScheduleRule, error)
}

// AuditLog records override applications.
type AuditLog interface {
	Append(e audit.Entry) (models.AuditEvent, error)
}

// Source names which layer produced an active resolution.
type Source string

const (
	SourceNone     Source = ""
	SourceManual   Source = "manual"
	SourceSchedule Source = "schedule"
	SourceDefault  Source = "default"
)

// Resolution is the effective override at an instant.
type Resolution struct {
	Active bool        `json:"active"`
	Mode   models.Mode `json:"mode,omitempty"`
	Source Source      `json:"source,omitempty"`
}

// Request asks for a manual override. With Toggle set, Mode is ignored and
// the target is OFF when a manual override other than OFF is active, else FAN_ONLY.
type Request struct {
	Mode            string
	DurationMinutes int
	Source          string
	InitiatedBy     string
	Toggle          bool
}

// Applied describes a stored override and its audit record.
type Applied struct {
	Record models.OverrideRecord `json:"record"`
	Event  models.AuditEvent     `json:"event"`
	Until  time.Time             `json:"until"`
}

// Options configures a Resolver. Zero values select sensible defaults.
type Options struct {
	// DefaultMode is the fallback when neither manual nor schedule applies.
	// Empty means no fallback: the decision engine drives the zone.
	DefaultMode models.Mode
	// Location is used to evaluate schedule rules. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
	Log      *logger.Logger
}

// Resolver is the single writer for the override record. Every mutation of
// the store and every journal append happen under one mutex so the audit
// chain keeps a total order.
type Resolver struct {
	mu          sync.Mutex
	store       Store
	schedule    ScheduleSource
	journal     AuditLog
	defaultMode models.Mode
	loc         *time.Location
	now         func() time.Time
	log         *logger.Logger
}

func NewResolver(store Store, schedule ScheduleSource, journal AuditLog, opts Options) *Resolver {
	r := &Resolver{
		store:       store,
		schedule:    schedule,
		journal:     journal,
		defaultMode: opts.DefaultMode,
		loc:         opts.Location,
		now:         opts.Now,
		log:         opts.Log,
	}
	if r.loc == nil {
		r.loc = time.Local
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	if r.defaultMode != "" && !r.defaultMode.Valid() {
		r.log.Warnw("override_default_mode_invalid", "mode", r.defaultMode)
		r.defaultMode = ""
	}
	return r
}

// Resolve returns the highest priority active source at now:
// manual, then schedule, then the configured default.
func (r *Resolver) Resolve(ctx context.Context, now time.Time) Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.activeManualLocked(ctx, now); rec != nil {
		return Resolution{Active: true, Mode: rec.Mode, Source: SourceManual}
	}
	if mode, ok := r.scheduledLocked(now); ok {
		return Resolution{Active: true, Mode: mode, Source: SourceSchedule}
	}
	if r.defaultMode != "" {
		return Resolution{Active: true, Mode: r.defaultMode, Source: SourceDefault}
	}
	return Resolution{}
}

// Apply validates and stores a manual override, then appends it to the
// journal. If the append fails the previous record is restored.
func (r *Resolver) Apply(ctx context.Context, req Request) (Applied, error) {
	if req.DurationMinutes <= 0 || req.DurationMinutes > MaxDurationMinutes {
		return Applied{}, fmt.Errorf("%w: %d", ErrInvalidDuration, req.DurationMinutes)
	}
	var mode models.Mode
	if !req.Toggle {
		m, err := models.ParseMode(req.Mode)
		if err != nil {
			return Applied{}, err
		}
		mode = m
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	prev, err := r.store.Get(ctx)
	if err != nil {
		return Applied{}, fmt.Errorf("load override: %w", err)
	}
	if req.Toggle {
		mode = toggleTarget(prev, now)
	}

	until := now.Add(time.Duration(req.DurationMinutes) * time.Minute)
	rec := models.OverrideRecord{
		Mode:        mode,
		ExpiresAt:   until.Format(models.ExpiryLayout),
		Source:      req.Source,
		InitiatedBy: req.InitiatedBy,
	}
	if err := r.store.Set(ctx, rec); err != nil {
		return Applied{}, fmt.Errorf("store override: %w", err)
	}

	ev, err := r.journal.Append(audit.Entry{
		Mode:            string(mode),
		DurationMinutes: req.DurationMinutes,
		Source:          req.Source,
		InitiatedBy:     req.InitiatedBy,
		At:              now,
	})
	if err != nil {
		r.restoreLocked(ctx, prev)
		return Applied{}, fmt.Errorf("append audit event: %w", err)
	}

	r.log.Infow("override_applied",
		"mode", mode, "until", rec.ExpiresAt, "source", rec.Source, "initiated_by", rec.InitiatedBy, "hash", ev.Hash)
	return Applied{Record: rec, Event: ev, Until: until}, nil
}

// Cancel removes the manual override and journals the cancellation with a
// zero duration. It reports whether anything was cancelled.
func (r *Resolver) Cancel(ctx context.Context, initiatedBy string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, err := r.store.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("load override: %w", err)
	}
	if prev == nil {
		return false, nil
	}
	if err := r.store.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear override: %w", err)
	}
	if _, err := r.journal.Append(audit.Entry{
		Mode:        string(prev.Mode),
		Source:      "cancel",
		InitiatedBy: initiatedBy,
		At:          r.now().UTC(),
	}); err != nil {
		r.restoreLocked(ctx, prev)
		return false, fmt.Errorf("append audit event: %w", err)
	}
	r.log.Infow("override_cancelled", "mode", prev.Mode, "initiated_by", initiatedBy)
	return true, nil
}

// ClearIfExpired drops the manual override when its expiry has passed or
// cannot be parsed. A malformed expiry is never treated as "forever".
func (r *Resolver) ClearIfExpired(ctx context.Context, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.store.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("load override: %w", err)
	}
	if rec == nil {
		return false, nil
	}
	exp, hasExpiry, perr := rec.Expiry()
	switch {
	case perr != nil:
		r.log.Warnw("override_expiry_unparsable", "expires_at", rec.ExpiresAt, "err", perr)
	case !hasExpiry || now.Before(exp):
		return false, nil
	}
	if err := r.store.Clear(ctx); err != nil {
		return false, fmt.Errorf("clear override: %w", err)
	}
	r.log.Infow("override_expired", "mode", rec.Mode, "expires_at", rec.ExpiresAt)
	return true, nil
}

// Current returns the stored manual override, active or not.
func (r *Resolver) Current(ctx context.Context) (*models.OverrideRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Get(ctx)
}

func (r *Resolver) activeManualLocked(ctx context.Context, now time.Time) *models.OverrideRecord {
	rec, err := r.store.Get(ctx)
	if err != nil {
		r.log.Errorw("override_store_read_failed", "err", err)
		return nil
	}
	if !isActive(rec, now) {
		return nil
	}
	return rec
}

func (r *Resolver) scheduledLocked(now time.Time) (models.Mode, bool) {
	if r.schedule == nil {
		return "", false
	}
	rules, err := r.schedule.RulesFor(now)
	if err != nil {
		r.log.Warnw("schedule_unavailable", "err", err)
		return "", false
	}
	return MatchRule(rules, now.In(r.loc))
}

func (r *Resolver) restoreLocked(ctx context.Context, prev *models.OverrideRecord) {
	var err error
	if prev == nil {
		err = r.store.Clear(ctx)
	} else {
		err = r.store.Set(ctx, *prev)
	}
	if err != nil {
		r.log.Errorw("override_rollback_failed", "err", err)
	}
}

// isActive reports whether rec is a valid, unexpired override at now.
func isActive(rec *models.OverrideRecord, now time.Time) bool {
	if rec == nil || !rec.Mode.Valid() {
		return false
	}
	exp, hasExpiry, err := rec.Expiry()
	if err != nil {
		return false
	}
	return !hasExpiry || now.Before(exp)
}

func toggleTarget(cur *models.OverrideRecord, now time.Time) models.Mode {
	if isActive(cur, now) && cur.Mode != models.ModeOff {
		return models.ModeOff
	}
	return models.ModeFanOnly
}
