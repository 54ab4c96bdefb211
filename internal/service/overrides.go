package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"zone_controller/internal/audit"
	"zone_controller/internal/clock"
	"zone_controller/internal/logger"
	"zone_controller/internal/metrics"
	"zone_controller/internal/models"
	"zone_controller/internal/override"
	"zone_controller/internal/repository"
)

const defaultOverrideSource = "api"

// ErrIntakeUnavailable is returned when no intake is wired.
var ErrIntakeUnavailable = errors.New("override intake is not running")

// IsInvalidOverride reports whether err is a validation failure the caller
// can fix.
func IsInvalidOverride(err error) bool {
	return errors.Is(err, models.ErrInvalidMode) || errors.Is(err, override.ErrInvalidDuration)
}

// IsRateLimited reports whether err came from the intake throttle.
func IsRateLimited(err error) bool {
	return errors.Is(err, override.ErrRateLimited)
}

type OverrideService struct {
	intake    *override.Intake
	resolver  *override.Resolver
	eventRepo repository.EventRepo
	metrics   *metrics.Metrics
	clock     clock.Clock
	log       *logger.Logger
}

// NewOverrideService registers itself as the intake observer so overrides
// from every trigger are counted and recorded as zone events.
func NewOverrideService(in *override.Intake, r *override.Resolver, eventRepo repository.EventRepo, m *metrics.Metrics, clk clock.Clock, log *logger.Logger) *OverrideService {
	s := &OverrideService{intake: in, resolver: r, eventRepo: eventRepo, metrics: m, clock: clk, log: log}
	if in != nil {
		in.Observe(s.record)
	}
	return s
}

// Apply submits p through the intake and waits for the outcome.
func (s *OverrideService) Apply(ctx context.Context, p OverrideParams) (override.Applied, error) {
	if s.intake == nil {
		return override.Applied{}, ErrIntakeUnavailable
	}
	if p.Source == "" {
		p.Source = defaultOverrideSource
	}
	return s.intake.Submit(ctx, override.Request{
		Mode:            p.Mode,
		DurationMinutes: p.DurationMinutes,
		Source:          p.Source,
		InitiatedBy:     p.InitiatedBy,
	})
}

// Cancel clears the manual override. It reports false when none was stored.
func (s *OverrideService) Cancel(ctx context.Context, initiatedBy string) (bool, error) {
	cancelled, err := s.resolver.Cancel(ctx, initiatedBy)
	if err != nil {
		return false, err
	}
	if cancelled {
		s.appendEvent(ctx, models.EventOverrideCancel, "Manual override cancelled", map[string]any{
			"initiated_by": initiatedBy,
		})
	}
	return cancelled, nil
}

// Current reports the effective override now and the stored manual record.
func (s *OverrideService) Current(ctx context.Context) (OverrideStatus, error) {
	rec, err := s.resolver.Current(ctx)
	if err != nil {
		return OverrideStatus{}, err
	}
	res := s.resolver.Resolve(ctx, s.clock.NowUTC())
	return OverrideStatus{Active: res.Active, Mode: res.Mode, Source: res.Source, Manual: rec}, nil
}

func (s *OverrideService) record(req override.Request, res override.Result) {
	if s.metrics != nil {
		s.metrics.ObserveOverride(req.Source, res.Err)
	}
	if res.Err != nil {
		s.log.Warnw("override_rejected", "source", req.Source, "initiated_by", req.InitiatedBy, "err", res.Err)
		return
	}
	rec := res.Applied.Record
	s.appendEvent(context.Background(), models.EventOverride,
		fmt.Sprintf("Override %s for %d min", rec.Mode, req.DurationMinutes),
		map[string]any{
			"mode":         rec.Mode,
			"source":       rec.Source,
			"initiated_by": rec.InitiatedBy,
			"expires_at":   rec.ExpiresAt,
			"audit_hash":   res.Applied.Event.Hash,
		})
}

func (s *OverrideService) appendEvent(ctx context.Context, typ, msg string, meta map[string]any) {
	if s.eventRepo == nil {
		return
	}
	err := s.eventRepo.Append(ctx, models.ZoneEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.clock.NowUTC(),
		Type:        typ,
		Description: msg,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("zone_event_append_failed", "type", typ, "err", err)
	}
}

// meteredJournal counts journal appends.
type meteredJournal struct {
	inner   override.AuditLog
	metrics *metrics.Metrics
}

// NewMeteredJournal wraps j so each append is reflected in m.
func NewMeteredJournal(j override.AuditLog, m *metrics.Metrics) override.AuditLog {
	return &meteredJournal{inner: j, metrics: m}
}

func (j *meteredJournal) Append(e audit.Entry) (models.AuditEvent, error) {
	ev, err := j.inner.Append(e)
	j.metrics.ObserveAuditAppend(err)
	return ev, err
}
