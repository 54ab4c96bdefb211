package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"zone_controller/internal/models"
	"zone_controller/internal/repository"
)

// MaxLogLimit caps how many events one history query returns.
const MaxLogLimit = 1000

var (
	errInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	errUnknownEventType = errors.New("unknown event type")
	errNegativeLimit    = errors.New("limit must not be negative")
)

// IsInvalidFilter reports whether err came from filter validation.
func IsInvalidFilter(err error) bool {
	return errors.Is(err, errInvalidTimeRange) ||
		errors.Is(err, errUnknownEventType) ||
		errors.Is(err, errNegativeLimit)
}

// EventLogService serves the zone event history.
type EventLogService struct {
	events repository.EventRepo
}

func NewEventLogService(events repository.EventRepo) *EventLogService {
	return &EventLogService{events: events}
}

// List returns the matching events oldest first. A positive Limit keeps the
// most recent ones.
func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ZoneEvent, error) {
	q, err := f.query()
	if err != nil {
		return nil, err
	}
	events, err := s.events.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list zone events: %w", err)
	}
	return events, nil
}

// query validates f and converts it to a repository query in UTC.
func (f LogFilter) query() (repository.EventQuery, error) {
	q := repository.EventQuery{
		From:  toUTC(f.From),
		To:    toUTC(f.To),
		Type:  strings.ToUpper(strings.TrimSpace(f.Type)),
		Limit: f.Limit,
	}
	switch {
	case !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To):
		return q, errInvalidTimeRange
	case q.Type != "" && !models.ValidEventType(q.Type):
		return q, fmt.Errorf("%w %q", errUnknownEventType, q.Type)
	case q.Limit < 0:
		return q, errNegativeLimit
	}
	if q.Limit > MaxLogLimit {
		q.Limit = MaxLogLimit
	}
	return q, nil
}
