package service

import (
	"context"
	"time"

	"zone_controller/internal/clock"
	"zone_controller/internal/metrics"
	"zone_controller/internal/models"
	"zone_controller/internal/repository"
)

// ReadingMaxAge is how old the last sensor reading may be before /healthz
// reports the controller as unhealthy.
const ReadingMaxAge = 60 * time.Second

const (
	healthOK       = "ok"
	healthDegraded = "degraded"

	errNoTemperature = "NO_TEMPERATURE"
	errStaleReading  = "STALE_READING"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewMonitoringService(stateRepo repository.StateRepo, clk clock.Clock, m *metrics.Metrics) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, clock: clk, metrics: m}
}

// GetState returns the latest persisted zone state.
// If no tick has completed yet, returns a baseline OFF snapshot.
func (s *MonitoringService) GetState(ctx context.Context) (models.ZoneState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.ZoneState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	state.ReadingAt = toUTC(state.ReadingAt)
	return state, nil
}

// Health is unhealthy when there is no temperature in the last snapshot or
// the reading is older than ReadingMaxAge.
func (s *MonitoringService) Health(ctx context.Context) (HealthReport, error) {
	st, err := s.GetState(ctx)
	if err != nil {
		return HealthReport{}, err
	}
	rep := HealthReport{
		Healthy:      true,
		Status:       healthOK,
		Mode:         st.Mode,
		SensorStatus: st.SensorStatus,
		Errors:       append([]string(nil), st.ErrorCodes...),
	}
	if s.metrics != nil {
		rep.UptimeSeconds = int64(s.metrics.Uptime().Seconds())
	}
	if !st.ReadingAt.IsZero() {
		at := st.ReadingAt
		rep.LastReadingAt = &at
	}

	stale := st.ReadingAt.IsZero() || s.clock.NowUTC().Sub(st.ReadingAt) > ReadingMaxAge
	if st.TemperatureC == nil {
		rep.Errors = append(rep.Errors, errNoTemperature)
	}
	if stale {
		rep.Errors = append(rep.Errors, errStaleReading)
	}
	if st.TemperatureC == nil || stale {
		rep.Healthy = false
		rep.Status = healthDegraded
	}
	return rep, nil
}

// baselineState returns the snapshot reported before the first tick.
func (s *MonitoringService) baselineState() models.ZoneState {
	return models.ZoneState{
		ID:            1, // DB schema enforces single-row state with id=1
		Mode:          models.ModeOff,
		RequestedMode: models.ModeOff,
		Origin:        models.OriginAuto,
		SensorStatus:  models.SensorError,
		UpdatedAt:     s.clock.NowUTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
