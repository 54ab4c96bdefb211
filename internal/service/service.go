package service

import (
	"context"
	"crypto/ed25519"
	"time"

	"zone_controller/internal/audit"
	"zone_controller/internal/clock"
	"zone_controller/internal/logger"
	"zone_controller/internal/metrics"
	"zone_controller/internal/models"
	"zone_controller/internal/override"
	"zone_controller/internal/repository"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitoring exposes read-only zone state and liveness.
type Monitoring interface {
	GetState(ctx context.Context) (models.ZoneState, error)
	Health(ctx context.Context) (HealthReport, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ZoneEvent, error)
}

// Overrides applies, cancels and reports human overrides.
type Overrides interface {
	Apply(ctx context.Context, p OverrideParams) (override.Applied, error)
	Cancel(ctx context.Context, initiatedBy string) (bool, error)
	Current(ctx context.Context) (OverrideStatus, error)
}

// AuditLog verifies the override journal.
type AuditLog interface {
	Verify(ctx context.Context) (audit.Result, error)
}

// Controller runs the per-tick control loop.
// Stop via context cancellation in main() for graceful shutdown.
type Controller interface {
	Tick(ctx context.Context) (models.ZoneState, error)
	Run(ctx context.Context, tick time.Duration)
}

// SensorSource yields the latest classified reading.
type SensorSource interface {
	Read(now time.Time) models.SensorReading
}

// Actuator commands the HVAC equipment.
type Actuator interface {
	ApplyMode(ctx context.Context, d models.Decision) error
}

type Service struct {
	Monitoring
	EventLog
	Overrides
	AuditLog
	Controller
	Authorization
}

// Deps are the collaborators the services need beyond the repositories.
type Deps struct {
	Resolver *override.Resolver
	Intake   *override.Intake
	Sensor   SensorSource
	Actuator Actuator
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Log      *logger.Logger

	Comfort          models.ComfortConfig
	MinIdle          time.Duration
	PersistInterlock bool

	AuditPath      string
	AuditPublicKey ed25519.PublicKey

	Auth AuthConfig
}

// NewService wires repositories and collaborators into concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	return &Service{
		Monitoring: NewMonitoringService(repos.StateRepo, d.Clock, d.Metrics),
		EventLog:   NewEventLogService(repos.EventRepo),
		Overrides:  NewOverrideService(d.Intake, d.Resolver, repos.EventRepo, d.Metrics, d.Clock, d.Log),
		AuditLog:   NewAuditService(d.AuditPath, d.AuditPublicKey),
		Controller: NewControlLoop(LoopDeps{
			Sensor:        d.Sensor,
			Actuator:      d.Actuator,
			Resolver:      d.Resolver,
			StateRepo:     repos.StateRepo,
			EventRepo:     repos.EventRepo,
			InterlockRepo: repos.InterlockRepo,
			Clock:         d.Clock,
			Metrics:       d.Metrics,
			Log:           d.Log,
			Comfort:       d.Comfort,
			MinIdle:       d.MinIdle,
			Persist:       d.PersistInterlock,
		}),
		Authorization: NewAuthService(repos.Auth, d.Auth),
	}
}
