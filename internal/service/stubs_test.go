package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"zone_controller/internal/audit"
	"zone_controller/internal/models"
	"zone_controller/internal/repository"
)

// ---- Test doubles ----

type memStateRepo struct {
	mu      sync.Mutex
	state   models.ZoneState
	loadErr error
	saves   int
}

func (s *memStateRepo) Save(_ context.Context, st models.ZoneState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.saves++
	return nil
}

func (s *memStateRepo) Load(context.Context) (models.ZoneState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.loadErr
}

type memEventRepo struct {
	mu     sync.Mutex
	events []models.ZoneEvent
}

func (e *memEventRepo) Append(_ context.Context, ev models.ZoneEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *memEventRepo) List(context.Context, repository.EventQuery) ([]models.ZoneEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.ZoneEvent(nil), e.events...), nil
}

func (e *memEventRepo) count(typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type memInterlockRepo struct {
	rec   *models.InterlockRecord
	saved []models.InterlockRecord
}

func (r *memInterlockRepo) SaveInterlock(_ context.Context, rec models.InterlockRecord) error {
	r.saved = append(r.saved, rec)
	r.rec = &rec
	return nil
}

func (r *memInterlockRepo) LoadInterlock(context.Context) (*models.InterlockRecord, error) {
	return r.rec, nil
}

type stubSensor struct {
	mu      sync.Mutex
	reading models.SensorReading
}

func (s *stubSensor) set(r models.SensorReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = r
}

func (s *stubSensor) Read(now time.Time) models.SensorReading {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reading
	r.Timestamp = now
	return r
}

type stubActuator struct {
	applied []models.Decision
	err     error
}

func (a *stubActuator) ApplyMode(_ context.Context, d models.Decision) error {
	if a.err != nil {
		return a.err
	}
	a.applied = append(a.applied, d)
	return nil
}

type stubJournal struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (j *stubJournal) Append(e audit.Entry) (models.AuditEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return models.AuditEvent{}, j.err
	}
	j.entries = append(j.entries, e)
	return models.AuditEvent{Mode: e.Mode, Source: e.Source, Hash: "h"}, nil
}

var errBoom = errors.New("boom")

func valid(temp, humidity float64, motion bool) models.SensorReading {
	return models.SensorReading{
		Status:      models.SensorValid,
		Temperature: models.Float(temp),
		Humidity:    models.Float(humidity),
		Motion:      motion,
	}
}
