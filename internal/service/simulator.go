package service

import (
	"context"
	"sync"
	"time"

	"zone_controller/internal/models"
	"zone_controller/internal/sensor"
)

// ----------- Simulation constants -----------
const (
	AmbientC          = 16.0  // outdoor-driven resting temperature °C
	AmbientHumidity   = 55.0  // resting relative humidity %
	HeatCPerSec       = 0.02  // °C per second when HEAT_ON
	CoolCPerSec       = 0.02  // °C per second when COOL_ON
	DriftPerSec       = 0.001 // fraction of the gap to ambient closed per second
	FanDryPerSec      = 0.01  // %RH per second removed when FAN_ONLY
	SensorJitterC     = 0.15  // alternating read noise so a steady zone is not FROZEN
	OccupiedFromHour  = 7
	OccupiedUntilHour = 22
)

// SimulatedZone is a thermal model of one zone. It serves as both the
// sensor and the actuator when no field devices are configured.
type SimulatedZone struct {
	mu         sync.Mutex
	classifier *sensor.Classifier
	loc        *time.Location

	temp     float64
	humidity float64
	mode     models.Mode
	last     time.Time
	flip     bool
}

// NewSimulatedZone starts at the given temperature and humidity in OFF.
// Occupancy follows local hour of day in loc.
func NewSimulatedZone(tempC, humidity float64, c *sensor.Classifier, loc *time.Location) *SimulatedZone {
	if c == nil {
		c = sensor.NewClassifier(sensor.DefaultWindow, sensor.DefaultTolerance)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SimulatedZone{
		classifier: c,
		loc:        loc,
		temp:       tempC,
		humidity:   humidity,
		mode:       models.ModeOff,
	}
}

// ApplyMode switches the simulated equipment.
func (z *SimulatedZone) ApplyMode(_ context.Context, d models.Decision) error {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.mode = d.Mode
	return nil
}

// Read advances the model to now and returns a classified reading.
func (z *SimulatedZone) Read(now time.Time) models.SensorReading {
	z.mu.Lock()
	if !z.last.IsZero() {
		if elapsed := now.Sub(z.last).Seconds(); elapsed > 0 {
			z.advance(elapsed)
		}
	}
	z.last = now

	z.flip = !z.flip
	jitter := SensorJitterC
	if z.flip {
		jitter = -jitter
	}
	temp, hum := z.temp+jitter, z.humidity
	local := now.In(z.loc)
	motion := local.Hour() >= OccupiedFromHour && local.Hour() < OccupiedUntilHour
	z.mu.Unlock()

	return z.classifier.Classify(sensor.Sample{
		Temperature: models.Float(temp),
		Humidity:    models.Float(hum),
		Motion:      motion,
		At:          now.UTC(),
	})
}

// State returns the model's true temperature, humidity and mode.
func (z *SimulatedZone) State() (float64, float64, models.Mode) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.temp, z.humidity, z.mode
}

func (z *SimulatedZone) advance(elapsed float64) {
	switch z.mode {
	case models.ModeHeatOn:
		z.temp += HeatCPerSec * elapsed
	case models.ModeCoolOn:
		z.temp -= CoolCPerSec * elapsed
		z.humidity = maxFloat(z.humidity-FanDryPerSec*elapsed/2, 0)
	case models.ModeFanOnly:
		z.humidity = maxFloat(z.humidity-FanDryPerSec*elapsed, 0)
	}
	z.temp = driftToward(z.temp, AmbientC, elapsed)
	if z.mode != models.ModeFanOnly && z.mode != models.ModeCoolOn {
		z.humidity = driftToward(z.humidity, AmbientHumidity, elapsed)
	}
}

// driftToward closes part of the gap between v and target.
func driftToward(v, target, elapsed float64) float64 {
	k := DriftPerSec * elapsed
	if k > 1 {
		k = 1
	}
	return v + (target-v)*k
}

// helpers
func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
