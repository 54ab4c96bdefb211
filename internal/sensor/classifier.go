// Package sensor grades raw samples into SensorReadings.
package sensor

import (
	"math"
	"sync"
	"time"

	"zone_controller/internal/models"
)

// Plausibility limits for the zone sensors.
const (
	MinTempC         = -40.0
	MaxTempC         = 80.0
	MinHumidity      = 0.0
	MaxHumidity      = 100.0
	DefaultWindow    = 5
	DefaultTolerance = 0.1
)

// Sample is one raw read from a sensor transport.
type Sample struct {
	Temperature *float64
	Humidity    *float64
	Motion      bool
	At          time.Time
	Err         error
}

// Classifier keeps a rolling history of plausible samples to detect a
// sensor that keeps reporting the same value.
type Classifier struct {
	mu        sync.Mutex
	window    int
	tolerance float64
	temps     []float64
	humids    []float64
}

func NewClassifier(window int, tolerance float64) *Classifier {
	if window <= 0 {
		window = DefaultWindow
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Classifier{window: window, tolerance: tolerance}
}

// Classify grades s:
//   - transport error: ERROR with no values
//   - out of plausible range: STALE
//   - the last window samples all within tolerance of this one: FROZEN
//   - otherwise VALID
//
// A missing temperature without an error stays VALID so the decision engine
// can report it as missing data.
func (c *Classifier) Classify(s Sample) models.SensorReading {
	r := models.SensorReading{
		Status:      models.SensorValid,
		Temperature: s.Temperature,
		Humidity:    s.Humidity,
		Motion:      s.Motion,
		Timestamp:   s.At,
	}
	if s.Err != nil {
		r.Status = models.SensorError
		r.Temperature, r.Humidity = nil, nil
		return r
	}
	if s.Temperature == nil {
		return r
	}
	if !inRange(s.Temperature, MinTempC, MaxTempC) || !inRange(s.Humidity, MinHumidity, MaxHumidity) {
		r.Status = models.SensorStale
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	frozen := c.flat(c.temps, *s.Temperature)
	if s.Humidity != nil {
		frozen = frozen && c.flat(c.humids, *s.Humidity)
	}
	c.temps = push(c.temps, *s.Temperature, c.window)
	if s.Humidity != nil {
		c.humids = push(c.humids, *s.Humidity, c.window)
	}
	if frozen {
		r.Status = models.SensorFrozen
	}
	return r
}

// Reset drops the history, for example after a sensor swap.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temps, c.humids = nil, nil
}

func (c *Classifier) flat(history []float64, current float64) bool {
	if len(history) < c.window {
		return false
	}
	for _, v := range history {
		if math.Abs(v-current) >= c.tolerance {
			return false
		}
	}
	return true
}

func push(history []float64, v float64, size int) []float64 {
	history = append(history, v)
	if len(history) > size {
		history = history[len(history)-size:]
	}
	return history
}

func inRange(v *float64, lo, hi float64) bool {
	return v == nil || (*v >= lo && *v <= hi)
}
