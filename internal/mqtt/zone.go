package mqtt

import (
	"context"
	"errors"
	"sync"
	"time"

	"zone_controller/internal/logger"
	"zone_controller/internal/models"
	"zone_controller/internal/sensor"
)

var errNoReading = errors.New("no sensor reading received")

// ZoneOptions configures a Zone.
type ZoneOptions struct {
	Prefix     string
	QoS        byte
	StaleAfter time.Duration
	Classifier *sensor.Classifier
	Log        *logger.Logger
}

// Zone is the MQTT-backed sensor, actuator and button of one zone.
type Zone struct {
	bus        Bus
	prefix     string
	qos        byte
	staleAfter time.Duration
	classifier *sensor.Classifier
	log        *logger.Logger
	presses    chan time.Time

	mu     sync.Mutex
	latest *models.SensorReading
	now    func() time.Time
}

// NewZone subscribes to the sensor and button topics on bus.
func NewZone(bus Bus, o ZoneOptions) (*Zone, error) {
	if o.Classifier == nil {
		o.Classifier = sensor.NewClassifier(sensor.DefaultWindow, sensor.DefaultTolerance)
	}
	if o.Log == nil {
		o.Log = logger.Nop()
	}
	z := &Zone{
		bus:        bus,
		prefix:     o.Prefix,
		qos:        o.QoS,
		staleAfter: o.StaleAfter,
		classifier: o.Classifier,
		log:        o.Log,
		presses:    make(chan time.Time, 4),
		now:        time.Now,
	}
	if err := bus.Subscribe(Topic(z.prefix, TopicSensor), z.qos, z.handleSensor); err != nil {
		return nil, err
	}
	if err := bus.Subscribe(Topic(z.prefix, TopicButton), z.qos, z.handleButton); err != nil {
		return nil, err
	}
	return z, nil
}

// Read returns the latest classified sample. No sample yet is an ERROR; a
// sample older than the stale limit is STALE.
func (z *Zone) Read(now time.Time) models.SensorReading {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.latest == nil {
		return z.classifier.Classify(sensor.Sample{At: now, Err: errNoReading})
	}
	r := *z.latest
	if r.Status == models.SensorValid && z.staleAfter > 0 && now.Sub(r.Timestamp) > z.staleAfter {
		r.Status = models.SensorStale
	}
	return r
}

// ApplyMode publishes the decision as the retained actuator command.
func (z *Zone) ApplyMode(_ context.Context, d models.Decision) error {
	payload, err := FormatModePayload(d, z.now())
	if err != nil {
		return err
	}
	return z.bus.Publish(Topic(z.prefix, TopicMode), z.qos, true, payload)
}

// Presses delivers a timestamp for every button message.
func (z *Zone) Presses() <-chan time.Time { return z.presses }

func (z *Zone) handleSensor(b []byte) {
	recv := z.now().UTC()
	p, at, err := ParseSensorPayload(b, recv)
	s := sensor.Sample{Temperature: p.Temperature, Humidity: p.Humidity, Motion: p.Motion, At: at, Err: err}
	if err == nil && p.Error != "" {
		s.Err = errSensorReported
	}
	if s.Err != nil {
		z.log.Warnw("sensor_sample_rejected", "err", s.Err, "detail", p.Error)
	}
	r := z.classifier.Classify(s)

	z.mu.Lock()
	z.latest = &r
	z.mu.Unlock()
}

func (z *Zone) handleButton(_ []byte) {
	select {
	case z.presses <- z.now():
	default:
		z.log.Warnw("button_press_dropped")
	}
}
