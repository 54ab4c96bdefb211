// Package decision maps a sensor reading and the comfort band to a requested mode.
package decision

import "zone_controller/internal/models"

// Decide is pure: it performs no I/O and is total over its inputs.
func Decide(r models.SensorReading, c models.ComfortConfig) models.Decision {
	switch r.Status {
	case models.SensorError:
		return failsafe(models.CauseSensorError)
	case models.SensorFrozen:
		return failsafe(models.CauseSensorFrozen)
	}

	if r.Temperature == nil {
		return failsafe(models.CauseMissingTempData)
	}
	temp := *r.Temperature

	if r.Motion {
		switch {
		case temp < c.TempMin:
			return auto(models.ModeHeatOn, models.CauseTempLow)
		case temp > c.TempMax:
			return auto(models.ModeCoolOn, models.CauseTempHigh)
		default:
			return auto(models.ModeOff, models.CauseComfortRange)
		}
	}

	if r.Humidity == nil {
		return auto(models.ModeOff, models.CauseUnoccupiedNoHumid)
	}
	switch humid := *r.Humidity; {
	case humid < c.HumidMin:
		return auto(models.ModeFanOnly, models.CauseDryIdle)
	case humid > c.HumidMax:
		return auto(models.ModeFanOnly, models.CauseHumidIdle)
	default:
		return auto(models.ModeOff, models.CauseUnoccupied)
	}
}

func failsafe(cause string) models.Decision {
	return models.Decision{Mode: models.ModeOff, Origin: models.OriginFailsafe, Cause: cause}
}

func auto(mode models.Mode, cause string) models.Decision {
	return models.Decision{Mode: mode, Origin: models.OriginAuto, Cause: cause}
}
