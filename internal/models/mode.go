package models

import (
	"errors"
	"fmt"
)

// Mode is the HVAC operating mode sent to the actuator.
type Mode string

const (
	ModeHeatOn  Mode = "HEAT_ON"
	ModeCoolOn  Mode = "COOL_ON"
	ModeFanOnly Mode = "FAN_ONLY"
	ModeOff     Mode = "OFF"
)

// ErrInvalidMode is returned when a mode outside the accepted set is supplied.
var ErrInvalidMode = errors.New("invalid mode: must be HEAT_ON, COOL_ON, FAN_ONLY, or OFF")

// ValidModes lists the accepted modes in display order.
var ValidModes = []Mode{ModeHeatOn, ModeCoolOn, ModeFanOnly, ModeOff}

// Valid reports whether m is one of the four accepted modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeHeatOn, ModeCoolOn, ModeFanOnly, ModeOff:
		return true
	}
	return false
}

// Opposes reports whether switching from m to other is a thermal reversal.
func (m Mode) Opposes(other Mode) bool {
	return (m == ModeHeatOn && other == ModeCoolOn) || (m == ModeCoolOn && other == ModeHeatOn)
}

func (m Mode) String() string { return string(m) }

// ParseMode validates s against the accepted set. Input is matched exactly.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// Origin tells which path produced a decision.
type Origin string

const (
	OriginAuto     Origin = "AUTO"
	OriginManual   Origin = "MANUAL"
	OriginFailsafe Origin = "FAILSAFE"
)

// Cause codes attached to decisions.
const (
	CauseSensorError       = "SENSOR_ERROR"
	CauseSensorFrozen      = "SENSOR_FROZEN"
	CauseMissingTempData   = "MISSING_TEMP_DATA"
	CauseTempLow           = "TEMP_LOW"
	CauseTempHigh          = "TEMP_HIGH"
	CauseComfortRange      = "COMFORT_RANGE"
	CauseDryIdle           = "DRY_IDLE"
	CauseHumidIdle         = "HUMID_IDLE"
	CauseUnoccupied        = "UNOCCUPIED"
	CauseUnoccupiedNoHumid = "UNOCCUPIED_NO_HUMID"

	CauseHumanOverride     = "HUMAN_OVERRIDE"
	CauseSchedule          = "SCHEDULE"
	CauseDefaultMode       = "DEFAULT_MODE"
	CauseInterlockCooldown = "INTERLOCK_COOLDOWN"
)
