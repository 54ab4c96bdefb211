package models

import (
	"errors"
	"fmt"
)

// ComfortConfig is the comfort band. Min < Max is checked once at load time.
type ComfortConfig struct {
	TempMin  float64 `mapstructure:"temp_min" json:"temp_min"`
	TempMax  float64 `mapstructure:"temp_max" json:"temp_max"`
	HumidMin float64 `mapstructure:"humid_min" json:"humid_min"`
	HumidMax float64 `mapstructure:"humid_max" json:"humid_max"`
}

// DefaultComfort matches the factory comfort band.
var DefaultComfort = ComfortConfig{TempMin: 20, TempMax: 24, HumidMin: 30, HumidMax: 60}

var errComfortBand = errors.New("invalid comfort band")

// Validate enforces min < max for both bands.
func (c ComfortConfig) Validate() error {
	if !(c.TempMin < c.TempMax) {
		return fmt.Errorf("%w: temp_min %.2f must be below temp_max %.2f", errComfortBand, c.TempMin, c.TempMax)
	}
	if !(c.HumidMin < c.HumidMax) {
		return fmt.Errorf("%w: humid_min %.2f must be below humid_max %.2f", errComfortBand, c.HumidMin, c.HumidMax)
	}
	return nil
}

// Decision is the engine's requested mode for one tick.
type Decision struct {
	Mode   Mode   `json:"mode"`
	Origin Origin `json:"origin"`
	Cause  string `json:"cause"`
}
