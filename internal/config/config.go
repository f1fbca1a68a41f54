package config

import (
	"fmt"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/geofence"
)

// Config holds all configuration options for the exporter.
type Config struct {
	// Tesla account
	RefreshToken string   `json:"refreshToken"` // long-lived refresh credential
	VehicleIDs   []string `json:"vehicleIds"`   // optional allowlist; empty means all vehicles on the account

	// Location assignment
	Geofences []geofence.Region `json:"geofences"`

	// Measurement output
	Source          string        `json:"source"`          // source name stamped on every measurement
	MeasureInterval time.Duration `json:"measureInterval"` // reconciliation cadence
	StateFilePath   string        `json:"stateFilePath"`   // where carried-forward counters persist; empty keeps them in memory

	// MQTT sink
	MQTTUrl         string `json:"mqttUrl"`         // broker URL (ws://, wss://, mqtt:// or mqtts://)
	MQTTTopicPrefix string `json:"mqttTopicPrefix"` // measurements publish under <prefix>/<vehicle>

	// Application
	Verbose bool `json:"verbose"`
}

// GetDefaultConfig returns a configuration with sensible defaults.
func GetDefaultConfig() *Config {
	return &Config{
		Source:          DefaultSource,
		MeasureInterval: MeasureInterval,
		MQTTTopicPrefix: DefaultTopicPrefix,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.RefreshToken == "" {
		return fmt.Errorf("refresh token is required")
	}
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if c.MeasureInterval <= 0 {
		c.MeasureInterval = MeasureInterval
	}

	for i, g := range c.Geofences {
		if g.Location == "" {
			return fmt.Errorf("geofence %d has no location name", i)
		}
		if g.RadiusMeters <= 0 {
			return fmt.Errorf("geofence %q has a non-positive radius", g.Location)
		}
		if g.Latitude < -90 || g.Latitude > 90 {
			return fmt.Errorf("geofence %q has an invalid latitude", g.Location)
		}
		if g.Longitude < -180 || g.Longitude > 180 {
			return fmt.Errorf("geofence %q has an invalid longitude", g.Location)
		}
	}

	return nil
}

// HasMQTT returns true if an MQTT sink is configured.
func (c *Config) HasMQTT() bool {
	return c.MQTTUrl != ""
}
