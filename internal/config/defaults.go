package config

import "time"

// Central place for all application-wide timing constants and other defaults.
// Changing a value here immediately affects all components that import
// github.com/JorritSalverda/jarvis-tesla-exporter/internal/config.

const (
	// Reconciliation cadence
	MeasureInterval = 60 * time.Second

	// Shared retry policy for every Tesla API call
	RetryBaseInterval = 100 * time.Millisecond
	RetryFactor       = 2.0
	RetryMaxAttempts  = 3

	// Operation time-outs
	APITimeout  = 10 * time.Second // REST calls
	MQTTTimeout = 5 * time.Second  // MQTT publish

	// Measurement output
	DefaultSource      = "jarvis-tesla-exporter"
	DefaultTopicPrefix = "jarvis/tesla"
)
