package transmission

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/mqtt"
	"github.com/sirupsen/logrus"
)

// MQTTTransmitter publishes measurements via MQTT. Each vehicle's latest
// measurement is published retained under its own topic so late subscribers
// immediately see the current state.
type MQTTTransmitter struct {
	client      *mqtt.Client
	topicPrefix string
	logger      *logrus.Logger
}

// NewMQTTTransmitter creates a new MQTT transmitter.
func NewMQTTTransmitter(client *mqtt.Client, topicPrefix string, logger *logrus.Logger) *MQTTTransmitter {
	return &MQTTTransmitter{
		client:      client,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// Transmit publishes every measurement in the batch. Publishing continues on
// per-measurement failures; the first error is returned afterwards so the
// caller can log and retry on the next cycle.
func (t *MQTTTransmitter) Transmit(measurements []measurement.Measurement) error {
	var firstErr error
	for _, m := range measurements {
		payload, err := json.Marshal(m)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to marshal measurement %s: %w", m.ID, err)
			}
			continue
		}

		topic := t.topicFor(m)
		if err := t.client.Publish(topic, payload, true); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		t.logger.WithFields(logrus.Fields{
			"topic":    topic,
			"location": m.Location,
			"samples":  len(m.Samples),
		}).Debug("Transmitted measurement")
	}
	return firstErr
}

// IsConnected reports whether the underlying MQTT connection is up.
func (t *MQTTTransmitter) IsConnected() bool {
	return t.client.IsConnected()
}

// topicFor derives the per-vehicle topic from the measurement's first sample
// name, falling back to the measurement id when the batch carries no samples.
func (t *MQTTTransmitter) topicFor(m measurement.Measurement) string {
	name := m.ID
	if len(m.Samples) > 0 {
		name = m.Samples[0].SampleName
	}
	return fmt.Sprintf("%s/%s", t.topicPrefix, slug(name))
}

// slug lowercases a display name and replaces anything that doesn't belong in
// an MQTT topic level.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
