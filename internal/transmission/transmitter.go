package transmission

import "github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"

// Transmitter hands completed measurement batches to an external sink.
type Transmitter interface {
	Transmit(measurements []measurement.Measurement) error
	IsConnected() bool
}
