package exporter

import (
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/geofence"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
)

// carriedValues are one vehicle's values from the previous cycle, reused
// whenever the current cycle has no fresher authoritative data. Reusing the
// counter values keeps them monotonically increasing while the vehicle is
// unreachable.
type carriedValues struct {
	location          string
	chargerPower      float64 // W, gauge
	chargeEnergyAdded float64 // Ws, counter
	odometer          float64 // m, counter
}

// priorValues extracts carried-forward values for a vehicle from the previous
// cycle's measurements, matching samples on display name, sample type and
// metric type. It is a pure function: no I/O, no clock, so the carry-forward
// rules are testable without any network fakes. Absent a prior measurement
// every value defaults to 0 and the location to Other.
func priorValues(lastMeasurements []measurement.Measurement, displayName string) carriedValues {
	values := carriedValues{location: geofence.LocationOther}

	for _, m := range lastMeasurements {
		if !m.HasSamplesFor(displayName) {
			continue
		}

		values.location = m.Location
		if s, ok := m.FindSample(displayName, measurement.SampleTypeElectricityConsumption, measurement.MetricTypeGauge); ok {
			values.chargerPower = s.Value
		}
		if s, ok := m.FindSample(displayName, measurement.SampleTypeElectricityConsumption, measurement.MetricTypeCounter); ok {
			values.chargeEnergyAdded = s.Value
		}
		if s, ok := m.FindSample(displayName, measurement.SampleTypeDistanceTraveled, measurement.MetricTypeCounter); ok {
			values.odometer = s.Value
		}
		break
	}

	return values
}
