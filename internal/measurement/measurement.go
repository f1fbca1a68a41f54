package measurement

import (
	"time"

	"github.com/google/uuid"
)

// EntityType classifies what kind of entity produced a sample.
type EntityType string

const (
	EntityTypeDevice EntityType = "device"
)

// SampleType identifies the measured quantity.
type SampleType string

const (
	SampleTypeElectricityConsumption SampleType = "electricity_consumption"
	SampleTypeDistanceTraveled       SampleType = "distance_traveled"
	SampleTypeAvailability           SampleType = "availability"
)

// MetricType distinguishes instantaneous gauges from accumulating counters.
type MetricType string

const (
	MetricTypeGauge   MetricType = "gauge"
	MetricTypeCounter MetricType = "counter"
)

// Sample is a single metric value inside a Measurement.
type Sample struct {
	EntityType EntityType `json:"entityType"`
	EntityName string     `json:"entityName"`
	SampleType SampleType `json:"sampleType"`
	SampleName string     `json:"sampleName"`
	MetricType MetricType `json:"metricType"`
	Value      float64    `json:"value"`
}

// Measurement is one reconciled snapshot for a vehicle. It is immutable once
// assembled; downstream consumers only ever read it.
type Measurement struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Location       string    `json:"location"`
	Samples        []Sample  `json:"samples"`
	MeasuredAtTime time.Time `json:"measuredAtTime"`
}

// New returns an empty measurement with a fresh unique id.
func New(source, location string, measuredAt time.Time) Measurement {
	return Measurement{
		ID:             uuid.New().String(),
		Source:         source,
		Location:       location,
		MeasuredAtTime: measuredAt,
	}
}

// FindSample returns the first sample matching name, sample type and metric
// type, along with whether one was found.
func (m Measurement) FindSample(sampleName string, sampleType SampleType, metricType MetricType) (Sample, bool) {
	for _, s := range m.Samples {
		if s.EntityType == EntityTypeDevice &&
			s.SampleName == sampleName &&
			s.SampleType == sampleType &&
			s.MetricType == metricType {
			return s, true
		}
	}
	return Sample{}, false
}

// HasSamplesFor reports whether any sample in the measurement carries the
// given sample name.
func (m Measurement) HasSamplesFor(sampleName string) bool {
	for _, s := range m.Samples {
		if s.SampleName == sampleName {
			return true
		}
	}
	return false
}
