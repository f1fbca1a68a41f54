package exporter

import (
	"context"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/config"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/geofence"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/retry"
	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/tesla"
	"github.com/sirupsen/logrus"
)

// Unit conversion factors. These are part of the output contract: counters
// are emitted in metres and watt-seconds, gauges in watts.
const (
	metersPerMile    = 1609.344
	wattsPerKilowatt = 1000.0
	secondsPerHour   = 3600.0
)

const (
	defaultDisplayName     = "Unknown"
	chargePortLatchEngaged = "Engaged"
)

// Availability gauge values per vehicle state.
const (
	availabilityInService = -2.0
	availabilityOffline   = -1.0
	availabilityAsleep    = 0.0
	availabilityAwake     = 1.0
)

// API is the slice of the Tesla client the engine needs. Narrowed to an
// interface so tests can reconcile against a fake.
type API interface {
	GetAccessToken(ctx context.Context, refreshToken string) (tesla.AccessToken, error)
	ListVehicles(ctx context.Context, token tesla.AccessToken) ([]tesla.Vehicle, error)
	GetVehicle(ctx context.Context, token tesla.AccessToken, vehicleID string) (tesla.Vehicle, error)
	GetVehicleData(ctx context.Context, token tesla.AccessToken, vehicle tesla.Vehicle) (tesla.VehicleData, error)
	GetStreamingData(ctx context.Context, token tesla.AccessToken, vehicle tesla.Vehicle, schema tesla.StreamSchema) (tesla.StreamSample, error)
}

// Exporter reconciles one measurement per vehicle per cycle: it classifies
// the vehicle's availability, probes the streaming endpoint when the vehicle
// is awake, assigns a geofence location and carries counters forward from the
// previous cycle.
type Exporter struct {
	api    API
	retry  retry.Policy
	schema tesla.StreamSchema
	logger *logrus.Logger
	now    func() time.Time
}

func New(api API, policy retry.Policy, logger *logrus.Logger) *Exporter {
	return &Exporter{
		api:    api,
		retry:  policy,
		schema: tesla.FullTelemetrySchema,
		logger: logger,
		now:    time.Now,
	}
}

// SetStreamSchema switches the streaming probe to another schema variant.
func (e *Exporter) SetStreamSchema(schema tesla.StreamSchema) { e.schema = schema }

// SetClock swaps the wall clock. Intended for tests.
func (e *Exporter) SetClock(now func() time.Time) { e.now = now }

// GetMeasurements runs one reconciliation cycle and returns a measurement per
// vehicle. A token exchange failure aborts the cycle; a directory failure for
// a single allowlisted vehicle only skips that vehicle.
func (e *Exporter) GetMeasurements(ctx context.Context, cfg config.Config, lastMeasurements []measurement.Measurement) ([]measurement.Measurement, error) {
	token, err := e.api.GetAccessToken(ctx, cfg.RefreshToken)
	if err != nil {
		return nil, err
	}

	vehicles, err := e.selectVehicles(ctx, token, cfg)
	if err != nil {
		return nil, err
	}

	measurements := make([]measurement.Measurement, 0, len(vehicles))
	for _, vehicle := range vehicles {
		measurements = append(measurements, e.reconcileVehicle(ctx, token, vehicle, cfg, lastMeasurements))
	}
	return measurements, nil
}

func (e *Exporter) selectVehicles(ctx context.Context, token tesla.AccessToken, cfg config.Config) ([]tesla.Vehicle, error) {
	if len(cfg.VehicleIDs) == 0 {
		return e.api.ListVehicles(ctx, token)
	}

	vehicles := make([]tesla.Vehicle, 0, len(cfg.VehicleIDs))
	for _, id := range cfg.VehicleIDs {
		vehicle, err := e.api.GetVehicle(ctx, token, id)
		if err != nil {
			e.logger.WithError(err).WithField("vehicle_id", id).Error("Failed fetching vehicle, skipping this cycle")
			continue
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

// reconcileVehicle applies the state decision table and assembles the
// measurement. It always returns a complete measurement: every failure below
// the vehicle directory degrades to carried-forward values instead of
// aborting.
func (e *Exporter) reconcileVehicle(ctx context.Context, token tesla.AccessToken, vehicle tesla.Vehicle, cfg config.Config, lastMeasurements []measurement.Measurement) measurement.Measurement {
	displayName := vehicle.DisplayName
	if displayName == "" {
		displayName = defaultDisplayName
	}

	log := e.logger.WithFields(logrus.Fields{
		"display_name": displayName,
		"state":        vehicle.State,
	})
	log.Debug("Reconciling vehicle")

	prior := priorValues(lastMeasurements, displayName)

	var location string
	var chargerPower, chargeEnergyAdded, odometer, availability float64

	switch {
	case vehicle.InService || vehicle.State == tesla.VehicleStateAsleep || vehicle.State == tesla.VehicleStateOffline:
		log.Info("Vehicle is asleep, offline or in service")

		// The vehicle is deliberately not queried so it can stay asleep.
		availability = availabilityAsleep
		if vehicle.InService {
			availability = availabilityInService
		} else if vehicle.State == tesla.VehicleStateOffline {
			availability = availabilityOffline
		}
		location = prior.location
		chargerPower = 0
		chargeEnergyAdded = prior.chargeEnergyAdded
		odometer = prior.odometer

	default:
		if vehicle.State.Awake() {
			log.Info("Vehicle is awake")
		} else {
			// Unrecognized states are probed anyway: the probe cannot wake
			// the vehicle and a failure downgrades to the asleep branch.
			log.Info("Vehicle state not recognized, probing anyway")
		}

		var sample tesla.StreamSample
		err := e.retry.Do(ctx, func() error {
			var probeErr error
			sample, probeErr = e.api.GetStreamingData(ctx, token, vehicle, e.schema)
			return probeErr
		})
		if err != nil {
			// Conservative fallback: an unresponsive stream means the
			// vehicle isn't really awake. Warn and carry forward.
			log.WithError(err).Warn("Stream returned error")
			log.Info("Vehicle doesn't seem awake, handling like it's asleep")

			location = prior.location
			chargerPower = 0
			chargeEnergyAdded = prior.chargeEnergyAdded
			odometer = prior.odometer
			availability = availabilityAsleep
			break
		}

		location = e.resolveLocation(sample, prior, cfg.Geofences)
		odometer = sample.Odometer * metersPerMile
		chargeEnergyAdded, chargerPower = e.chargeValues(ctx, token, vehicle, sample, odometer, prior, log)
		availability = availabilityAwake
	}

	m := measurement.New(cfg.Source, location, e.now().UTC())
	m.Samples = []measurement.Sample{
		// gauge for timeline graphs
		{
			EntityType: measurement.EntityTypeDevice,
			EntityName: cfg.Source,
			SampleType: measurement.SampleTypeElectricityConsumption,
			SampleName: displayName,
			MetricType: measurement.MetricTypeGauge,
			Value:      chargerPower,
		},
		// counter for totals
		{
			EntityType: measurement.EntityTypeDevice,
			EntityName: cfg.Source,
			SampleType: measurement.SampleTypeElectricityConsumption,
			SampleName: displayName,
			MetricType: measurement.MetricTypeCounter,
			Value:      chargeEnergyAdded,
		},
		{
			EntityType: measurement.EntityTypeDevice,
			EntityName: cfg.Source,
			SampleType: measurement.SampleTypeDistanceTraveled,
			SampleName: displayName,
			MetricType: measurement.MetricTypeCounter,
			Value:      odometer,
		},
		{
			EntityType: measurement.EntityTypeDevice,
			EntityName: cfg.Source,
			SampleType: measurement.SampleTypeAvailability,
			SampleName: displayName,
			MetricType: measurement.MetricTypeGauge,
			Value:      availability,
		},
	}

	log.WithFields(logrus.Fields{
		"location":     m.Location,
		"availability": availability,
	}).Debug("Assembled measurement")

	return m
}

// resolveLocation maps the streamed position onto the configured geofences.
// Schemas without position fields stream 0,0; that is not a real fix, so the
// prior location is kept instead of collapsing to Other.
func (e *Exporter) resolveLocation(sample tesla.StreamSample, prior carriedValues, regions []geofence.Region) string {
	if sample.Latitude == 0 && sample.Longitude == 0 {
		return prior.location
	}

	if region, ok := geofence.Match(sample.Latitude, sample.Longitude, regions); ok {
		e.logger.WithField("location", region.Location).Info("Vehicle is inside geofence")
		return region.Location
	}
	e.logger.Info("Vehicle is outside all geofences")
	return geofence.LocationOther
}

// chargeValues decides whether streamed activity warrants the more expensive
// REST data fetch, and derives the energy counter (Ws) and power gauge (W)
// from it. The guard errs on the side of not fetching: an idle vehicle is
// left alone so the poll itself never keeps it awake. A REST failure degrades
// to carried-forward values; the cycle still produces a measurement.
func (e *Exporter) chargeValues(ctx context.Context, token tesla.AccessToken, vehicle tesla.Vehicle, sample tesla.StreamSample, odometer float64, prior carriedValues, log *logrus.Entry) (chargeEnergyAdded, chargerPower float64) {
	active := sample.Power > 0 ||
		sample.Speed > 0 ||
		odometer-prior.odometer > 0 ||
		prior.chargerPower > 0 // charging session may just have ended

	if !active {
		return prior.chargeEnergyAdded, 0
	}

	data, err := e.api.GetVehicleData(ctx, token, vehicle)
	if err != nil {
		log.WithError(err).Warn("Failed fetching vehicle data, carrying last values forward")
		return prior.chargeEnergyAdded, 0
	}

	if data.ChargeState == nil {
		return prior.chargeEnergyAdded, 0
	}
	if data.ChargeState.ChargePortLatch != chargePortLatchEngaged {
		// Not plugged in: the charge session counter has reset.
		return 0, 0
	}

	return data.ChargeState.ChargeEnergyAdded * wattsPerKilowatt * secondsPerHour,
		data.ChargeState.ChargerPower * wattsPerKilowatt
}
