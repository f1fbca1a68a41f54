package tesla

// AccessToken is a short-lived bearer token obtained from a refresh token.
// It is requested fresh every cycle and never persisted.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// VehicleState is the availability state reported by the API. The set of
// values is open-ended; unrecognized strings are carried through unchanged so
// future states never cause a hard failure.
type VehicleState string

const (
	VehicleStateOnline   VehicleState = "online"
	VehicleStateAsleep   VehicleState = "asleep"
	VehicleStateOffline  VehicleState = "offline"
	VehicleStateCharging VehicleState = "charging"
	VehicleStateDriving  VehicleState = "driving"
	VehicleStateUpdating VehicleState = "updating"
)

// Awake reports whether the vehicle is in a state where the streaming probe
// can be attempted without waking it.
func (s VehicleState) Awake() bool {
	switch s {
	case VehicleStateOnline, VehicleStateCharging, VehicleStateDriving, VehicleStateUpdating:
		return true
	}
	return false
}

// Vehicle is an immutable per-cycle snapshot of a vehicle's summary.
type Vehicle struct {
	ID          int64        `json:"id"`
	VehicleID   int64        `json:"vehicle_id"` // streaming channel subscription key
	VIN         string       `json:"vin"`
	DisplayName string       `json:"display_name"`
	State       VehicleState `json:"state"`
	InService   bool         `json:"in_service"`
}

// ChargeState is the charging detail fetched via the REST data endpoint.
type ChargeState struct {
	BatteryLevel      float64 `json:"battery_level"`
	ChargeEnergyAdded float64 `json:"charge_energy_added"` // kWh
	ChargeRate        float64 `json:"charge_rate"`
	ChargerPower      float64 `json:"charger_power"` // kW
	ChargerVoltage    float64 `json:"charger_voltage"`
	ChargingState     string  `json:"charging_state"`
	ChargePortLatch   string  `json:"charge_port_latch"`
	Timestamp         int64   `json:"timestamp"`
}

// DriveState is the position detail fetched via the REST data endpoint.
type DriveState struct {
	GpsAsOf   int64   `json:"gps_as_of"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	Timestamp int64   `json:"timestamp"`
}

// VehicleData is the detailed vehicle snapshot from the REST API. The nested
// states are pointers: the API omits them when the vehicle withholds data.
type VehicleData struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	VehicleID   int64        `json:"vehicle_id"`
	VIN         string       `json:"vin"`
	DisplayName string       `json:"display_name"`
	State       VehicleState `json:"state"`
	InService   bool         `json:"in_service"`

	ChargeState *ChargeState `json:"charge_state,omitempty"`
	DriveState  *DriveState  `json:"drive_state,omitempty"`
}

// StreamSample is one decoded streaming update. Transient: it lives only for
// the duration of a reconciliation cycle.
type StreamSample struct {
	Latitude  float64
	Longitude float64
	Power     float64 // kW, normalized to absolute value
	Speed     float64 // mph
	Odometer  float64 // miles
}
