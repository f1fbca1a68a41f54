package tesla

import (
	"context"
	"fmt"
)

// ListVehicles returns all vehicles associated with the account.
func (c *Client) ListVehicles(ctx context.Context, token AccessToken) ([]Vehicle, error) {
	c.logger.Info("Fetching vehicles...")

	url := fmt.Sprintf("%s/vehicles", c.apiURL)

	var vehicles []Vehicle
	if err := c.getJSON(ctx, "list vehicles", url, token, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// GetVehicle fetches a single vehicle's summary by id.
func (c *Client) GetVehicle(ctx context.Context, token AccessToken, vehicleID string) (Vehicle, error) {
	c.logger.WithField("vehicle_id", vehicleID).Info("Fetching vehicle...")

	url := fmt.Sprintf("%s/vehicles/%s", c.apiURL, vehicleID)

	var vehicle Vehicle
	if err := c.getJSON(ctx, "get vehicle", url, token, &vehicle); err != nil {
		return Vehicle{}, err
	}
	return vehicle, nil
}

// GetVehicleData fetches the detailed vehicle snapshot including charge and
// drive state. Unlike the streaming probe this call can keep the vehicle
// awake, so the engine only invokes it when streamed telemetry already shows
// activity.
func (c *Client) GetVehicleData(ctx context.Context, token AccessToken, vehicle Vehicle) (VehicleData, error) {
	c.logger.WithField("display_name", vehicle.DisplayName).Info("Fetching vehicle data...")

	url := fmt.Sprintf("%s/vehicles/%d/vehicle_data", c.apiURL, vehicle.ID)

	var data VehicleData
	if err := c.getJSON(ctx, "get vehicle data", url, token, &data); err != nil {
		return VehicleData{}, err
	}
	return data, nil
}
