package tesla

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/retry"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testRetryPolicy() retry.Policy {
	return retry.Policy{
		BaseInterval: time.Millisecond,
		Factor:       2.0,
		MaxAttempts:  3,
		Jitter:       retry.NoJitter,
	}
}

func newTestClient(authURL, apiURL string) *Client {
	c := NewClient(testRetryPolicy(), testLogger())
	c.SetBaseURLs(authURL, apiURL, "ws://unused")
	return c
}

func TestGetAccessToken(t *testing.T) {
	var gotBody accessTokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(AccessToken{
			AccessToken: "abcd",
			TokenType:   "Bearer",
			ExpiresIn:   3888000,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	token, err := client.GetAccessToken(context.Background(), "my-refresh-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "abcd" {
		t.Errorf("expected token abcd, got %s", token.AccessToken)
	}
	if gotBody.GrantType != "refresh_token" {
		t.Errorf("expected grant_type refresh_token, got %s", gotBody.GrantType)
	}
	if gotBody.ClientID != "ownerapi" {
		t.Errorf("expected client_id ownerapi, got %s", gotBody.ClientID)
	}
	if gotBody.RefreshToken != "my-refresh-token" {
		t.Errorf("refresh token not passed through: %s", gotBody.RefreshToken)
	}
}

func TestGetAccessTokenRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(AccessToken{AccessToken: "abcd"})
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	token, err := client.GetAccessToken(context.Background(), "r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "abcd" {
		t.Errorf("expected token abcd, got %s", token.AccessToken)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestGetAccessTokenFailsWithAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, err := client.GetAccessToken(context.Background(), "expired")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
}

func TestGetAccessTokenMalformedBodyIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, err := client.GetAccessToken(context.Background(), "r")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %T: %v", err, err)
	}
}

func TestListVehicles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicles" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abcd" {
			t.Errorf("unexpected auth header %q", got)
		}
		io.WriteString(w, `{
			"response": [
				{"id": 12345, "vehicle_id": 67890, "vin": "5YJ3E", "display_name": "Nikola", "state": "asleep", "in_service": false}
			],
			"count": 1
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	vehicles, err := client.ListVehicles(context.Background(), AccessToken{AccessToken: "abcd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(vehicles))
	}
	v := vehicles[0]
	if v.ID != 12345 || v.VehicleID != 67890 {
		t.Errorf("unexpected ids: %+v", v)
	}
	if v.State != VehicleStateAsleep {
		t.Errorf("expected asleep, got %s", v.State)
	}
	if v.DisplayName != "Nikola" {
		t.Errorf("unexpected display name %s", v.DisplayName)
	}
}

func TestGetVehicle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicles/12345" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"response": {"id": 12345, "vehicle_id": 67890, "display_name": "Nikola", "state": "weird_new_state", "in_service": false},
			"count": 1
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	vehicle, err := client.GetVehicle(context.Background(), AccessToken{AccessToken: "abcd"}, "12345")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Unknown states are preserved verbatim and never treated as awake.
	if string(vehicle.State) != "weird_new_state" {
		t.Errorf("raw state not preserved: %s", vehicle.State)
	}
	if vehicle.State.Awake() {
		t.Error("unknown state should not count as awake")
	}
}

func TestGetVehicleData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicles/12345/vehicle_data" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{
			"response": {
				"id": 12345, "vehicle_id": 67890, "display_name": "Nikola", "state": "online",
				"charge_state": {"charge_energy_added": 12.5, "charger_power": 11, "charge_port_latch": "Engaged"},
				"drive_state": {"latitude": 52.377956, "longitude": 4.897070}
			},
			"count": 1
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	data, err := client.GetVehicleData(context.Background(), AccessToken{AccessToken: "abcd"}, Vehicle{ID: 12345})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data.ChargeState == nil {
		t.Fatal("expected charge state")
	}
	if data.ChargeState.ChargeEnergyAdded != 12.5 {
		t.Errorf("unexpected energy added: %f", data.ChargeState.ChargeEnergyAdded)
	}
	if data.ChargeState.ChargePortLatch != "Engaged" {
		t.Errorf("unexpected latch state: %s", data.ChargeState.ChargePortLatch)
	}
	if data.DriveState == nil || data.DriveState.Latitude != 52.377956 {
		t.Errorf("unexpected drive state: %+v", data.DriveState)
	}
}

func TestGetVehicleDataAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, err := client.GetVehicleData(context.Background(), AccessToken{}, Vehicle{ID: 1})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusRequestTimeout {
		t.Errorf("unexpected status: %d", apiErr.StatusCode)
	}
}

func TestGetVehicleDataMalformedBodyIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"response": "not an object", "count": 1}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)

	_, err := client.GetVehicleData(context.Background(), AccessToken{}, Vehicle{ID: 1})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
}
