package tesla

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// StreamSchema pins down one version of the streaming protocol's compact
// positional encoding: which fields are requested on subscribe, how many
// comma-separated values an update must carry, and at which positions the
// interesting ones sit. Index 0 is always the server-side timestamp, so the
// value count is one higher than the number of requested fields. An index of
// -1 means the schema does not carry that field.
type StreamSchema struct {
	Name       string
	Fields     string
	FieldCount int
	Timeout    time.Duration

	SpeedIndex     int
	OdometerIndex  int
	LatitudeIndex  int
	LongitudeIndex int
	PowerIndex     int
}

var (
	// FullTelemetrySchema requests the complete field set and expects
	// 13 positional values per update.
	FullTelemetrySchema = StreamSchema{
		Name:           "full",
		Fields:         "speed,odometer,soc,elevation,est_heading,est_lat,est_lng,power,shift_state,range,est_range,heading",
		FieldCount:     13,
		Timeout:        30 * time.Second,
		SpeedIndex:     1,
		OdometerIndex:  2,
		LatitudeIndex:  6,
		LongitudeIndex: 7,
		PowerIndex:     8,
	}

	// MinimalTelemetrySchema requests only the fields the exporter needs.
	// Updates arrive less eagerly on this variant, hence the long timeout.
	MinimalTelemetrySchema = StreamSchema{
		Name:           "minimal",
		Fields:         "speed,odometer,power",
		FieldCount:     4,
		Timeout:        300 * time.Second,
		SpeedIndex:     1,
		OdometerIndex:  2,
		LatitudeIndex:  -1,
		LongitudeIndex: -1,
		PowerIndex:     3,
	}
)

// decode extracts a StreamSample from the positional values of one update.
// Individual values that fail to parse degrade to 0 rather than failing the
// whole update. Power is normalized to its absolute value.
func (s StreamSchema) decode(values []string) StreamSample {
	return StreamSample{
		Latitude:  fieldAt(values, s.LatitudeIndex),
		Longitude: fieldAt(values, s.LongitudeIndex),
		Power:     math.Abs(fieldAt(values, s.PowerIndex)),
		Speed:     fieldAt(values, s.SpeedIndex),
		Odometer:  fieldAt(values, s.OdometerIndex),
	}
}

func fieldAt(values []string, index int) float64 {
	if index < 0 || index >= len(values) {
		return 0
	}
	v, err := strconv.ParseFloat(values[index], 64)
	if err != nil {
		return 0
	}
	return v
}

// streamEnvelope is the JSON envelope wrapping every streaming frame.
type streamEnvelope struct {
	MsgType   string `json:"msg_type"`
	Tag       string `json:"tag"`
	Token     string `json:"token,omitempty"`
	Value     string `json:"value,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

// GetStreamingData opens a transient WebSocket session, subscribes to the
// vehicle's telemetry channel and returns the first valid update. The session
// never outlives the call: the connection is closed on every return path.
//
// This is the low-cost peek at an awake vehicle. It must never keep the
// vehicle awake by itself, unlike the REST data fetch.
func (c *Client) GetStreamingData(ctx context.Context, token AccessToken, vehicle Vehicle, schema StreamSchema) (StreamSample, error) {
	c.logger.WithFields(logrus.Fields{
		"display_name": vehicle.DisplayName,
		"schema":       schema.Name,
	}).Info("Connecting to streaming api...")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL, nil)
	if err != nil {
		return StreamSample{}, &StreamingError{Reason: "connect failed: " + err.Error()}
	}
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	channelTag := strconv.FormatInt(vehicle.VehicleID, 10)
	subscribe := streamEnvelope{
		MsgType: "data:subscribe_oauth",
		Tag:     channelTag,
		Token:   token.AccessToken,
		Value:   schema.Fields,
	}
	if err := conn.WriteJSON(subscribe); err != nil {
		return StreamSample{}, &StreamingError{Reason: "subscribe failed: " + err.Error()}
	}

	start := c.now()
	for {
		elapsed := c.now().Sub(start)
		if elapsed > schema.Timeout {
			return StreamSample{}, &TimeoutError{After: schema.Timeout}
		}

		// Bound the blocking read by the remaining time so a silent
		// connection cannot stall the probe past its deadline.
		if err := conn.SetReadDeadline(time.Now().Add(schema.Timeout - elapsed)); err != nil {
			return StreamSample{}, &StreamingError{Reason: "set read deadline failed: " + err.Error()}
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return StreamSample{}, &TimeoutError{After: schema.Timeout}
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				return StreamSample{}, &StreamingError{Reason: "connection closed"}
			}
			return StreamSample{}, &StreamingError{Reason: err.Error()}
		}

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			c.logger.Debug("Skipping non-data frame")
			continue
		}

		var envelope streamEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			// A single malformed frame is a skip, not a failure.
			c.logger.WithError(err).Debug("Skipping malformed frame")
			continue
		}

		switch envelope.MsgType {
		case "data:update":
			if envelope.Tag != channelTag {
				c.logger.WithField("tag", envelope.Tag).Warn("Receiving data for another vehicle")
				continue
			}

			values := strings.Split(envelope.Value, ",")
			if len(values) != schema.FieldCount {
				c.logger.WithFields(logrus.Fields{
					"expected": schema.FieldCount,
					"received": len(values),
				}).Warn("Receiving incorrect number of values")
				continue
			}

			return schema.decode(values), nil

		case "data:error":
			return StreamSample{}, &StreamingError{Reason: "received error message: " + envelope.ErrorType}

		default:
			c.logger.WithField("msg_type", envelope.MsgType).Debug("Unhandled message type")
		}
	}
}
