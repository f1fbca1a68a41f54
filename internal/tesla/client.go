package tesla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/retry"
	"github.com/sirupsen/logrus"
)

const (
	defaultAuthURL   = "https://auth.tesla.com/oauth2/v3/token"
	defaultAPIURL    = "https://owner-api.teslamotors.com/api/1"
	defaultStreamURL = "wss://streaming.vn.teslamotors.com/streaming/"
)

// Client talks to the Tesla owner API: token exchange, vehicle directory,
// detailed vehicle data and the streaming endpoint. Every network call runs
// under the shared retry policy.
type Client struct {
	authURL    string
	apiURL     string
	streamURL  string
	httpClient *http.Client
	retry      retry.Policy
	logger     *logrus.Logger
	now        func() time.Time
}

// NewClient creates a client against the production endpoints.
func NewClient(policy retry.Policy, logger *logrus.Logger) *Client {
	return &Client{
		authURL:   defaultAuthURL,
		apiURL:    defaultAPIURL,
		streamURL: defaultStreamURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry:  policy,
		logger: logger,
		now:    time.Now,
	}
}

// SetBaseURLs overrides the API endpoints. Intended for tests against local
// servers.
func (c *Client) SetBaseURLs(authURL, apiURL, streamURL string) {
	c.authURL = authURL
	c.apiURL = apiURL
	c.streamURL = streamURL
}

// SetTimeout adjusts the HTTP client timeout.
func (c *Client) SetTimeout(timeout time.Duration) { c.httpClient.Timeout = timeout }

// SetClock swaps the wall clock used for streaming deadlines. Intended for tests.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

// apiEnvelope is the {response, count} wrapper the owner API puts around
// every REST payload.
type apiEnvelope struct {
	Response json.RawMessage `json:"response"`
	Count    int             `json:"count"`
}

// getJSON performs a retried GET with bearer auth and decodes the enveloped
// response into out.
func (c *Client) getJSON(ctx context.Context, op, url string, token AccessToken, out any) error {
	c.logger.WithField("url", url).Debug("GET")

	var body []byte
	err := c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token.AccessToken))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &APIError{Op: op, StatusCode: resp.StatusCode}
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return apiErr
		}
		return &APIError{Op: op, Err: err}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}

// postJSON performs a retried POST with a JSON body and decodes the raw
// (non-enveloped) response into out.
func (c *Client) postJSON(ctx context.Context, op, url string, reqBody, out any) error {
	c.logger.WithField("url", url).Debug("POST")

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", op, err)
	}

	var body []byte
	err = c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &APIError{Op: op, StatusCode: resp.StatusCode}
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Op: op, Err: err}
	}
	return nil
}
