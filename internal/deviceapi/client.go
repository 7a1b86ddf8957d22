// Waypost - Location Ingestion and Change Notification Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypost

// Package deviceapi implements the HTTP client for the external
// device-location service.
package deviceapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypost/internal/consumer"
	"github.com/tomtom215/waypost/internal/models"
)

const maxResponseBody = 1 << 20

// Client talks to the device-location service. It satisfies
// consumer.DeviceAPI.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

// Authenticate exchanges credentials for a session token. A 401 becomes a
// *consumer.LoginFailureError so callers can tell credential rejections from
// outages.
func (c *Client) Authenticate(ctx context.Context, username, password string) (consumer.DeviceSession, error) {
	payload, err := json.Marshal(authRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/session", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &consumer.LoginFailureError{Username: username}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("authenticate: unexpected status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := decode(resp.Body, &auth); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}
	return &session{client: c, token: auth.Token}, nil
}

// session is an authenticated account.
type session struct {
	client *Client
	token  string
}

type deviceRecord struct {
	ID string `json:"id"`
}

// Devices lists the account's devices keyed by identifier.
func (s *session) Devices(ctx context.Context) (map[string]consumer.Device, error) {
	var records []deviceRecord
	if err := s.get(ctx, "/v1/devices", &records); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	devices := make(map[string]consumer.Device, len(records))
	for _, rec := range records {
		devices[rec.ID] = &device{session: s, id: rec.ID}
	}
	return devices, nil
}

// device reports fixes for one physical device.
type device struct {
	session *session
	id      string
}

// Location fetches the device's current fix. The service returns an empty
// body when it has no fix yet; that maps to a nil sample.
func (d *device) Location(ctx context.Context) (*models.DeviceSample, error) {
	path := "/v1/devices/" + url.PathEscape(d.id) + "/location"
	var sample *models.DeviceSample
	if err := d.session.get(ctx, path, &sample); err != nil {
		return nil, fmt.Errorf("device %s location: %w", d.id, err)
	}
	return sample, nil
}

func (s *session) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return decode(resp.Body, out)
}

func decode(r io.Reader, out any) error {
	raw, err := io.ReadAll(io.LimitReader(r, maxResponseBody))
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
