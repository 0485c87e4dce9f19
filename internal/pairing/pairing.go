// Package pairing requests short-lived numeric PINs from the relay's REST
// endpoint. The user reads the PIN to a mobile device out of band; the relay
// enforces expiry and single use.
package pairing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tether/internal/identity"
	"tether/internal/logs"
)

const requestTimeout = 10 * time.Second

// Pin is the relay-issued pairing code.
type Pin struct {
	Value     string    `json:"pin"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store persists the last issued pin for display. Optional.
type Store interface {
	SavePin(Pin) error
	LastPin() (*Pin, error)
}

type Service struct {
	client *http.Client
	store  Store
}

func NewService(store Store) *Service {
	return &Service{
		client: &http.Client{Timeout: requestTimeout},
		store:  store,
	}
}

type createRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

type createResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Pin       string `json:"pin"`
		ExpiresAt int64  `json:"expiresAt"` // unix milliseconds
	} `json:"data"`
}

// CreatePin requests a new PIN for this device. Any failure returns an error
// and leaves no partial state behind.
func (s *Service) CreatePin(ctx context.Context, relayURL string, ident identity.Identity) (*Pin, error) {
	endpoint, err := PinEndpoint(relayURL)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(createRequest{DeviceID: ident.DeviceID, DeviceName: ident.DeviceName})
	if err != nil {
		return nil, fmt.Errorf("encode pin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build pin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pin request: unexpected status %d", resp.StatusCode)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse pin response: %w", err)
	}
	if !out.Success || out.Data.Pin == "" {
		return nil, fmt.Errorf("relay declined pin request")
	}

	pin := Pin{
		Value:     out.Data.Pin,
		ExpiresAt: time.UnixMilli(out.Data.ExpiresAt),
	}
	if s.store != nil {
		if err := s.store.SavePin(pin); err != nil {
			// the pin is still valid; persistence is display convenience only
			logs.Logger.Warnf("persist pin: %v", err)
		}
	}
	return &pin, nil
}

// Last returns the most recently issued pin, if any was persisted.
func (s *Service) Last() (*Pin, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.LastPin()
}

// PinEndpoint derives the REST pairing endpoint from the relay's socket URL:
// wss:// becomes https://, ws:// becomes http://.
func PinEndpoint(relayURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(relayURL))
	if err != nil {
		return "", fmt.Errorf("relay url: %w", err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	case "ws":
		u.Scheme = "http"
	case "https", "http":
		// already an HTTP url; accept as-is
	default:
		return "", fmt.Errorf("relay url: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/pin/create"
	u.RawQuery = ""
	return u.String(), nil
}
