// Package devices wraps the backend device endpoints.
package devices

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/notify"
)

// DefaultTestDuration is how long Test keeps a device on.
const DefaultTestDuration = 2000 * time.Millisecond

// Device is a controllable smart device.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CustomName string `json:"custom_name,omitempty"`
	Online     bool   `json:"online"`
	Category   string `json:"category,omitempty"`
}

// DisplayName prefers the operator-assigned name.
func (d Device) DisplayName() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	return d.Name
}

// SwitchResult is the backend answer to on/off/rename calls.
type SwitchResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type switchOnRequest struct {
	Duration int64 `json:"duration,omitempty"`
}

// Store caches the device list and forwards device commands.
type Store struct {
	api  *gateway.Client
	sink notify.Sink
	log  *zerolog.Logger

	mu      sync.RWMutex
	devices []Device
	loading bool
	err     string
}

// NewStore creates a device store. sink may be nil.
func NewStore(api *gateway.Client, sink notify.Sink, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{api: api, sink: sink, log: logger}
}

// Devices returns a copy of the last fetched list.
func (s *Store) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.devices)
}

// Loading reports whether a Fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last Fetch failure, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Fetch refreshes the device list. A failure is kept in Err and notified.
func (s *Store) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	var resp struct {
		Devices []Device `json:"devices"`
	}
	err := s.api.Do(ctx, http.MethodGet, "/api/devices", nil, &resp)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
		s.log.Error().Err(err).Msg("failed to fetch devices")
		notify.Error(s.sink, fmt.Errorf("failed to fetch devices: %w", err))
		return err
	}
	if resp.Devices == nil {
		resp.Devices = []Device{}
	}
	s.devices = resp.Devices
	return nil
}

// Details fetches a single device.
func (s *Store) Details(ctx context.Context, id string) (Device, error) {
	var resp struct {
		Device Device `json:"device"`
	}
	if err := s.api.Do(ctx, http.MethodGet, devicePath(id, ""), nil, &resp); err != nil {
		return Device{}, s.fail("fetch device", err)
	}
	return resp.Device, nil
}

// State fetches the device data points as reported by the vendor.
func (s *Store) State(ctx context.Context, id string) (map[string]any, error) {
	var resp struct {
		State map[string]any `json:"state"`
	}
	if err := s.api.Do(ctx, http.MethodGet, devicePath(id, "/state"), nil, &resp); err != nil {
		return nil, s.fail("fetch device state", err)
	}
	return resp.State, nil
}

// Rename sets the custom name and updates the cached entry.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	body := map[string]string{"name": name}
	if err := s.api.DoEnvelope(ctx, http.MethodPost, devicePath(id, "/name"), body, nil); err != nil {
		return s.fail("update device name", err)
	}

	s.mu.Lock()
	if i := slices.IndexFunc(s.devices, func(d Device) bool { return d.ID == id }); i >= 0 {
		s.devices[i].CustomName = name
	}
	s.mu.Unlock()
	return nil
}

// SwitchOn turns the device on. A positive duration asks the backend to turn
// it off again afterwards.
func (s *Store) SwitchOn(ctx context.Context, id string, duration time.Duration) (SwitchResult, error) {
	req := switchOnRequest{Duration: duration.Milliseconds()}
	var res SwitchResult
	if err := s.api.DoEnvelope(ctx, http.MethodPost, devicePath(id, "/on"), req, &res); err != nil {
		return SwitchResult{}, s.fail("turn device ON", err)
	}
	return res, nil
}

// SwitchOff turns the device off.
func (s *Store) SwitchOff(ctx context.Context, id string) (SwitchResult, error) {
	var res SwitchResult
	if err := s.api.DoEnvelope(ctx, http.MethodPost, devicePath(id, "/off"), nil, &res); err != nil {
		return SwitchResult{}, s.fail("turn device OFF", err)
	}
	return res, nil
}

// Test pulses the device for duration, DefaultTestDuration when zero.
func (s *Store) Test(ctx context.Context, id string, duration time.Duration) (SwitchResult, error) {
	if duration <= 0 {
		duration = DefaultTestDuration
	}
	return s.SwitchOn(ctx, id, duration)
}

func (s *Store) fail(action string, err error) error {
	s.log.Error().Err(err).Str("action", action).Msg("device request failed")
	wrapped := fmt.Errorf("failed to %s: %w", action, err)
	notify.Error(s.sink, wrapped)
	return wrapped
}

func devicePath(id, suffix string) string {
	return "/api/devices/" + url.PathEscape(id) + suffix
}
