// Package settings caches the backend automation settings: activation
// durations, the offline-connect toggle and the trigger to device mappings.
package settings

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/livetrigger/internal/gateway"
	"github.com/vovakirdan/livetrigger/internal/notify"
)

// DefaultDuration is the activation duration before the backend answered.
const DefaultDuration = 2000 * time.Millisecond

// Trigger subtypes a device can be mapped to.
const (
	TriggerLike   = "like"
	TriggerChat   = "chat"
	TriggerGift   = "gift"
	TriggerFollow = "follow"
)

// AvailableTriggers lists the mappable stream subtypes in display order.
func AvailableTriggers() []string {
	return []string{TriggerLike, TriggerChat, TriggerGift, TriggerFollow}
}

// Mapping is a trigger binding as exchanged with the backend.
type Mapping struct {
	DeviceID string `json:"deviceId,omitempty"`
	Enabled  bool   `json:"enabled"`
	MinCount int    `json:"minCount,omitempty"`
}

type value[T any] struct {
	Value T `json:"value"`
}

// Snapshot is a copy of the cached settings.
type Snapshot struct {
	GlobalDuration  time.Duration            `json:"globalDuration"`
	DeviceDurations map[string]time.Duration `json:"deviceDurations"`
	AllowOffline    bool                     `json:"allowOffline"`
	// Mappings holds enabled bindings only, trigger to device id.
	Mappings map[string]string `json:"mappings"`
}

// Store is the settings cache.
type Store struct {
	api  *gateway.Client
	sink notify.Sink
	log  *zerolog.Logger

	mu              sync.RWMutex
	globalDuration  time.Duration
	deviceDurations map[string]time.Duration
	allowOffline    bool
	mappings        map[string]string
	loading         int
	err             string
}

// NewStore creates a settings store. sink may be nil.
func NewStore(api *gateway.Client, sink notify.Sink, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{
		api:             api,
		sink:            sink,
		log:             logger,
		globalDuration:  DefaultDuration,
		deviceDurations: make(map[string]time.Duration),
		mappings:        make(map[string]string),
	}
}

// Snapshot returns a copy of the cache.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		GlobalDuration:  s.globalDuration,
		DeviceDurations: maps.Clone(s.deviceDurations),
		AllowOffline:    s.allowOffline,
		Mappings:        maps.Clone(s.mappings),
	}
}

// GlobalDuration returns the cached default activation duration.
func (s *Store) GlobalDuration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.globalDuration
}

// DeviceDuration returns the per-device duration, falling back to the global one.
func (s *Store) DeviceDuration(id string) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.deviceDurations[id]; ok {
		return d
	}
	return s.globalDuration
}

// AllowOffline returns the cached offline-connect toggle.
func (s *Store) AllowOffline() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowOffline
}

// Mappings returns the enabled trigger bindings.
func (s *Store) Mappings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.mappings)
}

// Loading reports whether any fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Err returns the last failure, or "".
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.err = ""
	s.mu.Unlock()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
}

// FetchAll refreshes the global duration, the offline toggle and the
// mappings concurrently and waits for all of them.
func (s *Store) FetchAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.FetchGlobalDuration(ctx) })
	g.Go(func() error { return s.FetchAllowOffline(ctx) })
	g.Go(func() error { return s.FetchMappings(ctx) })
	return g.Wait()
}

// FetchGlobalDuration refreshes the default activation duration. A missing
// or non-positive value keeps DefaultDuration.
func (s *Store) FetchGlobalDuration(ctx context.Context) error {
	s.begin()
	defer s.end()

	var resp value[int64]
	if err := s.api.Do(ctx, http.MethodGet, "/api/settings/activation-duration", nil, &resp); err != nil {
		return s.fail("fetch activation duration", err)
	}
	d := DefaultDuration
	if resp.Value > 0 {
		d = time.Duration(resp.Value) * time.Millisecond
	}
	s.mu.Lock()
	s.globalDuration = d
	s.mu.Unlock()
	return nil
}

// SetGlobalDuration updates the default activation duration.
func (s *Store) SetGlobalDuration(ctx context.Context, d time.Duration) error {
	if err := s.api.Do(ctx, http.MethodPost, "/api/settings/activation-duration", value[int64]{Value: d.Milliseconds()}, nil); err != nil {
		return s.fail("update activation duration", err)
	}
	s.mu.Lock()
	s.globalDuration = d
	s.mu.Unlock()
	return nil
}

// FetchDeviceDuration refreshes the duration of one device.
func (s *Store) FetchDeviceDuration(ctx context.Context, id string) (time.Duration, error) {
	s.begin()
	defer s.end()

	var resp value[int64]
	if err := s.api.Do(ctx, http.MethodGet, durationPath(id), nil, &resp); err != nil {
		return 0, s.fail("fetch device duration", err)
	}
	d := time.Duration(resp.Value) * time.Millisecond
	s.mu.Lock()
	s.deviceDurations[id] = d
	s.mu.Unlock()
	return d, nil
}

// SetDeviceDuration updates the duration of one device.
func (s *Store) SetDeviceDuration(ctx context.Context, id string, d time.Duration) error {
	if err := s.api.Do(ctx, http.MethodPost, durationPath(id), value[int64]{Value: d.Milliseconds()}, nil); err != nil {
		return s.fail("update device duration", err)
	}
	s.mu.Lock()
	s.deviceDurations[id] = d
	s.mu.Unlock()
	return nil
}

// FetchAllowOffline refreshes the offline-connect toggle. A failure reads as
// false and is only logged.
func (s *Store) FetchAllowOffline(ctx context.Context) error {
	var resp value[bool]
	if err := s.api.Do(ctx, http.MethodGet, "/api/settings/allow-offline-connect", nil, &resp); err != nil {
		s.log.Warn().Err(err).Msg("failed to fetch allow-offline setting, assuming false")
		resp.Value = false
	}
	s.mu.Lock()
	s.allowOffline = resp.Value
	s.mu.Unlock()
	return nil
}

// SetAllowOffline updates the offline-connect toggle.
func (s *Store) SetAllowOffline(ctx context.Context, allow bool) error {
	if err := s.api.Do(ctx, http.MethodPost, "/api/settings/allow-offline-connect", value[bool]{Value: allow}, nil); err != nil {
		return s.fail("update allow-offline setting", err)
	}
	s.mu.Lock()
	s.allowOffline = allow
	s.mu.Unlock()
	return nil
}

// FetchMappings refreshes the trigger bindings. Disabled entries and entries
// without a device are skipped; a failure leaves an empty map.
func (s *Store) FetchMappings(ctx context.Context) error {
	var resp struct {
		Mappings map[string]Mapping `json:"mappings"`
	}
	out := make(map[string]string)
	if err := s.api.Do(ctx, http.MethodGet, "/api/device-mappings", nil, &resp); err != nil {
		s.log.Warn().Err(err).Msg("failed to fetch device mappings")
	} else {
		for trigger, m := range resp.Mappings {
			if m.Enabled && m.DeviceID != "" {
				out[trigger] = m.DeviceID
			}
		}
	}
	s.mu.Lock()
	s.mappings = out
	s.mu.Unlock()
	return nil
}

// SetDeviceMapping binds trigger to deviceID.
func (s *Store) SetDeviceMapping(ctx context.Context, trigger, deviceID string) error {
	body := Mapping{DeviceID: deviceID, Enabled: true, MinCount: 1}
	if err := s.api.Do(ctx, http.MethodPost, mappingPath(trigger), body, nil); err != nil {
		return s.fail("update device mapping", err)
	}
	s.mu.Lock()
	s.mappings[trigger] = deviceID
	s.mu.Unlock()
	return nil
}

// ClearDeviceMapping disables the binding for trigger.
func (s *Store) ClearDeviceMapping(ctx context.Context, trigger string) error {
	if err := s.api.Do(ctx, http.MethodPost, mappingPath(trigger), Mapping{Enabled: false}, nil); err != nil {
		return s.fail("clear device mapping", err)
	}
	s.mu.Lock()
	delete(s.mappings, trigger)
	s.mu.Unlock()
	return nil
}

func (s *Store) fail(action string, err error) error {
	wrapped := fmt.Errorf("failed to %s: %w", action, err)
	s.mu.Lock()
	s.err = wrapped.Error()
	s.mu.Unlock()
	s.log.Error().Err(err).Str("action", action).Msg("settings request failed")
	notify.Error(s.sink, wrapped)
	return wrapped
}

func durationPath(id string) string {
	return "/api/settings/activation-duration/" + url.PathEscape(id)
}

func mappingPath(trigger string) string {
	return "/api/device-mappings/" + url.PathEscape(trigger)
}
