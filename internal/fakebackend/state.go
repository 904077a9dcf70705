package fakebackend

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// Device is the backend view of a smart plug.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CustomName string `json:"custom_name,omitempty"`
	Online     bool   `json:"online"`
	Category   string `json:"category,omitempty"`
	On         bool   `json:"-"`
}

// Mapping binds a stream subtype to a device.
type Mapping struct {
	DeviceID string `json:"deviceId,omitempty"`
	Enabled  bool   `json:"enabled"`
	MinCount int    `json:"minCount,omitempty"`
}

// State is the mutable data set behind the REST endpoints.
type State struct {
	mu              sync.Mutex
	devices         map[string]*Device
	globalDuration  int64
	deviceDurations map[string]int64
	allowOffline    bool
	mappings        map[string]Mapping
	liveUser        string
	connected       bool
	offlineUsers    map[string]struct{}
}

// NewState seeds the default data set.
func NewState(devices ...Device) *State {
	s := &State{
		devices:         make(map[string]*Device),
		globalDuration:  2000,
		deviceDurations: make(map[string]int64),
		mappings:        make(map[string]Mapping),
		offlineUsers:    map[string]struct{}{"offline": {}},
	}
	for _, d := range devices {
		s.devices[d.ID] = &d
	}
	return s
}

// DefaultDevices is the demo inventory.
func DefaultDevices() []Device {
	return []Device{
		{ID: "plug-1", Name: "Desk lamp", Online: true, Category: "cz"},
		{ID: "plug-2", Name: "Confetti cannon", Online: true, Category: "cz"},
		{ID: "plug-3", Name: "Fog machine", Online: false, Category: "cz"},
	}
}

func (s *State) listDevices() []Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Device, 0, len(s.devices))
	for _, id := range slices.Sorted(maps.Keys(s.devices)) {
		out = append(out, *s.devices[id])
	}
	return out
}

func (s *State) device(id string) (Device, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

func (s *State) renameDevice(id, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if ok {
		d.CustomName = name
	}
	return ok
}

func (s *State) switchDevice(id string, on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if ok {
		d.On = on
	}
	return ok
}

func (s *State) durationFor(id string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms, ok := s.deviceDurations[id]; ok && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return time.Duration(s.globalDuration) * time.Millisecond
}

func (s *State) mappingFor(trigger string) (Mapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[trigger]
	return m, ok && m.Enabled && m.DeviceID != ""
}

// ErrUnknownDevice is returned when a mapping names a device that does not exist.
var ErrUnknownDevice = errors.New("unknown device")

// SetMapping binds trigger to a device. Enabled mappings must name a known device.
func (s *State) SetMapping(trigger string, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Enabled {
		if _, ok := s.devices[m.DeviceID]; !ok {
			return ErrUnknownDevice
		}
	}
	s.mappings[trigger] = m
	return nil
}

// Live reports the simulated stream connection.
func (s *State) Live() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected, s.liveUser
}
