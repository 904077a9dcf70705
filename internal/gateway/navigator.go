package gateway

import (
	"sync"

	"github.com/rs/zerolog"
)

// RouteNavigator tracks the current route of a headless client and runs
// onNavigate whenever it changes.
type RouteNavigator struct {
	mu         sync.Mutex
	path       string
	onNavigate func(path string)
	log        *zerolog.Logger
}

// NewRouteNavigator starts at "/".
func NewRouteNavigator(logger *zerolog.Logger, onNavigate func(path string)) *RouteNavigator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RouteNavigator{path: "/", onNavigate: onNavigate, log: logger}
}

// Path implements Navigator.
func (n *RouteNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

// Navigate implements Navigator.
func (n *RouteNavigator) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	cb := n.onNavigate
	n.mu.Unlock()

	n.log.Info().Str("path", path).Msg("navigate")
	if cb != nil {
		cb(path)
	}
}
