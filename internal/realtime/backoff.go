package realtime

import (
	"math/rand/v2"
	"time"
)

// Config governs reconnection and tier fallback.
type Config struct {
	// MaxRetries is the number of consecutive failures at the preferred tier
	// before falling back.
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	Jitter           bool
	HandshakeTimeout time.Duration
	// RestorePreferred sends the manager back to the preferred tier when a
	// fallback session drops.
	RestorePreferred bool
}

// DefaultConfig returns the reconnect policy used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxRetries:       5,
		InitialDelay:     time.Second,
		MaxDelay:         30 * time.Second,
		Multiplier:       2.0,
		Jitter:           true,
		HandshakeTimeout: 10 * time.Second,
		RestorePreferred: true,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = def.InitialDelay
	}
	if c.MaxDelay < c.InitialDelay {
		c.MaxDelay = c.InitialDelay
	}
	if c.Multiplier < 1 {
		c.Multiplier = def.Multiplier
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	return c
}

// delay returns the wait before the given attempt (1-based): initial *
// multiplier^(attempt-1), capped at MaxDelay, plus up to 25% jitter.
func (c Config) delay(attempt int) time.Duration {
	d := c.InitialDelay
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * c.Multiplier)
		if d >= c.MaxDelay {
			d = c.MaxDelay
			break
		}
	}
	if c.Jitter && d >= 4 {
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}
