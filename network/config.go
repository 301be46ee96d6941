// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package network

import (
	"log/slog"
	"time"
)

// Default values
const (
	DefaultBaseDelay     = 250 * time.Millisecond
	DefaultMaxDelay      = 8 * time.Second
	DefaultJitter        = 0.2
	DefaultFatalCooldown = 60 * time.Second
)

// HealthObserver is notified of every outcome recorded against a node
type HealthObserver interface {
	ObserveNodeOutcome(node string, outcome string, failures int, backoff time.Duration)
}

// Config is used to configure the Registry
type Config struct {
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Jitter        float64
	FatalCooldown time.Duration
	Logger        *slog.Logger
	Observer      HealthObserver
	now           func() time.Time
}

// ConfigOptionFunc is a type that represents functions that modify the Registry config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new Registry config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		Jitter:        DefaultJitter,
		FatalCooldown: DefaultFatalCooldown,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// WithBaseDelay specifies the backoff after the first transient failure
func WithBaseDelay(delay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.BaseDelay = delay
	}
}

// WithMaxDelay specifies the cap on transient failure backoff
func WithMaxDelay(delay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxDelay = delay
	}
}

// WithJitter specifies the fraction (0 to 1) by which a backoff is randomly stretched or shrunk
func WithJitter(jitter float64) ConfigOptionFunc {
	return func(c *Config) {
		c.Jitter = jitter
	}
}

// WithFatalCooldown specifies how long a node is avoided after a fatal failure
func WithFatalCooldown(cooldown time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.FatalCooldown = cooldown
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObserver specifies a HealthObserver, such as the metrics collector
func WithObserver(observer HealthObserver) ConfigOptionFunc {
	return func(c *Config) {
		c.Observer = observer
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}
