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

package query

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/engine"
)

// Default values
const (
	DefaultInterval       = 500 * time.Millisecond
	DefaultTimeout        = 2 * time.Minute
	DefaultRequestTimeout = 10 * time.Second
	DefaultSwitchAfter    = 3
	DefaultValidDuration  = 120 * time.Second
	DefaultExpiryGrace    = 10 * time.Second
)

// Config is used to configure the Poller
type Config struct {
	// Interval is the fixed delay between polls
	Interval time.Duration
	// Timeout bounds the whole poll
	Timeout        time.Duration
	RequestTimeout time.Duration
	// SwitchAfter is the number of consecutive transport errors after which polling moves
	// to another node
	SwitchAfter int
	// ValidDuration and ExpiryGrace determine when a transaction that is still not found can
	// no longer reach consensus
	ValidDuration time.Duration
	ExpiryGrace   time.Duration
	Logger        *slog.Logger
	Observer      engine.AttemptObserver
	now           func() time.Time
}

// ConfigOptionFunc is a type that represents functions that modify the Poller config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new Poller config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		Interval:       DefaultInterval,
		Timeout:        DefaultTimeout,
		RequestTimeout: DefaultRequestTimeout,
		SwitchAfter:    DefaultSwitchAfter,
		ValidDuration:  DefaultValidDuration,
		ExpiryGrace:    DefaultExpiryGrace,
		now:            time.Now,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WithInterval specifies the delay between polls
func WithInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.Interval = interval
	}
}

// WithTimeout specifies the overall poll deadline
func WithTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRequestTimeout specifies the deadline for a single poll
func WithRequestTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithSwitchAfter specifies how many consecutive transport errors cause a node switch
func WithSwitchAfter(switchAfter int) ConfigOptionFunc {
	return func(c *Config) {
		c.SwitchAfter = switchAfter
	}
}

// WithValidDuration specifies the validity window of polled transactions
func WithValidDuration(validDuration time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ValidDuration = validDuration
	}
}

// WithExpiryGrace specifies how long past the validity window a transaction is still polled for
func WithExpiryGrace(grace time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ExpiryGrace = grace
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObserver specifies an AttemptObserver that is notified of every poll
func WithObserver(observer engine.AttemptObserver) ConfigOptionFunc {
	return func(c *Config) {
		c.Observer = observer
	}
}

// WithClock specifies the time source used for expiry. This is mostly useful for tests
func WithClock(now func() time.Time) ConfigOptionFunc {
	return func(c *Config) {
		c.now = now
	}
}
