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

package engine

import (
	"log/slog"
	"time"
)

// Default values
const (
	DefaultMaxAttempts    = 10
	DefaultTimeout        = 2 * time.Minute
	DefaultRequestTimeout = 10 * time.Second
)

// AttemptObserver is notified of every attempt the Engine makes
type AttemptObserver interface {
	ObserveAttempt(kind string, node string, result string, duration time.Duration)
}

// Config is used to configure the Engine
type Config struct {
	MaxAttempts    int
	Timeout        time.Duration
	RequestTimeout time.Duration
	Logger         *slog.Logger
	Observer       AttemptObserver
}

// ConfigOptionFunc is a type that represents functions that modify the Engine config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new Engine config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		MaxAttempts:    DefaultMaxAttempts,
		Timeout:        DefaultTimeout,
		RequestTimeout: DefaultRequestTimeout,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	// Every operation gets at least one transmission
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// WithMaxAttempts specifies the maximum number of transmissions per operation. Values below 1
// select DefaultMaxAttempts
func WithMaxAttempts(maxAttempts int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
	}
}

// WithTimeout specifies the overall deadline per operation
func WithTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithRequestTimeout specifies the deadline for a single transmission
func WithRequestTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.RequestTimeout = timeout
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObserver specifies an AttemptObserver, such as the metrics collector
func WithObserver(observer AttemptObserver) ConfigOptionFunc {
	return func(c *Config) {
		c.Observer = observer
	}
}
