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

package mirror

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
)

// Default values
const (
	DefaultIdleTimeout        = 30 * time.Second
	DefaultSweepInterval      = time.Second
	DefaultQueueSize          = 64
	DefaultHistorySize        = 4096
	DefaultMaxPending         = 1024
	DefaultReconnectBaseDelay = 250 * time.Millisecond
	DefaultReconnectMaxDelay  = 8 * time.Second
)

// AssemblyObserver is notified of assembly outcomes: emitted, duplicate, timeout, overflow
// and reconnect
type AssemblyObserver interface {
	ObserveAssembly(result string)
}

// Config is used to configure an Assembler or Subscription
type Config struct {
	// IdleTimeout is how long a chunked message may go without a new chunk
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	// QueueSize bounds the messages waiting for the handler. A full queue pauses reads
	QueueSize   int
	HistorySize int
	MaxPending  int
	// End stops the feed at this consensus timestamp. Zero means no end
	End ledger.Timestamp
	// Limit stops the subscription after this many messages. Zero means no limit
	Limit                uint64
	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	CursorStore          CursorStore
	CursorKey            string
	OnComplete           func()
	Logger               *slog.Logger
	Observer             AssemblyObserver
}

// ConfigOptionFunc is a type that represents functions that modify the mirror config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new mirror config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		IdleTimeout:        DefaultIdleTimeout,
		SweepInterval:      DefaultSweepInterval,
		QueueSize:          DefaultQueueSize,
		HistorySize:        DefaultHistorySize,
		MaxPending:         DefaultMaxPending,
		ReconnectBaseDelay: DefaultReconnectBaseDelay,
		ReconnectMaxDelay:  DefaultReconnectMaxDelay,
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

// WithIdleTimeout specifies how long a partial chunked message is kept without new chunks
func WithIdleTimeout(idleTimeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.IdleTimeout = idleTimeout
	}
}

// WithSweepInterval specifies how often idle assemblies are checked for
func WithSweepInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.SweepInterval = interval
	}
}

// WithQueueSize specifies the number of messages buffered for the handler
func WithQueueSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.QueueSize = size
	}
}

// WithHistorySize specifies how many emitted messages are remembered for duplicate detection
func WithHistorySize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.HistorySize = size
	}
}

// WithMaxPending specifies how many chunked messages may be assembled at once
func WithMaxPending(maxPending int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxPending = maxPending
	}
}

// WithEnd specifies the consensus timestamp to stop at
func WithEnd(end ledger.Timestamp) ConfigOptionFunc {
	return func(c *Config) {
		c.End = end
	}
}

// WithLimit specifies the number of messages after which the subscription completes
func WithLimit(limit uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.Limit = limit
	}
}

// WithReconnectBackoff specifies the delay before reconnecting, doubling per consecutive failure
func WithReconnectBackoff(baseDelay time.Duration, maxDelay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ReconnectBaseDelay = baseDelay
		c.ReconnectMaxDelay = maxDelay
	}
}

// WithMaxReconnectAttempts specifies how many consecutive reconnects are attempted. Zero
// means unlimited
func WithMaxReconnectAttempts(attempts int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxReconnectAttempts = attempts
	}
}

// WithCursorStore specifies where the subscription position is saved and loaded under key
func WithCursorStore(store CursorStore, key string) ConfigOptionFunc {
	return func(c *Config) {
		c.CursorStore = store
		c.CursorKey = key
	}
}

// WithOnComplete specifies a function called when the feed ends normally
func WithOnComplete(onComplete func()) ConfigOptionFunc {
	return func(c *Config) {
		c.OnComplete = onComplete
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithObserver specifies an AssemblyObserver
func WithObserver(observer AssemblyObserver) ConfigOptionFunc {
	return func(c *Config) {
		c.Observer = observer
	}
}
