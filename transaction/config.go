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

package transaction

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
)

// Default values
const (
	DefaultMaxNodes       = 10
	DefaultValidDuration  = 120 * time.Second
	DefaultTransactionFee = 200_000_000
	DefaultChunkSize      = 1024
	DefaultMaxChunks      = 20

	MaxMemoBytes = 100
)

// Config is used to configure a Transaction
type Config struct {
	// TransactionId is bound at freeze time. A new id is generated when not set
	TransactionId ledger.TransactionId
	// Nodes designates the nodes explicitly instead of choosing from the registry
	Nodes          []ledger.AccountId
	MaxNodes       int
	ValidDuration  time.Duration
	TransactionFee uint64
	Memo           string
	ChunkSize      int
	MaxChunks      int
	Logger         *slog.Logger
}

// ConfigOptionFunc is a type that represents functions that modify the Transaction config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new Transaction config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		MaxNodes:       DefaultMaxNodes,
		ValidDuration:  DefaultValidDuration,
		TransactionFee: DefaultTransactionFee,
		ChunkSize:      DefaultChunkSize,
		MaxChunks:      DefaultMaxChunks,
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

// WithTransactionId specifies the transaction id
func WithTransactionId(id ledger.TransactionId) ConfigOptionFunc {
	return func(c *Config) {
		c.TransactionId = id
	}
}

// WithNodes specifies the designated nodes
func WithNodes(nodes ...ledger.AccountId) ConfigOptionFunc {
	return func(c *Config) {
		c.Nodes = nodes
	}
}

// WithMaxNodes specifies how many registry nodes a targetable transaction is frozen for
func WithMaxNodes(maxNodes int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxNodes = maxNodes
	}
}

// WithValidDuration specifies how long after its valid start the transaction may reach consensus
func WithValidDuration(validDuration time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.ValidDuration = validDuration
	}
}

// WithTransactionFee specifies the maximum fee the payer is willing to pay
func WithTransactionFee(fee uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.TransactionFee = fee
	}
}

// WithMemo specifies the transaction memo
func WithMemo(memo string) ConfigOptionFunc {
	return func(c *Config) {
		c.Memo = memo
	}
}

// WithChunkSize specifies the maximum payload size of one topic message chunk
func WithChunkSize(chunkSize int) ConfigOptionFunc {
	return func(c *Config) {
		c.ChunkSize = chunkSize
	}
}

// WithMaxChunks specifies the maximum number of chunks a topic message may be split into
func WithMaxChunks(maxChunks int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxChunks = maxChunks
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}
