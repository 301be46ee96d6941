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

package hiero

import (
	"crypto/tls"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/metrics"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/query"
	"github.com/blinklabs-io/gohiero/transport"
	"google.golang.org/grpc"
)

// ClientOptionFunc is a type that represents functions that modify the Client config
type ClientOptionFunc func(*Client)

// WithNetwork specifies the network to use
func WithNetwork(network Network) ClientOptionFunc {
	return func(c *Client) {
		c.network = network
	}
}

// WithNodes specifies the consensus nodes to use, replacing those of the network
func WithNodes(nodes ...network.NodeEndpoint) ClientOptionFunc {
	return func(c *Client) {
		c.network.Nodes = nodes
	}
}

// WithMirrorAddresses specifies the mirror addresses to use, replacing those of the network
func WithMirrorAddresses(addresses ...string) ClientOptionFunc {
	return func(c *Client) {
		c.network.Mirror = addresses
	}
}

// WithOperator specifies the account that pays for transactions and the key that signs for it
func WithOperator(account ledger.AccountId, key keys.PrivateKey) ClientOptionFunc {
	return func(c *Client) {
		c.operatorId = account
		c.operatorKey = key
	}
}

// WithLogger specifies the logger for the client and everything it creates
func WithLogger(logger *slog.Logger) ClientOptionFunc {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics reports engine, node health and subscription activity to the provided collector
func WithMetrics(collector *metrics.Collector) ClientOptionFunc {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithMaxAttempts specifies the attempt budget for each operation
func WithMaxAttempts(maxAttempts int) ClientOptionFunc {
	return func(c *Client) {
		c.engineOptions = append(c.engineOptions, engine.WithMaxAttempts(maxAttempts))
	}
}

// WithTimeout specifies the overall deadline for each operation, and for each receipt poll
func WithTimeout(timeout time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.engineOptions = append(c.engineOptions, engine.WithTimeout(timeout))
		c.pollerOptions = append(c.pollerOptions, query.WithTimeout(timeout))
	}
}

// WithRequestTimeout specifies the deadline for each single request to a node
func WithRequestTimeout(timeout time.Duration) ClientOptionFunc {
	return func(c *Client) {
		c.engineOptions = append(c.engineOptions, engine.WithRequestTimeout(timeout))
		c.pollerOptions = append(c.pollerOptions, query.WithRequestTimeout(timeout))
	}
}

// WithEngineOptions passes options through to the execution engine
func WithEngineOptions(options ...engine.ConfigOptionFunc) ClientOptionFunc {
	return func(c *Client) {
		c.engineOptions = append(c.engineOptions, options...)
	}
}

// WithRegistryOptions passes options through to the node registry
func WithRegistryOptions(options ...network.ConfigOptionFunc) ClientOptionFunc {
	return func(c *Client) {
		c.registryOptions = append(c.registryOptions, options...)
	}
}

// WithPollerOptions passes options through to the receipt poller
func WithPollerOptions(options ...query.ConfigOptionFunc) ClientOptionFunc {
	return func(c *Client) {
		c.pollerOptions = append(c.pollerOptions, options...)
	}
}

// WithMirrorOptions specifies defaults for every subscription. Options passed to
// Subscribe take precedence
func WithMirrorOptions(options ...mirror.ConfigOptionFunc) ClientOptionFunc {
	return func(c *Client) {
		c.mirrorOptions = append(c.mirrorOptions, options...)
	}
}

// WithCursorStore specifies where subscriptions save their position. Each subscription
// stores its cursor under its topic id unless given another key
func WithCursorStore(store mirror.CursorStore) ClientOptionFunc {
	return func(c *Client) {
		c.cursorStore = store
	}
}

// WithTLSConfig enables TLS to nodes and mirrors
func WithTLSConfig(tlsConfig *tls.Config) ClientOptionFunc {
	return func(c *Client) {
		c.transportOptions = append(c.transportOptions, transport.WithTLSConfig(tlsConfig))
	}
}

// WithDialOptions specifies extra gRPC dial options, such as a custom dialer
func WithDialOptions(opts ...grpc.DialOption) ClientOptionFunc {
	return func(c *Client) {
		c.transportOptions = append(c.transportOptions, transport.WithDialOptions(opts...))
	}
}
