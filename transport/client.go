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

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/hashicorp/go-multierror"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// Default values
const (
	DefaultMaxMsgSize       = 4 * 1024 * 1024
	DefaultConnectTimeout   = 5 * time.Second
	DefaultKeepAliveTime    = 30 * time.Second
	DefaultKeepAliveTimeout = 10 * time.Second
	DefaultBackoffBaseDelay = 100 * time.Millisecond
	DefaultBackoffMaxDelay  = 8 * time.Second
)

// Config is used to configure the NodeClient
type Config struct {
	TLSConfig        *tls.Config
	MaxMsgSize       int
	ConnectTimeout   time.Duration
	KeepAliveTime    time.Duration
	KeepAliveTimeout time.Duration
	BackoffBaseDelay time.Duration
	BackoffMaxDelay  time.Duration
	DialOptions      []grpc.DialOption
	Logger           *slog.Logger
}

// ConfigOptionFunc is a type that represents functions that modify the NodeClient config
type ConfigOptionFunc func(*Config)

// NewConfig returns a new NodeClient config object with the provided options
func NewConfig(options ...ConfigOptionFunc) Config {
	c := Config{
		MaxMsgSize:       DefaultMaxMsgSize,
		ConnectTimeout:   DefaultConnectTimeout,
		KeepAliveTime:    DefaultKeepAliveTime,
		KeepAliveTimeout: DefaultKeepAliveTimeout,
		BackoffBaseDelay: DefaultBackoffBaseDelay,
		BackoffMaxDelay:  DefaultBackoffMaxDelay,
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

// WithTLSConfig enables TLS to nodes with the provided config
func WithTLSConfig(tlsConfig *tls.Config) ConfigOptionFunc {
	return func(c *Config) {
		c.TLSConfig = tlsConfig
	}
}

// WithMaxMsgSize specifies the maximum message size in both directions
func WithMaxMsgSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.MaxMsgSize = size
	}
}

// WithKeepAlive specifies the keepalive ping interval and timeout
func WithKeepAlive(interval time.Duration, timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.KeepAliveTime = interval
		c.KeepAliveTimeout = timeout
	}
}

// WithDialOptions specifies additional gRPC dial options
func WithDialOptions(opts ...grpc.DialOption) ConfigOptionFunc {
	return func(c *Config) {
		c.DialOptions = append(c.DialOptions, opts...)
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// NodeClient keeps one gRPC connection per address and runs calls and subscriptions over them
type NodeClient struct {
	config      Config
	logger      *slog.Logger
	mutex       sync.RWMutex
	connections map[string]*grpc.ClientConn
	closed      bool
}

func NewNodeClient(options ...ConfigOptionFunc) *NodeClient {
	config := NewConfig(options...)
	return &NodeClient{
		config:      config,
		logger:      config.Logger.With("component", "transport"),
		connections: make(map[string]*grpc.ClientConn),
	}
}

func (c *NodeClient) getConnection(address string) (*grpc.ClientConn, error) {
	c.mutex.RLock()
	conn, exists := c.connections[address]
	closed := c.closed
	c.mutex.RUnlock()
	if closed {
		return nil, protocol.ErrClientClosed
	}
	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil, protocol.ErrClientClosed
	}
	conn, exists = c.connections[address]
	if exists && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}
	if conn != nil {
		_ = conn.Close()
	}
	newConn, err := c.createConnection(address)
	if err != nil {
		return nil, err
	}
	c.connections[address] = newConn
	return newConn, nil
}

func (c *NodeClient) createConnection(address string) (*grpc.ClientConn, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff: backoff.Config{
				BaseDelay:  c.config.BackoffBaseDelay,
				Multiplier: backoff.DefaultConfig.Multiplier,
				Jitter:     backoff.DefaultConfig.Jitter,
				MaxDelay:   c.config.BackoffMaxDelay,
			},
			MinConnectTimeout: c.config.ConnectTimeout,
		}),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                c.config.KeepAliveTime,
			Timeout:             c.config.KeepAliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(
			grpc.CallContentSubtype(CodecName),
			grpc.MaxCallRecvMsgSize(c.config.MaxMsgSize),
			grpc.MaxCallSendMsgSize(c.config.MaxMsgSize),
		),
	}
	if c.config.TLSConfig != nil {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(c.config.TLSConfig)))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	dialOpts = append(dialOpts, c.config.DialOptions...)
	c.logger.Debug("creating connection", "address", address)
	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		c.logger.Error("failed to create connection", "address", address, "error", err)
		return nil, fmt.Errorf("failed to create connection to %s: %w", address, err)
	}
	return conn, nil
}

// Invoke runs a unary call against a node. Retryable failures are returned as
// protocol.TransportError
func (c *NodeClient) Invoke(
	ctx context.Context,
	node network.NodeEndpoint,
	method string,
	req any,
	resp any,
) error {
	conn, err := c.getConnection(node.HostPort())
	if err != nil {
		if errors.Is(err, protocol.ErrClientClosed) {
			return err
		}
		return protocol.TransportError{Node: node.Node, Err: err}
	}
	c.logger.Debug(
		"invoking method",
		"node", node.Node.String(),
		"method", method,
	)
	if err := conn.Invoke(ctx, method, req, resp); err != nil {
		return ClassifyError(node.Node, err)
	}
	return nil
}

// TopicStream is a server stream of topic messages
type TopicStream interface {
	Recv() (*protocol.TopicResponse, error)
}

type topicStream struct {
	stream grpc.ClientStream
}

func (s *topicStream) Recv() (*protocol.TopicResponse, error) {
	resp := new(protocol.TopicResponse)
	if err := s.stream.RecvMsg(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

var subscribeTopicStreamDesc = grpc.StreamDesc{
	StreamName:    "SubscribeTopic",
	ServerStreams: true,
}

// Subscribe opens a topic subscription against a mirror address. The stream ends with
// io.EOF once the server finishes. Cancelling ctx tears the stream down
func (c *NodeClient) Subscribe(
	ctx context.Context,
	address string,
	query *protocol.TopicQuery,
) (TopicStream, error) {
	conn, err := c.getConnection(address)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(
		"opening topic subscription",
		"address", address,
		"topic", query.TopicId.String(),
		"start", query.Start.String(),
	)
	stream, err := conn.NewStream(ctx, &subscribeTopicStreamDesc, MethodSubscribeTopic)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(query); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &topicStream{stream: stream}, nil
}

// Close closes every pooled connection
func (c *NodeClient) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	var err error
	for address, conn := range c.connections {
		if closeErr := conn.Close(); closeErr != nil {
			err = multierror.Append(err, fmt.Errorf("closing connection to %s: %w", address, closeErr))
		}
		delete(c.connections, address)
	}
	return err
}
