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

// Package hiero is a client library for a replicated ledger network.
//
// A Client submits signed transactions to consensus nodes, retrying and failing over
// between them, waits for receipts, and follows topic feeds from mirror nodes with chunked
// messages reassembled.
package hiero

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/metrics"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/query"
	"github.com/blinklabs-io/gohiero/transaction"
	"github.com/blinklabs-io/gohiero/transport"
	"github.com/hashicorp/go-multierror"
)

// Client is safe for concurrent use. Its configuration is fixed at construction
type Client struct {
	network          Network
	operatorId       ledger.AccountId
	operatorKey      keys.PrivateKey
	logger           *slog.Logger
	metrics          *metrics.Collector
	cursorStore      mirror.CursorStore
	engineOptions    []engine.ConfigOptionFunc
	registryOptions  []network.ConfigOptionFunc
	pollerOptions    []query.ConfigOptionFunc
	mirrorOptions    []mirror.ConfigOptionFunc
	transportOptions []transport.ConfigOptionFunc
	transport        *transport.NodeClient
	registry         *network.Registry
	engine           *engine.Engine
	poller           *query.Poller
	// Closed along with the client
	closers       []func() error
	mutex         sync.Mutex
	subscriptions map[string]*mirror.Subscription
	closed        bool
}

// NewClient returns a Client for the configured network
func NewClient(options ...ClientOptionFunc) (*Client, error) {
	c := &Client{
		subscriptions: make(map[string]*mirror.Subscription),
	}
	for _, option := range options {
		option(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if !c.network.Valid() {
		return nil, fmt.Errorf("network %q: %w", c.network.Name, protocol.ErrNoNodes)
	}
	registryOptions := []network.ConfigOptionFunc{network.WithLogger(c.logger)}
	engineOptions := []engine.ConfigOptionFunc{engine.WithLogger(c.logger)}
	pollerOptions := []query.ConfigOptionFunc{query.WithLogger(c.logger)}
	if c.metrics != nil {
		registryOptions = append(registryOptions, network.WithObserver(c.metrics))
		engineOptions = append(engineOptions, engine.WithObserver(c.metrics))
		pollerOptions = append(pollerOptions, query.WithObserver(c.metrics))
	}
	registry, err := network.NewRegistry(
		c.network.Nodes,
		append(registryOptions, c.registryOptions...)...,
	)
	if err != nil {
		return nil, err
	}
	c.registry = registry
	c.transport = transport.NewNodeClient(
		append([]transport.ConfigOptionFunc{transport.WithLogger(c.logger)}, c.transportOptions...)...,
	)
	c.engine = engine.New(c.registry, c.transport, append(engineOptions, c.engineOptions...)...)
	c.poller = query.NewPoller(c.registry, c.transport, append(pollerOptions, c.pollerOptions...)...)
	c.logger = c.logger.With("component", "client", "network", c.network.Name)
	c.logger.Debug("client created", "nodes", len(c.network.Nodes), "mirrors", len(c.network.Mirror))
	return c, nil
}

// Network returns the network the client was created for
func (c *Client) Network() Network {
	return c.network
}

// OperatorAccountId returns the operator account, if any
func (c *Client) OperatorAccountId() ledger.AccountId {
	return c.operatorId
}

func (c *Client) Registry() *network.Registry {
	return c.registry
}

func (c *Client) Engine() *engine.Engine {
	return c.engine
}

func (c *Client) Poller() *query.Poller {
	return c.poller
}

// Freeze binds tx to the client's nodes with the operator as payer, unless tx was given its
// own transaction id
func (c *Client) Freeze(tx *transaction.Transaction) error {
	return tx.Freeze(c.registry, c.operatorId)
}

// Execute submits tx. A transaction that is still being built is frozen first, and one that
// is frozen is signed with the operator key, which must then be the payer's key
func (c *Client) Execute(ctx context.Context, tx *transaction.Transaction) (*transaction.Response, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if tx.State() == transaction.StateBuilding {
		if err := c.Freeze(tx); err != nil {
			return nil, err
		}
	}
	if tx.State() == transaction.StateFrozen {
		if c.operatorKey == nil {
			return nil, fmt.Errorf("signing transaction %s: %w", tx.TransactionId(), ErrNoOperator)
		}
		if err := tx.Sign(c.operatorKey); err != nil {
			return nil, err
		}
		if err := tx.MarkSigned(c.operatorKey.PublicKey()); err != nil {
			return nil, err
		}
	}
	return tx.Execute(ctx, c.engine)
}

// SubmitAndPoll executes tx and waits for its receipt. A receipt with a failure status is
// returned together with a protocol.ConsensusFailureError
func (c *Client) SubmitAndPoll(ctx context.Context, tx *transaction.Transaction) (*protocol.TransactionReceipt, error) {
	resp, err := c.Execute(ctx, tx)
	if err != nil {
		return nil, err
	}
	return c.poller.Poll(ctx, resp.TransactionId, resp.Node, query.WithValidDuration(tx.ValidDuration()))
}

// WaitForReceipt polls for the receipt of a transaction that was already accepted by node
func (c *Client) WaitForReceipt(
	ctx context.Context,
	txId ledger.TransactionId,
	node ledger.AccountId,
	options ...query.ConfigOptionFunc,
) (*protocol.TransactionReceipt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	return c.poller.Poll(ctx, txId, node, options...)
}

// GetReceipt asks any node for the current receipt of a transaction. The receipt status is
// UNKNOWN while the transaction has not reached consensus
func (c *Client) GetReceipt(ctx context.Context, txId ledger.TransactionId) (*protocol.TransactionReceipt, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	result, err := c.engine.Execute(ctx, &query.ReceiptQuery{TransactionId: txId})
	if err != nil {
		return nil, err
	}
	return &result.Response.(*protocol.ReceiptResponse).Receipt, nil
}

// GetRecord asks any node for the record of a transaction
func (c *Client) GetRecord(ctx context.Context, txId ledger.TransactionId) (*protocol.TransactionRecord, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	result, err := c.engine.Execute(ctx, &query.RecordQuery{TransactionId: txId})
	if err != nil {
		return nil, err
	}
	return &result.Response.(*protocol.RecordResponse).Record, nil
}

// SubmitMessage publishes message to topic, split into as many chunks as needed. The chunks
// are submitted in order and the responses are returned in the same order. On failure, the
// responses for the chunks already accepted are returned with the error
func (c *Client) SubmitMessage(
	ctx context.Context,
	topic ledger.TopicId,
	message []byte,
	options ...transaction.ConfigOptionFunc,
) ([]*transaction.Response, error) {
	if c.operatorId.IsZero() {
		return nil, ErrNoOperator
	}
	txs, err := transaction.ChunkMessage(
		transaction.TopicMessageSubmit{TopicId: topic, Message: message},
		c.operatorId,
		append([]transaction.ConfigOptionFunc{transaction.WithLogger(c.logger)}, options...)...,
	)
	if err != nil {
		return nil, err
	}
	ret := make([]*transaction.Response, 0, len(txs))
	for i, tx := range txs {
		resp, err := c.Execute(ctx, tx)
		if err != nil {
			return ret, fmt.Errorf("chunk %d of %d: %w", i+1, len(txs), err)
		}
		ret = append(ret, resp)
	}
	return ret, nil
}

// Subscribe follows topic from start, inclusive, on the network's mirrors. The subscription
// stops when ctx is done, when it is cancelled, or when the client is closed
func (c *Client) Subscribe(
	ctx context.Context,
	topic ledger.TopicId,
	start ledger.Timestamp,
	handler mirror.Handler,
	errHandler mirror.ErrorHandler,
	options ...mirror.ConfigOptionFunc,
) (*mirror.Subscription, error) {
	if len(c.network.Mirror) == 0 {
		return nil, ErrNoMirror
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return nil, protocol.ErrClientClosed
	}
	subOptions := []mirror.ConfigOptionFunc{mirror.WithLogger(c.logger)}
	if c.metrics != nil {
		subOptions = append(subOptions, mirror.WithObserver(c.metrics))
	}
	if c.cursorStore != nil {
		subOptions = append(subOptions, mirror.WithCursorStore(c.cursorStore, topic.String()))
	}
	subOptions = append(subOptions, c.mirrorOptions...)
	subOptions = append(subOptions, options...)
	sub, err := mirror.Subscribe(
		ctx,
		c.transport,
		c.network.Mirror,
		topic,
		start,
		handler,
		errHandler,
		subOptions...,
	)
	if err != nil {
		return nil, err
	}
	c.subscriptions[sub.Id()] = sub
	go func() {
		<-sub.Done()
		c.mutex.Lock()
		delete(c.subscriptions, sub.Id())
		c.mutex.Unlock()
	}()
	return sub, nil
}

func (c *Client) checkOpen() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.closed {
		return protocol.ErrClientClosed
	}
	return nil
}

// Close stops every subscription and closes all connections
func (c *Client) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return nil
	}
	c.closed = true
	subs := make([]*mirror.Subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.mutex.Unlock()
	for _, sub := range subs {
		sub.Cancel()
	}
	var err error
	for _, sub := range subs {
		if subErr := sub.Wait(); subErr != nil && !errors.Is(subErr, context.Canceled) {
			err = multierror.Append(err, fmt.Errorf("subscription %s: %w", sub.Id(), subErr))
		}
	}
	if closeErr := c.transport.Close(); closeErr != nil {
		err = multierror.Append(err, closeErr)
	}
	for _, closer := range c.closers {
		if closeErr := closer(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}
	return err
}
