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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
)

// Poller waits for the consensus outcome of an accepted transaction by querying at a fixed
// interval. It does not use the registry backoff, since queries are cheap and idempotent
type Poller struct {
	config    Config
	registry  *network.Registry
	transport engine.Transport
	logger    *slog.Logger
}

func NewPoller(registry *network.Registry, transport engine.Transport, options ...ConfigOptionFunc) *Poller {
	config := NewConfig(options...)
	return &Poller{
		config:    config,
		registry:  registry,
		transport: transport,
		logger:    config.Logger.With("component", "poller"),
	}
}

// Poll returns the receipt of a transaction once it has reached consensus. It polls node
// first, which should be the node that accepted the transaction. A receipt with a status
// other than SUCCESS is returned together with a ConsensusFailureError.
// The options override the poller config for this call only. Callers that know the
// transaction's validity window should pass it with WithValidDuration
func (p *Poller) Poll(
	ctx context.Context,
	txId ledger.TransactionId,
	node ledger.AccountId,
	options ...ConfigOptionFunc,
) (*protocol.TransactionReceipt, error) {
	resp, err := p.poll(ctx, &ReceiptQuery{TransactionId: txId}, txId, node, options)
	if resp == nil {
		return nil, err
	}
	return &resp.(*protocol.ReceiptResponse).Receipt, err
}

// PollRecord is like Poll, but returns the transaction record
func (p *Poller) PollRecord(
	ctx context.Context,
	txId ledger.TransactionId,
	node ledger.AccountId,
	options ...ConfigOptionFunc,
) (*protocol.TransactionRecord, error) {
	resp, err := p.poll(ctx, &RecordQuery{TransactionId: txId}, txId, node, options)
	if resp == nil {
		return nil, err
	}
	return &resp.(*protocol.RecordResponse).Record, err
}

type pollState struct {
	polls           int
	transportErrors int
	lastErr         error
}

func (p *Poller) poll(
	ctx context.Context,
	query pollable,
	txId ledger.TransactionId,
	node ledger.AccountId,
	options []ConfigOptionFunc,
) (any, error) {
	config := p.config
	for _, option := range options {
		option(&config)
	}
	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	endpoint, ok := p.registry.Endpoint(node)
	if !ok {
		var err error
		if endpoint, err = p.registry.Select(nil); err != nil {
			return nil, err
		}
	}
	expiry := txId.ValidStart.Time().Add(config.ValidDuration + config.ExpiryGrace)
	logger := p.logger.With("transaction_id", txId.String(), "kind", query.Kind())
	state := &pollState{}
	for {
		if state.polls > 0 {
			if err := p.wait(ctx, config.Interval); err != nil {
				return nil, p.contextError(ctx, query, txId, state)
			}
		}
		state.polls++
		req, err := query.BuildRequest(endpoint)
		if err != nil {
			return nil, err
		}
		resp := query.NewResponse()
		start := time.Now()
		pollCtx, cancelPoll := context.WithTimeout(ctx, config.RequestTimeout)
		err = p.transport.Invoke(pollCtx, endpoint, query.Method(), req, resp)
		cancelPoll()
		if err != nil {
			p.observe(query, endpoint, "transport_error", time.Since(start))
			if ctx.Err() != nil {
				state.lastErr = err
				return nil, p.contextError(ctx, query, txId, state)
			}
			if !transport.IsRetryable(err) {
				return nil, err
			}
			state.lastErr = err
			state.transportErrors++
			p.registry.RecordOutcome(endpoint.Node, network.OutcomeTransientFailure)
			if state.transportErrors >= config.SwitchAfter {
				if next, err := p.registry.Select(network.NewNodeSet(endpoint.Node)); err == nil {
					logger.Warn(
						"switching poll node after transport errors",
						"node", endpoint.Node.String(),
						"next_node", next.Node.String(),
						"errors", state.transportErrors,
					)
					endpoint = next
				}
				state.transportErrors = 0
			}
			continue
		}
		state.transportErrors = 0
		precheck, status := query.outcome(resp)
		p.observe(query, endpoint, status.String(), time.Since(start))
		logger.Debug(
			"poll result",
			"node", endpoint.Node.String(),
			"poll", state.polls,
			"precheck", precheck.String(),
			"status", status.String(),
		)
		switch {
		case precheck.IsRetryablePrecheck():
			state.lastErr = protocol.NodeBusyError{Node: endpoint.Node, Status: precheck}
		case precheck.IsPending(), precheck.IsAccepted() && status.IsPending():
			if config.now().After(expiry) {
				return nil, protocol.ExpiredError{TransactionId: txId, Status: protocol.StatusTransactionExpired}
			}
			state.lastErr = fmt.Errorf("%s pending: %s", query.Kind(), status)
		case !precheck.IsAccepted():
			return nil, protocol.PrecheckRejectionError{
				Node:          endpoint.Node,
				TransactionId: txId,
				Status:        precheck,
			}
		case status == protocol.StatusSuccess:
			return resp, nil
		case status.IsExpired():
			return resp, protocol.ExpiredError{TransactionId: txId, Status: status}
		default:
			return resp, protocol.ConsensusFailureError{TransactionId: txId, Status: status}
		}
	}
}

func (p *Poller) wait(ctx context.Context, interval time.Duration) error {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) observe(query pollable, node network.NodeEndpoint, result string, duration time.Duration) {
	if p.config.Observer != nil {
		p.config.Observer.ObserveAttempt(query.Kind(), node.Node.String(), result, duration)
	}
}

// contextError converts a done context into the error returned to the caller. Running out
// of time while polling never proves an outcome either way
func (p *Poller) contextError(ctx context.Context, query pollable, txId ledger.TransactionId, state *pollState) error {
	err := ctx.Err()
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	cause := err
	if state.lastErr != nil {
		cause = fmt.Errorf("%w (last error: %w)", err, state.lastErr)
	}
	return protocol.TimeoutError{
		Op:             query.Kind(),
		TransactionId:  txId,
		OutcomeUnknown: true,
		Err:            cause,
	}
}
