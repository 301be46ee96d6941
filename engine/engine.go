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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
)

// Result is the outcome of an accepted request
type Result struct {
	Node     network.NodeEndpoint
	Response any
	Attempts int
}

// Engine drives a single request to an accepted response, retrying and failing over
// between nodes. One Engine is safe for concurrent use by many operations
type Engine struct {
	config    Config
	registry  *network.Registry
	transport Transport
	logger    *slog.Logger
}

func New(registry *network.Registry, transport Transport, options ...ConfigOptionFunc) *Engine {
	config := NewConfig(options...)
	return &Engine{
		config:    config,
		registry:  registry,
		transport: transport,
		logger:    config.Logger.With("component", "engine"),
	}
}

// Config returns the Engine config
func (e *Engine) Config() Config {
	return e.config
}

// attemptState tracks one operation's progress through the attempt loop
type attemptState struct {
	exec Executable
	// Nodes tried in the current round
	tried network.NodeSet
	// Nodes that reported a node mismatch. These stay excluded for the whole operation
	fatal       network.NodeSet
	attempts    int
	transmitted bool
	lastErr     error
}

// Execute runs exec until a node accepts it, a terminal failure occurs, the attempt
// budget is used up or the overall deadline passes
func (e *Engine) Execute(ctx context.Context, exec Executable) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()
	state := &attemptState{
		exec:  exec,
		tried: network.NewNodeSet(),
		fatal: network.NewNodeSet(),
	}
	for state.attempts < e.config.MaxAttempts {
		node, err := e.selectNode(state)
		if err != nil {
			return nil, err
		}
		if err := e.waitReady(ctx, node); err != nil {
			return nil, e.contextError(ctx, state)
		}
		result, done, err := e.attempt(ctx, state, node)
		if done {
			return result, err
		}
	}
	e.logger.Warn(
		"giving up after max attempts",
		"kind", exec.Kind(),
		"attempts", state.attempts,
		"error", state.lastErr,
	)
	return nil, protocol.MaxAttemptsError{
		Attempts: state.attempts,
		Err:      state.lastErr,
	}
}

// selectNode picks the next node, starting a new round when every candidate has been
// tried in the current one
func (e *Engine) selectNode(state *attemptState) (network.NodeEndpoint, error) {
	candidates := state.exec.Nodes()
	excluding := network.NewNodeSet()
	for node := range state.tried {
		excluding.Add(node)
	}
	for node := range state.fatal {
		excluding.Add(node)
	}
	node, err := e.registry.SelectFrom(candidates, excluding)
	if err == nil {
		return node, nil
	}
	if !errors.Is(err, protocol.ErrNoNodes) {
		return network.NodeEndpoint{}, err
	}
	// New round
	state.tried = network.NewNodeSet()
	node, err = e.registry.SelectFrom(candidates, state.fatal)
	if err == nil {
		return node, nil
	}
	if state.lastErr != nil {
		return network.NodeEndpoint{}, state.lastErr
	}
	return network.NodeEndpoint{}, err
}

// waitReady blocks until the node's backoff window ends or ctx is done
func (e *Engine) waitReady(ctx context.Context, node network.NodeEndpoint) error {
	wait := e.registry.ReadyIn(node.Node)
	if wait <= 0 {
		return ctx.Err()
	}
	e.logger.Debug(
		"waiting for node backoff",
		"node", node.Node.String(),
		"wait", wait,
	)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// attempt transmits once and applies the response. done is set when the operation is finished
func (e *Engine) attempt(
	ctx context.Context,
	state *attemptState,
	node network.NodeEndpoint,
) (*Result, bool, error) {
	exec := state.exec
	req, err := exec.BuildRequest(node)
	if err != nil {
		return nil, true, fmt.Errorf("failed to build %s request for node %s: %w", exec.Kind(), node.Node, err)
	}
	resp := exec.NewResponse()
	state.attempts++
	state.tried.Add(node.Node)
	state.transmitted = true
	start := time.Now()
	attemptCtx, cancelAttempt := context.WithTimeout(ctx, e.config.RequestTimeout)
	err = e.transport.Invoke(attemptCtx, node, exec.Method(), req, resp)
	cancelAttempt()
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			e.observe(exec, node, "timeout", duration)
			state.lastErr = err
			return nil, true, e.contextError(ctx, state)
		}
		if !exec.IsRetryable(err) {
			e.observe(exec, node, "error", duration)
			return nil, true, err
		}
		e.observe(exec, node, "transport_error", duration)
		e.logger.Warn(
			"transport error, retrying",
			"kind", exec.Kind(),
			"node", node.Node.String(),
			"attempt", state.attempts,
			"error", err,
		)
		e.registry.RecordOutcome(node.Node, network.OutcomeTransientFailure)
		state.lastErr = err
		return nil, false, nil
	}
	class, classErr := exec.ClassifyResponse(node, resp)
	e.observe(exec, node, class.String(), duration)
	e.logger.Debug(
		"attempt complete",
		"kind", exec.Kind(),
		"node", node.Node.String(),
		"attempt", state.attempts,
		"class", class.String(),
	)
	switch class {
	case ClassAccepted:
		e.registry.RecordOutcome(node.Node, network.OutcomeSuccess)
		return &Result{Node: node, Response: resp, Attempts: state.attempts}, true, nil
	case ClassRetry:
		e.registry.RecordOutcome(node.Node, network.OutcomeTransientFailure)
		state.lastErr = classErr
		return nil, false, nil
	case ClassNodeMismatch:
		e.registry.RecordOutcome(node.Node, network.OutcomeFatalFailure)
		state.fatal.Add(node.Node)
		state.lastErr = classErr
		if !exec.Retarget(node.Node) {
			return nil, true, classErr
		}
		e.logger.Warn(
			"node mismatch, retargeting",
			"kind", exec.Kind(),
			"node", node.Node.String(),
		)
		return nil, false, nil
	default:
		// The node did its job, the request itself is the problem
		e.registry.RecordOutcome(node.Node, network.OutcomeSuccess)
		return nil, true, classErr
	}
}

func (e *Engine) observe(exec Executable, node network.NodeEndpoint, result string, duration time.Duration) {
	if e.config.Observer != nil {
		e.config.Observer.ObserveAttempt(exec.Kind(), node.Node.String(), result, duration)
	}
}

// contextError converts a done context into the error returned to the caller
func (e *Engine) contextError(ctx context.Context, state *attemptState) error {
	err := ctx.Err()
	if !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	e.logger.Warn(
		"deadline exceeded",
		"kind", state.exec.Kind(),
		"attempts", state.attempts,
	)
	cause := err
	if state.lastErr != nil {
		cause = fmt.Errorf("%w (last error: %w)", err, state.lastErr)
	}
	ret := protocol.TimeoutError{
		Op: state.exec.Kind(),
		// Something was sent but no acceptance was seen
		OutcomeUnknown: state.transmitted,
		Err:            cause,
	}
	if identified, ok := state.exec.(interface {
		TransactionId() ledger.TransactionId
	}); ok {
		ret.TransactionId = identified.TransactionId()
	}
	return ret
}
