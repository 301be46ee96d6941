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
	"context"
	"slices"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
)

// Execute submits a signed transaction through eng. It moves to Submitting for the duration
// and finishes in Succeeded or Failed. A transaction can only be executed once
func (t *Transaction) Execute(ctx context.Context, eng *engine.Engine) (*Response, error) {
	t.mutex.Lock()
	if err := t.transition("execute", StateSubmitting); err != nil {
		t.mutex.Unlock()
		return nil, err
	}
	sub := &submission{
		tx:            t,
		transactionId: t.transactionId,
		nodes:         slices.Clone(t.nodes),
		targetable:    t.descriptor.Targetable(),
	}
	t.mutex.Unlock()
	result, err := eng.Execute(ctx, sub)
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if err != nil {
		_ = t.transition("finish", StateFailed)
		t.logger.Debug(
			"transaction failed",
			"transaction_id", sub.transactionId.String(),
			"error", err,
		)
		return nil, err
	}
	if err := t.transition("finish", StateSucceeded); err != nil {
		return nil, err
	}
	signed, err := t.signedBytes(result.Node.Node)
	if err != nil {
		return nil, err
	}
	return &Response{
		TransactionId: sub.transactionId,
		Node:          result.Node.Node,
		Hash:          hashBytes(signed),
	}, nil
}

// submission adapts a signed Transaction to the engine. The engine calls it from a single
// goroutine, and the bodies and signatures it reads no longer change
type submission struct {
	tx            *Transaction
	transactionId ledger.TransactionId
	nodes         []ledger.AccountId
	targetable    bool
	sent          int
}

func (s *submission) Kind() string {
	return s.tx.descriptor.Kind()
}

func (s *submission) Method() string {
	return transport.MethodSubmitTransaction
}

func (s *submission) Nodes() []ledger.AccountId {
	return s.nodes
}

func (s *submission) TransactionId() ledger.TransactionId {
	return s.transactionId
}

func (s *submission) BuildRequest(node network.NodeEndpoint) (any, error) {
	signed, err := s.tx.SignedBytes(node.Node)
	if err != nil {
		return nil, err
	}
	s.sent++
	return &protocol.TransactionRequest{SignedTransactionBytes: signed}, nil
}

func (s *submission) NewResponse() any {
	return new(protocol.TransactionResponse)
}

func (s *submission) ClassifyResponse(node network.NodeEndpoint, resp any) (engine.Class, error) {
	precheck := resp.(*protocol.TransactionResponse).Precheck
	switch {
	case precheck.IsAccepted():
		return engine.ClassAccepted, nil
	case precheck == protocol.StatusDuplicateTransaction && s.sent > 1:
		// An earlier attempt reached the network even though its reply was lost
		return engine.ClassAccepted, nil
	case precheck.IsRetryablePrecheck():
		return engine.ClassRetry, protocol.NodeBusyError{Node: node.Node, Status: precheck}
	case precheck.IsNodeMismatch():
		return engine.ClassNodeMismatch, protocol.NodeMismatchError{
			Node:          node.Node,
			TransactionId: s.transactionId,
			Status:        precheck,
		}
	case precheck.IsExpired():
		return engine.ClassExpired, protocol.ExpiredError{
			TransactionId: s.transactionId,
			Status:        precheck,
		}
	}
	return engine.ClassRejected, protocol.PrecheckRejectionError{
		Node:          node.Node,
		TransactionId: s.transactionId,
		Status:        precheck,
	}
}

func (s *submission) IsRetryable(err error) bool {
	return transport.IsRetryable(err)
}

// Retarget drops the failed node from the designated nodes. The bodies for the remaining
// nodes are already signed, so nothing is rebuilt
func (s *submission) Retarget(failed ledger.AccountId) bool {
	if !s.targetable {
		return false
	}
	remaining := slices.DeleteFunc(slices.Clone(s.nodes), func(node ledger.AccountId) bool {
		return node == failed
	})
	if len(remaining) == 0 {
		return false
	}
	s.nodes = remaining
	return true
}
