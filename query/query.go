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
	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
)

const (
	KindReceipt = "TransactionGetReceipt"
	KindRecord  = "TransactionGetRecord"
)

// pollable is a query whose response carries a precheck and a consensus status
type pollable interface {
	engine.Executable
	outcome(resp any) (precheck protocol.Status, status protocol.Status)
}

// classify maps a query precheck to an engine class. Pending prechecks count as answers,
// since whether to keep asking is up to the caller
func classify(node network.NodeEndpoint, txId ledger.TransactionId, precheck protocol.Status) (engine.Class, error) {
	switch {
	case precheck.IsAccepted(), precheck.IsPending():
		return engine.ClassAccepted, nil
	case precheck.IsRetryablePrecheck():
		return engine.ClassRetry, protocol.NodeBusyError{Node: node.Node, Status: precheck}
	}
	return engine.ClassRejected, protocol.PrecheckRejectionError{
		Node:          node.Node,
		TransactionId: txId,
		Status:        precheck,
	}
}

// ReceiptQuery fetches the receipt of a transaction. Any node can answer it
type ReceiptQuery struct {
	TransactionId     ledger.TransactionId
	IncludeDuplicates bool
	// Candidate nodes. Nil means every known node
	Candidates []ledger.AccountId
}

func (q *ReceiptQuery) Kind() string                         { return KindReceipt }
func (q *ReceiptQuery) Method() string                       { return transport.MethodGetTransactionReceipt }
func (q *ReceiptQuery) Nodes() []ledger.AccountId            { return q.Candidates }
func (q *ReceiptQuery) NewResponse() any                     { return new(protocol.ReceiptResponse) }
func (q *ReceiptQuery) IsRetryable(err error) bool           { return transport.IsRetryable(err) }
func (q *ReceiptQuery) Retarget(failed ledger.AccountId) bool { return true }

func (q *ReceiptQuery) BuildRequest(node network.NodeEndpoint) (any, error) {
	return &protocol.ReceiptQuery{
		TransactionId:     q.TransactionId,
		IncludeDuplicates: q.IncludeDuplicates,
	}, nil
}

func (q *ReceiptQuery) ClassifyResponse(node network.NodeEndpoint, resp any) (engine.Class, error) {
	return classify(node, q.TransactionId, resp.(*protocol.ReceiptResponse).Precheck)
}

func (q *ReceiptQuery) outcome(resp any) (protocol.Status, protocol.Status) {
	r := resp.(*protocol.ReceiptResponse)
	return r.Precheck, r.Receipt.Status
}

// RecordQuery fetches the record of a transaction
type RecordQuery struct {
	TransactionId ledger.TransactionId
	Candidates    []ledger.AccountId
}

func (q *RecordQuery) Kind() string                         { return KindRecord }
func (q *RecordQuery) Method() string                       { return transport.MethodGetTransactionRecord }
func (q *RecordQuery) Nodes() []ledger.AccountId            { return q.Candidates }
func (q *RecordQuery) NewResponse() any                     { return new(protocol.RecordResponse) }
func (q *RecordQuery) IsRetryable(err error) bool           { return transport.IsRetryable(err) }
func (q *RecordQuery) Retarget(failed ledger.AccountId) bool { return true }

func (q *RecordQuery) BuildRequest(node network.NodeEndpoint) (any, error) {
	return &protocol.RecordQuery{TransactionId: q.TransactionId}, nil
}

func (q *RecordQuery) ClassifyResponse(node network.NodeEndpoint, resp any) (engine.Class, error) {
	return classify(node, q.TransactionId, resp.(*protocol.RecordResponse).Precheck)
}

func (q *RecordQuery) outcome(resp any) (protocol.Status, protocol.Status) {
	r := resp.(*protocol.RecordResponse)
	return r.Precheck, r.Record.Receipt.Status
}
