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

package protocol

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/gohiero/ledger"
)

var (
	ErrNoNodes      = errors.New("no nodes available")
	ErrClientClosed = errors.New("client is closed")
)

// TransportError is a connection or socket-level failure talking to a node. Always
// retryable within policy
type TransportError struct {
	Node ledger.AccountId
	Err  error
}

func (e TransportError) Error() string {
	return fmt.Sprintf("transport error talking to node %s: %s", e.Node, e.Err)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// NodeBusyError is reported by a node that could not take the request right now
type NodeBusyError struct {
	Node   ledger.AccountId
	Status Status
}

func (e NodeBusyError) Error() string {
	return fmt.Sprintf("node %s is busy: %s", e.Node, e.Status)
}

// NodeMismatchError means the transaction was addressed to a node that does not accept it,
// and it could not be re-addressed to another node
type NodeMismatchError struct {
	Node          ledger.AccountId
	TransactionId ledger.TransactionId
	Status        Status
}

func (e NodeMismatchError) Error() string {
	return fmt.Sprintf(
		"transaction %s rejected by node %s as addressed to another node: %s",
		e.TransactionId,
		e.Node,
		e.Status,
	)
}

// PrecheckRejectionError is a business-level rejection at precheck. The same signed
// bytes would be rejected again, so it is never retried
type PrecheckRejectionError struct {
	Node          ledger.AccountId
	TransactionId ledger.TransactionId
	Status        Status
}

func (e PrecheckRejectionError) Error() string {
	if e.TransactionId.IsZero() {
		return fmt.Sprintf("precheck failed on node %s: %s", e.Node, e.Status)
	}
	return fmt.Sprintf(
		"transaction %s failed precheck on node %s: %s",
		e.TransactionId,
		e.Node,
		e.Status,
	)
}

// ConsensusFailureError means consensus was reached but the transaction did not apply
type ConsensusFailureError struct {
	TransactionId ledger.TransactionId
	Status        Status
}

func (e ConsensusFailureError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.TransactionId, e.Status)
}

// ExpiredError means the transaction's validity window passed without it reaching consensus
type ExpiredError struct {
	TransactionId ledger.TransactionId
	Status        Status
}

func (e ExpiredError) Error() string {
	return fmt.Sprintf("transaction %s expired: %s", e.TransactionId, e.Status)
}

// TimeoutError is returned when an overall deadline elapses. When OutcomeUnknown is set
// the transaction may or may not have been applied, and blindly resubmitting it is not safe
type TimeoutError struct {
	Op             string
	TransactionId  ledger.TransactionId
	OutcomeUnknown bool
	Err            error
}

func (e TimeoutError) Error() string {
	msg := e.Op + " timed out"
	if !e.TransactionId.IsZero() {
		msg += " for transaction " + e.TransactionId.String()
	}
	if e.OutcomeUnknown {
		msg += " (outcome unknown)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TimeoutError) Unwrap() error {
	return e.Err
}

// MaxAttemptsError is returned when the attempt budget was used up without an accepted
// response. Err holds the last observed failure
type MaxAttemptsError struct {
	Attempts int
	Err      error
}

func (e MaxAttemptsError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %s", e.Attempts, e.Err)
}

func (e MaxAttemptsError) Unwrap() error {
	return e.Err
}

// LastStatus returns the status code carried by the last observed failure, if any
func (e MaxAttemptsError) LastStatus() (Status, bool) {
	return StatusOf(e.Err)
}

// StatusOf extracts the status code carried by any error in the taxonomy
func StatusOf(err error) (Status, bool) {
	var busyErr NodeBusyError
	var mismatchErr NodeMismatchError
	var precheckErr PrecheckRejectionError
	var consensusErr ConsensusFailureError
	var expiredErr ExpiredError
	switch {
	case errors.As(err, &busyErr):
		return busyErr.Status, true
	case errors.As(err, &mismatchErr):
		return mismatchErr.Status, true
	case errors.As(err, &precheckErr):
		return precheckErr.Status, true
	case errors.As(err, &consensusErr):
		return consensusErr.Status, true
	case errors.As(err, &expiredErr):
		return expiredErr.Status, true
	}
	return 0, false
}

// IsOutcomeUnknown reports whether err means the transaction may or may not have been applied
func IsOutcomeUnknown(err error) bool {
	var timeoutErr TimeoutError
	return errors.As(err, &timeoutErr) && timeoutErr.OutcomeUnknown
}
