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

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
)

// Class is the classification of a node's response to one attempt
type Class uint8

const (
	// The node took the request
	ClassAccepted Class = iota
	// The node could not take the request right now. Try again, possibly elsewhere
	ClassRetry
	// The request was addressed to a node that does not accept it
	ClassNodeMismatch
	// Business-level rejection. Sending the same request again would fail the same way
	ClassRejected
	// The request's validity window has passed
	ClassExpired
)

func (c Class) String() string {
	tmp := map[Class]string{
		ClassAccepted:     "Accepted",
		ClassRetry:        "Retry",
		ClassNodeMismatch: "NodeMismatch",
		ClassRejected:     "Rejected",
		ClassExpired:      "Expired",
	}
	ret, ok := tmp[c]
	if !ok {
		return "Unknown"
	}
	return ret
}

// Executable is implemented by each kind of request the Engine can drive. Transactions and
// queries differ only in how requests are built and responses classified
type Executable interface {
	// Kind names the request for logs and metrics
	Kind() string
	// Method is the transport method to invoke
	Method() string
	// Nodes returns the nodes the request may currently be sent to. nil means any node
	Nodes() []ledger.AccountId
	// BuildRequest returns the request to send to node
	BuildRequest(node network.NodeEndpoint) (any, error)
	// NewResponse returns an empty response for the transport to decode into
	NewResponse() any
	// ClassifyResponse classifies a decoded response. The returned error describes any
	// non-accepted outcome
	ClassifyResponse(node network.NodeEndpoint, resp any) (Class, error)
	// IsRetryable reports whether a transport error should be retried
	IsRetryable(err error) bool
	// Retarget is called after a node mismatch. It reports whether the request can still
	// be sent to a different node
	Retarget(failed ledger.AccountId) bool
}

// Transport sends one request to one node
type Transport interface {
	Invoke(ctx context.Context, node network.NodeEndpoint, method string, req any, resp any) error
}
