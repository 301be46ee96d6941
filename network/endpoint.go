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

package network

import (
	"net"
	"strconv"

	"github.com/blinklabs-io/gohiero/ledger"
)

// NodeEndpoint is a network node that accepts transactions and answers queries
type NodeEndpoint struct {
	Node    ledger.AccountId `json:"nodeAccountId"`
	Address string           `json:"address"`
	Port    uint             `json:"port"`
}

// HostPort returns the dialable "address:port" form
func (e NodeEndpoint) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.FormatUint(uint64(e.Port), 10))
}

func (e NodeEndpoint) String() string {
	return e.Node.String() + "@" + e.HostPort()
}

// NodeSet is a set of node ids
type NodeSet map[ledger.AccountId]struct{}

func NewNodeSet(nodes ...ledger.AccountId) NodeSet {
	ret := make(NodeSet, len(nodes))
	for _, node := range nodes {
		ret[node] = struct{}{}
	}
	return ret
}

func (s NodeSet) Add(node ledger.AccountId) {
	s[node] = struct{}{}
}

func (s NodeSet) Has(node ledger.AccountId) bool {
	_, ok := s[node]
	return ok
}

// Outcome is the result of one attempt against a node, as reported to the Registry
type Outcome uint8

const (
	OutcomeSuccess Outcome = iota
	// The node could not serve the request right now
	OutcomeTransientFailure
	// The node will not serve this submitter, e.g. it rejected the node account
	OutcomeFatalFailure
)

func (o Outcome) String() string {
	tmp := map[Outcome]string{
		OutcomeSuccess:          "Success",
		OutcomeTransientFailure: "TransientFailure",
		OutcomeFatalFailure:     "FatalFailure",
	}
	ret, ok := tmp[o]
	if !ok {
		return "Unknown"
	}
	return ret
}
