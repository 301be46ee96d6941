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
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
)

// NodeHealth is a point-in-time snapshot of a node's health state
type NodeHealth struct {
	Failures       int
	UnhealthyUntil time.Time
	LastUsed       time.Time
	LastFailure    time.Time
	Fatal          bool
}

// Healthy reports whether the node is outside its backoff window at the given time
func (h NodeHealth) Healthy(now time.Time) bool {
	return !h.UnhealthyUntil.After(now)
}

type nodeState struct {
	endpoint NodeEndpoint
	mutex    sync.Mutex
	health   NodeHealth
}

func (n *nodeState) snapshot() NodeHealth {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.health
}

// Registry holds the known nodes and their health. The set of nodes is fixed at
// construction, and each node's health has its own lock, so concurrent operations only
// contend when they touch the same node
type Registry struct {
	config Config
	nodes  map[ledger.AccountId]*nodeState
	order  []*nodeState
}

// NewRegistry returns a Registry for the provided endpoints
func NewRegistry(endpoints []NodeEndpoint, options ...ConfigOptionFunc) (*Registry, error) {
	if len(endpoints) == 0 {
		return nil, protocol.ErrNoNodes
	}
	r := &Registry{
		config: NewConfig(options...),
		nodes:  make(map[ledger.AccountId]*nodeState, len(endpoints)),
	}
	for _, endpoint := range endpoints {
		if _, ok := r.nodes[endpoint.Node]; ok {
			return nil, fmt.Errorf("duplicate node %s in endpoint list", endpoint.Node)
		}
		state := &nodeState{endpoint: endpoint}
		r.nodes[endpoint.Node] = state
		r.order = append(r.order, state)
	}
	return r, nil
}

// Endpoints returns all known endpoints in construction order
func (r *Registry) Endpoints() []NodeEndpoint {
	ret := make([]NodeEndpoint, 0, len(r.order))
	for _, state := range r.order {
		ret = append(ret, state.endpoint)
	}
	return ret
}

// Endpoint returns the endpoint for a node id
func (r *Registry) Endpoint(node ledger.AccountId) (NodeEndpoint, bool) {
	state, ok := r.nodes[node]
	if !ok {
		return NodeEndpoint{}, false
	}
	return state.endpoint, true
}

// Health returns a snapshot of a node's health
func (r *Registry) Health(node ledger.AccountId) (NodeHealth, bool) {
	state, ok := r.nodes[node]
	if !ok {
		return NodeHealth{}, false
	}
	return state.snapshot(), true
}

// Healthy reports whether a known node is outside its backoff window
func (r *Registry) Healthy(node ledger.AccountId) bool {
	state, ok := r.nodes[node]
	if !ok {
		return false
	}
	return state.snapshot().Healthy(r.config.now())
}

// ReadyAt returns the time at which the node's backoff window ends. A zero or past time
// means it can be used now
func (r *Registry) ReadyAt(node ledger.AccountId) time.Time {
	state, ok := r.nodes[node]
	if !ok {
		return time.Time{}
	}
	return state.snapshot().UnhealthyUntil
}

// ReadyIn returns how long until the node's backoff window ends, measured on the registry's
// clock. It is zero for a node that can be used now
func (r *Registry) ReadyIn(node ledger.AccountId) time.Duration {
	state, ok := r.nodes[node]
	if !ok {
		return 0
	}
	return max(state.snapshot().UnhealthyUntil.Sub(r.config.now()), 0)
}

type rankedNode struct {
	state  *nodeState
	health NodeHealth
}

// Rank returns the candidates not in excluding, most preferred first. Healthy nodes come
// first, ordered by failure count and then by how long ago their backoff ended. Nodes still
// in backoff follow, ordered by when their backoff ends. Equal nodes are in random order.
// A nil candidates list means every known node
func (r *Registry) Rank(candidates []ledger.AccountId, excluding NodeSet) []NodeEndpoint {
	ranked := r.rank(candidates, excluding)
	ret := make([]NodeEndpoint, 0, len(ranked))
	for _, node := range ranked {
		ret = append(ret, node.state.endpoint)
	}
	return ret
}

func (r *Registry) rank(candidates []ledger.AccountId, excluding NodeSet) []rankedNode {
	now := r.config.now()
	var states []*nodeState
	if candidates == nil {
		states = r.order
	} else {
		for _, node := range candidates {
			if state, ok := r.nodes[node]; ok {
				states = append(states, state)
			}
		}
	}
	ret := make([]rankedNode, 0, len(states))
	for _, state := range states {
		if excluding.Has(state.endpoint.Node) {
			continue
		}
		ret = append(ret, rankedNode{state: state, health: state.snapshot()})
	}
	// Shuffle first so that the stable sort leaves ties in random order
	rand.Shuffle(len(ret), func(i, j int) {
		ret[i], ret[j] = ret[j], ret[i]
	})
	sort.SliceStable(ret, func(i, j int) bool {
		a, b := ret[i].health, ret[j].health
		aHealthy, bHealthy := a.Healthy(now), b.Healthy(now)
		if aHealthy != bHealthy {
			return aHealthy
		}
		if aHealthy && a.Failures != b.Failures {
			return a.Failures < b.Failures
		}
		return a.UnhealthyUntil.Before(b.UnhealthyUntil)
	})
	return ret
}

// Select returns the most preferred node not in excluding. If every candidate is in its
// backoff window, the one whose window ends first is returned rather than blocking, and the
// caller is expected to wait out ReadyIn
func (r *Registry) Select(excluding NodeSet) (NodeEndpoint, error) {
	return r.SelectFrom(nil, excluding)
}

// SelectFrom is like Select, but only considers the provided candidates
func (r *Registry) SelectFrom(candidates []ledger.AccountId, excluding NodeSet) (NodeEndpoint, error) {
	ranked := r.rank(candidates, excluding)
	if len(ranked) == 0 {
		return NodeEndpoint{}, protocol.ErrNoNodes
	}
	selected := ranked[0].state
	selected.mutex.Lock()
	selected.health.LastUsed = r.config.now()
	selected.mutex.Unlock()
	return selected.endpoint, nil
}

// RecordOutcome updates a node's health after an attempt
func (r *Registry) RecordOutcome(node ledger.AccountId, outcome Outcome) {
	state, ok := r.nodes[node]
	if !ok {
		return
	}
	now := r.config.now()
	var backoff time.Duration
	state.mutex.Lock()
	switch outcome {
	case OutcomeSuccess:
		state.health.Failures = 0
		state.health.UnhealthyUntil = time.Time{}
		state.health.Fatal = false
	case OutcomeTransientFailure:
		backoff = r.backoff(state.health.Failures)
		state.health.Failures++
		state.health.LastFailure = now
		// Don't shorten an existing fatal cooldown
		if until := now.Add(backoff); until.After(state.health.UnhealthyUntil) {
			state.health.UnhealthyUntil = until
		}
	case OutcomeFatalFailure:
		backoff = r.config.FatalCooldown
		state.health.Failures++
		state.health.LastFailure = now
		state.health.UnhealthyUntil = now.Add(backoff)
		state.health.Fatal = true
	}
	failures := state.health.Failures
	state.mutex.Unlock()
	if outcome != OutcomeSuccess {
		r.config.Logger.Warn(
			"node marked unhealthy",
			"component", "network",
			"node", node.String(),
			"outcome", outcome.String(),
			"failures", failures,
			"backoff", backoff,
		)
	}
	if r.config.Observer != nil {
		r.config.Observer.ObserveNodeOutcome(node.String(), outcome.String(), failures, backoff)
	}
}

// backoff returns the delay for a node that has already failed the given number of times:
// base * 2^failures, capped at the max delay, then stretched or shrunk by up to the jitter fraction
func (r *Registry) backoff(failures int) time.Duration {
	delay := r.config.BaseDelay
	for range failures {
		delay *= 2
		if delay >= r.config.MaxDelay {
			break
		}
	}
	delay = min(delay, r.config.MaxDelay)
	if r.config.Jitter > 0 {
		factor := 1 + r.config.Jitter*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * factor)
	}
	return delay
}
