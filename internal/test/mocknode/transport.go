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

package mocknode

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/transport"
	"google.golang.org/grpc/status"
)

var ErrConversationExhausted = errors.New("mock conversation has no more entries")

// Call records one request seen by the mock
type Call struct {
	Node    ledger.AccountId
	Method  string
	Request any
	At      time.Time
}

// conversation hands out scripted entries in order and records every call
type conversation struct {
	mutex   sync.Mutex
	entries []ConversationEntry
	calls   []Call
}

func (c *conversation) next(node ledger.AccountId, method string, req any) (ConversationEntry, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls = append(c.calls, Call{Node: node, Method: method, Request: req, At: time.Now()})
	if len(c.entries) == 0 {
		return ConversationEntry{}, ErrConversationExhausted
	}
	entry := c.entries[0]
	c.entries = c.entries[1:]
	if entry.Method != "" && entry.Method != method {
		return entry, fmt.Errorf(
			"call method did not match expected value: expected %s, got %s",
			entry.Method,
			method,
		)
	}
	if entry.Node != nil && *entry.Node != node {
		return entry, fmt.Errorf(
			"call node did not match expected value: expected %s, got %s",
			entry.Node,
			node,
		)
	}
	return entry, nil
}

func (c *conversation) Calls() []Call {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ret := make([]Call, len(c.calls))
	copy(ret, c.calls)
	return ret
}

func (c *conversation) CallCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.calls)
}

// Remaining returns the number of unused entries
func (c *conversation) Remaining() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// reply plays an entry, copying its response into resp through the wire codec
func reply(ctx context.Context, entry ConversationEntry, resp any) error {
	if entry.Delay > 0 {
		timer := time.NewTimer(entry.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-timer.C:
		}
	}
	switch entry.Type {
	case EntryTypeResponse:
		data, err := cbor.Encode(entry.Response)
		if err != nil {
			return err
		}
		if _, err := cbor.Decode(data, resp); err != nil {
			return err
		}
		return nil
	case EntryTypeError:
		return entry.Err
	case EntryTypeHang:
		<-ctx.Done()
		return status.FromContextError(ctx.Err()).Err()
	default:
		return fmt.Errorf("unknown conversation entry type: %d", entry.Type)
	}
}

// Transport is an in-process transport that replies with a scripted conversation
type Transport struct {
	conversation
}

// NewTransport returns a Transport with the provided conversation entries
func NewTransport(entries ...ConversationEntry) *Transport {
	return &Transport{
		conversation: conversation{entries: entries},
	}
}

func (t *Transport) Invoke(
	ctx context.Context,
	node network.NodeEndpoint,
	method string,
	req any,
	resp any,
) error {
	entry, err := t.next(node.Node, method, req)
	if err != nil {
		return err
	}
	if err := reply(ctx, entry, resp); err != nil {
		return transport.ClassifyError(node.Node, err)
	}
	return nil
}
