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

package engine_test

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/blinklabs-io/gohiero/engine"
	"github.com/blinklabs-io/gohiero/internal/test"
	"github.com/blinklabs-io/gohiero/internal/test/mocknode"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// testExec submits an opaque request and classifies precheck codes
type testExec struct {
	nodes      []ledger.AccountId
	targetable bool
	retargets  int
}

func (e *testExec) Kind() string   { return "test" }
func (e *testExec) Method() string { return transport.MethodSubmitTransaction }

func (e *testExec) Nodes() []ledger.AccountId {
	return e.nodes
}

func (e *testExec) BuildRequest(node network.NodeEndpoint) (any, error) {
	return &protocol.TransactionRequest{SignedTransactionBytes: []byte(node.Node.String())}, nil
}

func (e *testExec) NewResponse() any {
	return new(protocol.TransactionResponse)
}

func (e *testExec) ClassifyResponse(node network.NodeEndpoint, resp any) (engine.Class, error) {
	precheck := resp.(*protocol.TransactionResponse).Precheck
	switch {
	case precheck.IsAccepted():
		return engine.ClassAccepted, nil
	case precheck.IsRetryablePrecheck():
		return engine.ClassRetry, protocol.NodeBusyError{Node: node.Node, Status: precheck}
	case precheck.IsNodeMismatch():
		return engine.ClassNodeMismatch, protocol.NodeMismatchError{Node: node.Node, Status: precheck}
	case precheck.IsExpired():
		return engine.ClassExpired, protocol.ExpiredError{Status: precheck}
	}
	return engine.ClassRejected, protocol.PrecheckRejectionError{Node: node.Node, Status: precheck}
}

func (e *testExec) IsRetryable(err error) bool {
	return transport.IsRetryable(err)
}

func (e *testExec) Retarget(failed ledger.AccountId) bool {
	if !e.targetable {
		return false
	}
	e.retargets++
	return true
}

func newTestEngine(
	t *testing.T,
	nodeCount int,
	mock engine.Transport,
	registryOpts []network.ConfigOptionFunc,
	opts ...engine.ConfigOptionFunc,
) (*engine.Engine, *network.Registry) {
	t.Helper()
	registryOpts = append(
		[]network.ConfigOptionFunc{
			network.WithBaseDelay(time.Millisecond),
			network.WithMaxDelay(5 * time.Millisecond),
			network.WithLogger(discardLogger),
		},
		registryOpts...,
	)
	registry, err := network.NewRegistry(test.NodeEndpoints(nodeCount), registryOpts...)
	require.NoError(t, err)
	opts = append([]engine.ConfigOptionFunc{engine.WithLogger(discardLogger)}, opts...)
	return engine.New(registry, mock, opts...), registry
}

func TestClassString(t *testing.T) {
	testDefs := map[engine.Class]string{
		engine.ClassAccepted:     "Accepted",
		engine.ClassRetry:        "Retry",
		engine.ClassNodeMismatch: "NodeMismatch",
		engine.ClassRejected:     "Rejected",
		engine.ClassExpired:      "Expired",
		engine.Class(99):         "Unknown",
	}
	for k, v := range testDefs {
		if k.String() != v {
			t.Fatalf("did not get expected string for ID %d: got %s, expected %s", k, k.String(), v)
		}
	}
}

// Busy, busy, accepted across three nodes
func TestExecuteBusyThenAccepted(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(t, 3, mock, nil)
	result, err := eng.Execute(context.Background(), &testExec{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, mock.CallCount())
	seen := network.NewNodeSet()
	for _, call := range mock.Calls() {
		assert.False(t, seen.Has(call.Node), "node %s tried twice in one round", call.Node)
		seen.Add(call.Node)
	}
	assert.Equal(t, result.Node.Node, mock.Calls()[2].Node)
	assert.Equal(t, protocol.StatusOk, result.Response.(*protocol.TransactionResponse).Precheck)
}

// A business rejection is returned after exactly one transmission
func TestExecutePrecheckRejection(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmit(protocol.StatusInsufficientPayerBalance),
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(t, 3, mock, nil)
	_, err := eng.Execute(context.Background(), &testExec{})
	var precheckErr protocol.PrecheckRejectionError
	require.ErrorAs(t, err, &precheckErr)
	assert.Equal(t, protocol.StatusInsufficientPayerBalance, precheckErr.Status)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteExpired(t *testing.T) {
	mock := mocknode.NewTransport(mocknode.ConversationEntrySubmit(protocol.StatusTransactionExpired))
	eng, _ := newTestEngine(t, 2, mock, nil)
	_, err := eng.Execute(context.Background(), &testExec{})
	var expiredErr protocol.ExpiredError
	require.ErrorAs(t, err, &expiredErr)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteMaxAttempts(t *testing.T) {
	defer goleak.VerifyNone(t)
	entries := make([]mocknode.ConversationEntry, 0, 10)
	for range 10 {
		entries = append(entries, mocknode.ConversationEntrySubmitBusy)
	}
	mock := mocknode.NewTransport(entries...)
	eng, _ := newTestEngine(t, 2, mock, nil, engine.WithMaxAttempts(4))
	_, err := eng.Execute(context.Background(), &testExec{})
	var maxErr protocol.MaxAttemptsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 4, maxErr.Attempts)
	lastStatus, ok := maxErr.LastStatus()
	require.True(t, ok)
	assert.Equal(t, protocol.StatusBusy, lastStatus)
	assert.Equal(t, 4, mock.CallCount())
}

func TestExecuteZeroMaxAttemptsUsesDefault(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(t, 2, mock, nil, engine.WithMaxAttempts(0))
	result, err := eng.Execute(context.Background(), &testExec{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, mock.CallCount())
}

// The backoff wait follows the registry clock, not the wall clock
func TestExecuteBackoffUsesRegistryClock(t *testing.T) {
	defer goleak.VerifyNone(t)
	future := time.Now().Add(time.Hour)
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(
		t,
		1,
		mock,
		[]network.ConfigOptionFunc{
			network.WithClock(func() time.Time { return future }),
			network.WithBaseDelay(20 * time.Millisecond),
			network.WithMaxDelay(time.Second),
			network.WithJitter(0),
		},
		engine.WithTimeout(5*time.Second),
	)
	start := time.Now()
	result, err := eng.Execute(context.Background(), &testExec{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestExecuteTransportErrorRetried(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntryUnavailable,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, registry := newTestEngine(t, 2, mock, nil)
	result, err := eng.Execute(context.Background(), &testExec{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	calls := mock.Calls()
	assert.NotEqual(t, calls[0].Node, calls[1].Node)
	health, _ := registry.Health(calls[0].Node)
	assert.Equal(t, 1, health.Failures)
}

func TestExecuteNonRetryableTransportError(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntry{
			Type: mocknode.EntryTypeError,
			Err:  status.Error(codes.InvalidArgument, "malformed"),
		},
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(t, 2, mock, nil)
	_, err := eng.Execute(context.Background(), &testExec{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteNodeMismatchNotTargetable(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitInvalidNode,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, registry := newTestEngine(t, 3, mock, nil)
	_, err := eng.Execute(context.Background(), &testExec{})
	var mismatchErr protocol.NodeMismatchError
	require.ErrorAs(t, err, &mismatchErr)
	var precheckErr protocol.PrecheckRejectionError
	assert.NotErrorAs(t, err, &precheckErr)
	assert.Equal(t, 1, mock.CallCount())
	health, _ := registry.Health(mismatchErr.Node)
	assert.True(t, health.Fatal)
}

func TestExecuteNodeMismatchRetargeted(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitInvalidNode,
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitAccepted,
	)
	exec := &testExec{targetable: true}
	eng, _ := newTestEngine(t, 3, mock, nil)
	result, err := eng.Execute(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.retargets)
	calls := mock.Calls()
	require.Len(t, calls, 4)
	// The mismatched node stays out, even after the round resets
	for _, call := range calls[1:] {
		assert.NotEqual(t, calls[0].Node, call.Node)
	}
	assert.NotEqual(t, calls[0].Node, result.Node.Node)
}

func TestExecuteNodeMismatchAllDesignatedNodes(t *testing.T) {
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitInvalidNode,
		mocknode.ConversationEntrySubmitInvalidNode,
	)
	exec := &testExec{
		targetable: true,
		nodes:      []ledger.AccountId{ledger.NewAccountId(0, 0, 3), ledger.NewAccountId(0, 0, 4)},
	}
	eng, _ := newTestEngine(t, 3, mock, nil)
	_, err := eng.Execute(context.Background(), exec)
	var mismatchErr protocol.NodeMismatchError
	require.ErrorAs(t, err, &mismatchErr)
	assert.Equal(t, 2, mock.CallCount())
}

func TestExecuteDeadlineDuringCall(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock := mocknode.NewTransport(mocknode.ConversationEntryHang)
	eng, _ := newTestEngine(
		t,
		1,
		mock,
		nil,
		engine.WithTimeout(100*time.Millisecond),
		engine.WithRequestTimeout(5*time.Second),
	)
	start := time.Now()
	_, err := eng.Execute(context.Background(), &testExec{})
	elapsed := time.Since(start)
	var timeoutErr protocol.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.True(t, timeoutErr.OutcomeUnknown)
	assert.Less(t, elapsed, time.Second)
}

func TestExecuteDeadlineDuringBackoff(t *testing.T) {
	defer goleak.VerifyNone(t)
	mock := mocknode.NewTransport(
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntrySubmitAccepted,
	)
	eng, _ := newTestEngine(
		t,
		1,
		mock,
		[]network.ConfigOptionFunc{
			network.WithBaseDelay(10 * time.Second),
			network.WithMaxDelay(10 * time.Second),
		},
		engine.WithTimeout(100*time.Millisecond),
	)
	start := time.Now()
	_, err := eng.Execute(context.Background(), &testExec{})
	var timeoutErr protocol.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, mock.CallCount())
}

func TestExecuteCallerCancel(t *testing.T) {
	mock := mocknode.NewTransport(mocknode.ConversationEntryHang)
	eng, _ := newTestEngine(t, 1, mock, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := eng.Execute(ctx, &testExec{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, protocol.IsOutcomeUnknown(err))
}

// For any sequence of replies, transmissions never exceed the attempt budget
func TestExecuteNeverExceedsMaxAttempts(t *testing.T) {
	choices := []mocknode.ConversationEntry{
		mocknode.ConversationEntrySubmitBusy,
		mocknode.ConversationEntryUnavailable,
		mocknode.ConversationEntrySubmit(protocol.StatusPlatformNotActive),
		mocknode.ConversationEntrySubmitAccepted,
	}
	const maxAttempts = 5
	for range 50 {
		entries := make([]mocknode.ConversationEntry, 0, 20)
		for range 20 {
			entries = append(entries, choices[rand.IntN(len(choices))])
		}
		mock := mocknode.NewTransport(entries...)
		eng, _ := newTestEngine(t, 3, mock, nil, engine.WithMaxAttempts(maxAttempts))
		result, err := eng.Execute(context.Background(), &testExec{})
		assert.LessOrEqual(t, mock.CallCount(), maxAttempts)
		if err == nil {
			assert.LessOrEqual(t, result.Attempts, maxAttempts)
		} else {
			var maxErr protocol.MaxAttemptsError
			assert.ErrorAs(t, err, &maxErr)
			assert.Equal(t, maxAttempts, mock.CallCount())
		}
	}
}
