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

package mirror_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// feedSession scripts one connection: the items to send, then how it ends. A nil Err holds
// the connection open until the subscriber goes away
type feedSession struct {
	items []*protocol.TopicResponse
	err   error
}

type fakeStream struct {
	ctx     context.Context
	session feedSession
	idx     int
}

func (s *fakeStream) Recv() (*protocol.TopicResponse, error) {
	if s.idx < len(s.session.items) {
		item := s.session.items[s.idx]
		s.idx++
		return item, nil
	}
	if s.session.err != nil {
		return nil, s.session.err
	}
	<-s.ctx.Done()
	return nil, status.FromContextError(s.ctx.Err()).Err()
}

type fakeSubscriber struct {
	mutex     sync.Mutex
	sessions  []feedSession
	queries   []*protocol.TopicQuery
	addresses []string
}

func (f *fakeSubscriber) Subscribe(
	ctx context.Context,
	address string,
	query *protocol.TopicQuery,
) (transport.TopicStream, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.queries = append(f.queries, query)
	f.addresses = append(f.addresses, address)
	session := feedSession{}
	if len(f.sessions) > 0 {
		session = f.sessions[0]
		f.sessions = f.sessions[1:]
	}
	return &fakeStream{ctx: ctx, session: session}, nil
}

func (f *fakeSubscriber) Queries() []*protocol.TopicQuery {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]*protocol.TopicQuery(nil), f.queries...)
}

func singleResponse(n int, payload string) *protocol.TopicResponse {
	return &protocol.TopicResponse{
		ConsensusTimestamp: ts(n),
		SequenceNumber:     uint64(n),
		Message:            []byte(payload),
	}
}

func chunkResponse(n int, initialId ledger.TransactionId, number int32, total int32, payload string) *protocol.TopicResponse {
	return &protocol.TopicResponse{
		ConsensusTimestamp: ts(n),
		SequenceNumber:     uint64(n),
		Message:            []byte(payload),
		ChunkInfo: &protocol.ChunkInfo{
			InitialTransactionId: initialId,
			Total:                total,
			Number:               number,
		},
	}
}

// messageCollector gathers messages and errors from handlers
type messageCollector struct {
	mutex    sync.Mutex
	messages []mirror.Message
	errs     []error
	notify   chan struct{}
}

func newMessageCollector() *messageCollector {
	return &messageCollector{notify: make(chan struct{}, 100)}
}

func (c *messageCollector) handle(msg mirror.Message) {
	c.mutex.Lock()
	c.messages = append(c.messages, msg)
	c.mutex.Unlock()
	c.notify <- struct{}{}
}

func (c *messageCollector) handleError(err error) {
	c.mutex.Lock()
	c.errs = append(c.errs, err)
	c.mutex.Unlock()
	c.notify <- struct{}{}
}

func (c *messageCollector) contents() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	ret := make([]string, 0, len(c.messages))
	for _, msg := range c.messages {
		ret = append(ret, string(msg.Contents))
	}
	return ret
}

func (c *messageCollector) errors() []error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return append([]error(nil), c.errs...)
}

// waitFor waits until the collector holds count messages
func (c *messageCollector) waitFor(t *testing.T, count int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if len(c.contents()) >= count {
			return
		}
		select {
		case <-c.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d messages, got %d", count, len(c.contents()))
		}
	}
}

func subscribeTest(
	t *testing.T,
	subscriber mirror.Subscriber,
	collector *messageCollector,
	start ledger.Timestamp,
	opts ...mirror.ConfigOptionFunc,
) *mirror.Subscription {
	t.Helper()
	opts = append(
		[]mirror.ConfigOptionFunc{
			mirror.WithLogger(discardLogger),
			mirror.WithReconnectBackoff(time.Millisecond, 5*time.Millisecond),
		},
		opts...,
	)
	sub, err := mirror.Subscribe(
		context.Background(),
		subscriber,
		[]string{"10.0.0.1:5600", "10.0.0.2:5600"},
		topic,
		start,
		collector.handle,
		collector.handleError,
		opts...,
	)
	require.NoError(t, err)
	return sub
}

func TestSubscriptionDelivers(t *testing.T) {
	defer goleak.VerifyNone(t)
	initialId := ledger.NewTransactionId(payer)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{
				items: []*protocol.TopicResponse{
					singleResponse(1, "one"),
					chunkResponse(2, initialId, 2, 2, "-b"),
					chunkResponse(3, initialId, 1, 2, "two-a"),
					singleResponse(4, "three"),
				},
				err: io.EOF,
			},
		},
	}
	collector := newMessageCollector()
	completed := make(chan struct{})
	sub := subscribeTest(t, subscriber, collector, ts(1), mirror.WithOnComplete(func() { close(completed) }))
	require.NoError(t, sub.Wait())
	assert.Equal(t, []string{"one", "two-a-b", "three"}, collector.contents())
	assert.NotEmpty(t, sub.Id())
	select {
	case <-completed:
	default:
		t.Fatalf("completion handler not called")
	}
	queries := subscriber.Queries()
	require.Len(t, queries, 1)
	assert.Equal(t, topic, queries[0].TopicId)
	assert.Equal(t, ts(1), queries[0].Start)
}

// The feed drops after K1 and halfway through K2. K2 is rebuilt from the replayed chunks and
// K1 is not delivered twice
func TestSubscriptionReconnect(t *testing.T) {
	defer goleak.VerifyNone(t)
	k1 := ledger.NewTransactionId(payer)
	k2 := ledger.NewTransactionId(payer)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{
				items: []*protocol.TopicResponse{
					chunkResponse(1, k1, 1, 2, "k1a"),
					chunkResponse(2, k1, 2, 2, "k1b"),
					chunkResponse(3, k2, 1, 3, "k2a"),
					chunkResponse(4, k2, 2, 3, "k2b"),
				},
				err: status.Error(codes.Unavailable, "connection reset"),
			},
			{
				items: []*protocol.TopicResponse{
					chunkResponse(2, k1, 2, 2, "k1b"),
					chunkResponse(3, k2, 1, 3, "k2a"),
					chunkResponse(4, k2, 2, 3, "k2b"),
					chunkResponse(5, k2, 3, 3, "k2c"),
				},
				err: io.EOF,
			},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ts(1))
	require.NoError(t, sub.Wait())
	assert.Equal(t, []string{"k1ak1b", "k2ak2bk2c"}, collector.contents())
	queries := subscriber.Queries()
	require.Len(t, queries, 2)
	// Resumes right after K1, which covers the start of K2
	assert.Equal(t, ts(2).Next(), queries[1].Start)
	assert.Equal(t, []string{"10.0.0.1:5600", "10.0.0.2:5600"}, subscriber.addresses)
	assert.Empty(t, collector.errors())
}

func TestSubscriptionLimit(t *testing.T) {
	defer goleak.VerifyNone(t)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{
				items: []*protocol.TopicResponse{
					singleResponse(1, "one"),
					singleResponse(2, "two"),
					singleResponse(3, "three"),
				},
			},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ledger.Timestamp{}, mirror.WithLimit(2))
	require.NoError(t, sub.Wait())
	assert.Equal(t, []string{"one", "two"}, collector.contents())
}

func TestSubscriptionCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{items: []*protocol.TopicResponse{singleResponse(1, "one")}},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ledger.Timestamp{})
	collector.waitFor(t, 1)
	sub.Cancel()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("subscription did not stop")
	}
	require.NoError(t, sub.Wait())
	assert.Equal(t, []string{"one"}, collector.contents())
}

func TestSubscriptionCancelDuringHandler(t *testing.T) {
	defer goleak.VerifyNone(t)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{items: []*protocol.TopicResponse{
				singleResponse(1, "one"),
				singleResponse(2, "two"),
				singleResponse(3, "three"),
			}},
		},
	}
	var mutex sync.Mutex
	var calls []string
	started := make(chan struct{})
	release := make(chan struct{})
	handler := func(msg mirror.Message) {
		mutex.Lock()
		calls = append(calls, string(msg.Contents))
		first := len(calls) == 1
		mutex.Unlock()
		if first {
			close(started)
			<-release
		}
	}
	sub, err := mirror.Subscribe(
		context.Background(),
		subscriber,
		[]string{"10.0.0.1:5600"},
		topic,
		ledger.Timestamp{},
		handler,
		nil,
		mirror.WithLogger(discardLogger),
	)
	require.NoError(t, err)
	<-started
	// Returns while the first handler call is still running
	sub.Cancel()
	close(release)
	require.NoError(t, sub.Wait())
	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, []string{"one"}, calls)
}

func TestSubscriptionCancelFromHandler(t *testing.T) {
	defer goleak.VerifyNone(t)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{items: []*protocol.TopicResponse{
				singleResponse(1, "one"),
				singleResponse(2, "two"),
			}},
		},
	}
	subCh := make(chan *mirror.Subscription, 1)
	var calls int
	handler := func(msg mirror.Message) {
		calls++
		(<-subCh).Cancel()
	}
	sub, err := mirror.Subscribe(
		context.Background(),
		subscriber,
		[]string{"10.0.0.1:5600"},
		topic,
		ledger.Timestamp{},
		handler,
		nil,
		mirror.WithLogger(discardLogger),
	)
	require.NoError(t, err)
	subCh <- sub
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("subscription did not stop")
	}
	assert.Equal(t, 1, calls)
}

func TestSubscriptionFatalError(t *testing.T) {
	defer goleak.VerifyNone(t)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{err: status.Error(codes.InvalidArgument, "bad topic")},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ledger.Timestamp{})
	err := sub.Wait()
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Len(t, collector.errors(), 1)
	assert.Len(t, subscriber.Queries(), 1)
}

func TestSubscriptionReconnectsExhausted(t *testing.T) {
	defer goleak.VerifyNone(t)
	unavailable := feedSession{err: status.Error(codes.Unavailable, "down")}
	subscriber := &fakeSubscriber{
		sessions: []feedSession{unavailable, unavailable, unavailable, unavailable},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ledger.Timestamp{}, mirror.WithMaxReconnectAttempts(2))
	err := sub.Wait()
	require.ErrorIs(t, err, mirror.ErrReconnectsExhausted)
	assert.Len(t, subscriber.Queries(), 3)
}

func TestSubscriptionIdleAssemblyReported(t *testing.T) {
	defer goleak.VerifyNone(t)
	initialId := ledger.NewTransactionId(payer)
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{items: []*protocol.TopicResponse{chunkResponse(1, initialId, 1, 2, "half")}},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(
		t,
		subscriber,
		collector,
		ledger.Timestamp{},
		mirror.WithIdleTimeout(20*time.Millisecond),
		mirror.WithSweepInterval(5*time.Millisecond),
	)
	deadline := time.After(5 * time.Second)
	for len(collector.errors()) == 0 {
		select {
		case <-collector.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for assembly timeout")
		}
	}
	sub.Cancel()
	require.NoError(t, sub.Wait())
	var timeoutErr mirror.AssemblyTimeoutError
	require.ErrorAs(t, collector.errors()[0], &timeoutErr)
	assert.Equal(t, initialId, timeoutErr.Key.InitialTransactionId)
	assert.Empty(t, collector.contents())
}

// A slow handler fills the queue, which pauses reading instead of buffering without bound
func TestSubscriptionBackpressure(t *testing.T) {
	defer goleak.VerifyNone(t)
	items := make([]*protocol.TopicResponse, 0, 10)
	for i := range 10 {
		items = append(items, singleResponse(i+1, "m"))
	}
	subscriber := &fakeSubscriber{sessions: []feedSession{{items: items, err: io.EOF}}}
	release := make(chan struct{})
	var mutex sync.Mutex
	handled := 0
	sub, err := mirror.Subscribe(
		context.Background(),
		subscriber,
		[]string{"10.0.0.1:5600"},
		topic,
		ledger.Timestamp{},
		func(mirror.Message) {
			<-release
			mutex.Lock()
			handled++
			mutex.Unlock()
		},
		nil,
		mirror.WithQueueSize(2),
		mirror.WithLogger(discardLogger),
	)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	select {
	case <-sub.Done():
		t.Fatalf("subscription finished while the handler was blocked")
	default:
	}
	close(release)
	require.NoError(t, sub.Wait())
	mutex.Lock()
	defer mutex.Unlock()
	assert.Equal(t, 10, handled)
}

func TestSubscriptionCursorStore(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := mirror.NewMemoryCursorStore()
	require.NoError(t, store.Save("watch", mirror.Cursor{Start: ts(5)}))
	subscriber := &fakeSubscriber{
		sessions: []feedSession{
			{items: []*protocol.TopicResponse{singleResponse(5, "five"), singleResponse(6, "six")}, err: io.EOF},
		},
	}
	collector := newMessageCollector()
	sub := subscribeTest(t, subscriber, collector, ledger.Timestamp{}, mirror.WithCursorStore(store, "watch"))
	require.NoError(t, sub.Wait())
	assert.Equal(t, ts(5), subscriber.Queries()[0].Start)
	cursor, ok, err := store.Load("watch")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ts(6).Next(), cursor.Start)
	assert.Equal(t, uint64(6), cursor.LastSequenceNumber)
}

func TestSubscribeErrors(t *testing.T) {
	_, err := mirror.Subscribe(context.Background(), &fakeSubscriber{}, nil, topic, ledger.Timestamp{}, func(mirror.Message) {}, nil)
	require.ErrorIs(t, err, mirror.ErrNoMirrorAddress)
	_, err = mirror.Subscribe(context.Background(), &fakeSubscriber{}, []string{"a"}, topic, ledger.Timestamp{}, nil, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, mirror.ErrNoMirrorAddress))
}
