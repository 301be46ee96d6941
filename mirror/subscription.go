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

package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"github.com/google/uuid"
)

// Subscriber opens topic feeds. transport.NodeClient implements it
type Subscriber interface {
	Subscribe(ctx context.Context, address string, query *protocol.TopicQuery) (transport.TopicStream, error)
}

// Handler receives complete messages, in feed order
type Handler func(Message)

// ErrorHandler receives reports that do not end the subscription, such as assembly timeouts,
// and the error that ended it, if any
type ErrorHandler func(error)

var errLimitReached = errors.New("limit reached")

type event struct {
	msg *Message
	err error
}

type recvResult struct {
	resp *protocol.TopicResponse
	err  error
}

// Subscription is a live topic feed. Handlers are called from a single goroutine, never
// concurrently
type Subscription struct {
	id         string
	config     Config
	subscriber Subscriber
	addresses  []string
	topic      ledger.TopicId
	start      ledger.Timestamp
	handler    Handler
	errHandler ErrorHandler
	assembler  *Assembler
	logger     *slog.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	queue      chan event
	doneCh     chan struct{}
	delivered  uint64
	// Guards stopped, which dispatch checks before each handler call
	stopMutex sync.Mutex
	stopped   bool
	// Set by the feed goroutine before the queue is closed
	err       error
	completed bool
}

// Subscribe starts a subscription to topic from start, inclusive. A zero start means "from
// now", unless a cursor store holds a saved position. Mirror addresses are used in turn when
// reconnecting
func Subscribe(
	ctx context.Context,
	subscriber Subscriber,
	addresses []string,
	topic ledger.TopicId,
	start ledger.Timestamp,
	handler Handler,
	errHandler ErrorHandler,
	options ...ConfigOptionFunc,
) (*Subscription, error) {
	if len(addresses) == 0 {
		return nil, ErrNoMirrorAddress
	}
	if handler == nil {
		return nil, errors.New("no message handler")
	}
	config := NewConfig(options...)
	assembler, err := NewAssembler(options...)
	if err != nil {
		return nil, err
	}
	if config.CursorStore != nil && start.IsZero() {
		cursor, ok, err := config.CursorStore.Load(config.CursorKey)
		if err != nil {
			return nil, err
		}
		if ok {
			start = cursor.Start
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		id:         uuid.New().String(),
		config:     config,
		subscriber: subscriber,
		addresses:  addresses,
		topic:      topic,
		start:      start,
		handler:    handler,
		errHandler: errHandler,
		assembler:  assembler,
		ctx:        ctx,
		cancel:     cancel,
		queue:      make(chan event, config.QueueSize),
		doneCh:     make(chan struct{}),
	}
	s.logger = config.Logger.With(
		"component", "subscription",
		"subscription_id", s.id,
		"topic", topic.String(),
	)
	go s.run()
	go s.dispatch()
	return s, nil
}

func (s *Subscription) Id() string {
	return s.id
}

// Cancel stops the subscription and releases its connection. No handler call starts after
// Cancel returns. A call already in progress runs to completion, and Cancel may be called from
// inside a handler
func (s *Subscription) Cancel() {
	s.stopMutex.Lock()
	s.stopped = true
	s.stopMutex.Unlock()
	s.cancel()
}

// begin reports whether a handler call may start. It holds stopMutex only for the check, so
// that Cancel never waits on a running handler
func (s *Subscription) begin() bool {
	s.stopMutex.Lock()
	defer s.stopMutex.Unlock()
	return !s.stopped && s.ctx.Err() == nil
}

// Done returns a channel that is closed once the subscription has stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.doneCh
}

// Wait blocks until the subscription has stopped and returns the error that stopped it.
// Cancellation and normal completion return nil
func (s *Subscription) Wait() error {
	<-s.doneCh
	return s.err
}

// run owns the Assembler and drives it from one feed connection after another
func (s *Subscription) run() {
	defer close(s.queue)
	start := s.start
	failures := 0
	for attempt := 0; ; attempt++ {
		address := s.addresses[attempt%len(s.addresses)]
		progressed, err := s.consume(start, address)
		if s.ctx.Err() != nil {
			return
		}
		if err == nil || errors.Is(err, errLimitReached) {
			s.logger.Debug("subscription complete", "delivered", s.delivered)
			s.completed = true
			return
		}
		if progressed {
			failures = 0
		}
		if !transport.IsRetryableStreamError(err) {
			s.fail(err)
			return
		}
		failures++
		if s.config.MaxReconnectAttempts > 0 && failures > s.config.MaxReconnectAttempts {
			s.fail(fmt.Errorf("%w: %w", ErrReconnectsExhausted, err))
			return
		}
		if resume, ok := s.assembler.ResumeCursor(); ok {
			start = resume
		}
		// Chunks from the old connection are replayed by the new one
		s.assembler.Reset()
		delay := s.reconnectDelay(failures)
		s.logger.Warn(
			"feed disconnected, reconnecting",
			"address", address,
			"error", err,
			"resume", start.String(),
			"delay", delay,
		)
		if s.config.Observer != nil {
			s.config.Observer.ObserveAssembly("reconnect")
		}
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Subscription) reconnectDelay(failures int) time.Duration {
	delay := s.config.ReconnectBaseDelay
	for i := 1; i < failures && delay < s.config.ReconnectMaxDelay; i++ {
		delay *= 2
	}
	return min(delay, s.config.ReconnectMaxDelay)
}

// consume reads one feed connection until it fails or ends. progressed is set if any item
// was received
func (s *Subscription) consume(start ledger.Timestamp, address string) (bool, error) {
	connCtx, cancel := context.WithCancel(s.ctx)
	stream, err := s.subscriber.Subscribe(
		connCtx,
		address,
		&protocol.TopicQuery{
			TopicId: s.topic,
			Start:   start,
			End:     s.config.End,
		},
	)
	if err != nil {
		cancel()
		return false, err
	}
	items := make(chan recvResult)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			resp, err := stream.Recv()
			select {
			case items <- recvResult{resp: resp, err: err}:
			case <-connCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	defer func() {
		cancel()
		<-readerDone
	}()
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	progressed := false
	for {
		select {
		case <-connCtx.Done():
			return progressed, connCtx.Err()
		case now := <-ticker.C:
			for _, err := range s.assembler.Expire(now) {
				s.report(err)
			}
		case result := <-items:
			if result.err != nil {
				if errors.Is(result.err, io.EOF) {
					return progressed, nil
				}
				return progressed, result.err
			}
			progressed = true
			msg, err := s.assembler.Add(ItemFromResponse(result.resp), time.Now())
			if err != nil {
				s.report(err)
			}
			if msg == nil {
				continue
			}
			if !s.deliver(msg) {
				return progressed, s.ctx.Err()
			}
			s.saveCursor(msg)
			if s.config.Limit > 0 && s.delivered >= s.config.Limit {
				return progressed, errLimitReached
			}
		}
	}
}

// deliver queues a message for the handler, waiting while the queue is full
func (s *Subscription) deliver(msg *Message) bool {
	select {
	case s.queue <- event{msg: msg}:
		s.delivered++
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Subscription) report(err error) {
	select {
	case s.queue <- event{err: err}:
	case <-s.ctx.Done():
	}
}

func (s *Subscription) fail(err error) {
	s.logger.Error("subscription failed", "error", err)
	s.err = err
	s.report(err)
}

func (s *Subscription) saveCursor(msg *Message) {
	if s.config.CursorStore == nil {
		return
	}
	resume, _ := s.assembler.ResumeCursor()
	err := s.config.CursorStore.Save(
		s.config.CursorKey,
		Cursor{Start: resume, LastSequenceNumber: msg.SequenceNumber},
	)
	if err != nil {
		s.report(err)
	}
}

// dispatch calls the handlers for queued events
func (s *Subscription) dispatch() {
	defer close(s.doneCh)
	defer s.cancel()
	for ev := range s.queue {
		if !s.begin() {
			continue
		}
		if ev.err != nil {
			if s.errHandler != nil {
				s.errHandler(ev.err)
			}
			continue
		}
		s.handler(*ev.msg)
	}
	if s.completed && s.config.OnComplete != nil && s.begin() {
		s.config.OnComplete()
	}
}
