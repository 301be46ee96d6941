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
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	lru "github.com/hashicorp/golang-lru"
)

type pendingAssembly struct {
	key     ChunkKey
	chunks  map[int32]Item
	created time.Time
	updated time.Time
	// Earliest consensus timestamp among the received chunks
	earliest ledger.Timestamp
}

// Assembler rebuilds messages from feed items. It is not safe for concurrent use
type Assembler struct {
	config  Config
	logger  *slog.Logger
	pending map[ChunkKey]*pendingAssembly
	// Recently emitted messages, by ChunkKey for chunked messages and by consensus timestamp
	// for single ones
	emitted     *lru.Cache
	lastEmitted ledger.Timestamp
}

func NewAssembler(options ...ConfigOptionFunc) (*Assembler, error) {
	config := NewConfig(options...)
	emitted, err := lru.New(config.HistorySize)
	if err != nil {
		return nil, fmt.Errorf("failed to create emitted history: %w", err)
	}
	return &Assembler{
		config:  config,
		logger:  config.Logger.With("component", "assembler"),
		pending: make(map[ChunkKey]*pendingAssembly),
		emitted: emitted,
	}, nil
}

// Add feeds one item to the Assembler and returns the message it completes, if any. A
// non-nil error is a report for the error sink: the item may still have been accepted
func (a *Assembler) Add(item Item, now time.Time) (*Message, error) {
	if !item.chunked() {
		// The feed is ordered, so a single message at or before the last emitted one has
		// already been seen
		if a.emitted.Contains(item.ConsensusTimestamp) || !item.ConsensusTimestamp.After(a.lastEmitted) {
			a.observe("duplicate")
			return nil, nil
		}
		msg := &Message{
			ConsensusTimestamp: item.ConsensusTimestamp,
			SequenceNumber:     item.SequenceNumber,
			RunningHash:        item.RunningHash,
			Contents:           bytes.Clone(item.Payload),
			Chunks:             []Item{item},
		}
		a.emit(item.ConsensusTimestamp, msg)
		return msg, nil
	}
	info := item.ChunkInfo
	if info.Number < 1 || info.Number > info.Total {
		return nil, fmt.Errorf(
			"%w: number %d of %d at %s",
			ErrInvalidChunk,
			info.Number,
			info.Total,
			item.ConsensusTimestamp,
		)
	}
	key := ChunkKey{InitialTransactionId: info.InitialTransactionId, Total: info.Total}
	if a.emitted.Contains(key) {
		a.observe("duplicate")
		return nil, nil
	}
	var reportErr error
	assembly, ok := a.pending[key]
	if !ok {
		if len(a.pending) >= a.config.MaxPending {
			reportErr = a.dropOldest()
		}
		assembly = &pendingAssembly{
			key:      key,
			chunks:   make(map[int32]Item, info.Total),
			created:  now,
			earliest: item.ConsensusTimestamp,
		}
		a.pending[key] = assembly
	}
	assembly.updated = now
	if item.ConsensusTimestamp.Before(assembly.earliest) {
		assembly.earliest = item.ConsensusTimestamp
	}
	// Chunk numbers are 1-based on the wire
	index := info.Number - 1
	if _, ok := assembly.chunks[index]; !ok {
		assembly.chunks[index] = item
	}
	if len(assembly.chunks) < int(key.Total) {
		return nil, reportErr
	}
	delete(a.pending, key)
	msg := assemble(assembly)
	a.emit(key, msg)
	return msg, reportErr
}

func assemble(assembly *pendingAssembly) *Message {
	initialId := assembly.key.InitialTransactionId
	msg := &Message{
		TransactionId: &initialId,
		Chunks:        make([]Item, 0, len(assembly.chunks)),
	}
	for i := range assembly.key.Total {
		chunk := assembly.chunks[i]
		msg.Chunks = append(msg.Chunks, chunk)
		msg.Contents = append(msg.Contents, chunk.Payload...)
		if chunk.ConsensusTimestamp.After(msg.ConsensusTimestamp) {
			msg.ConsensusTimestamp = chunk.ConsensusTimestamp
			msg.SequenceNumber = chunk.SequenceNumber
			msg.RunningHash = chunk.RunningHash
		}
	}
	return msg
}

func (a *Assembler) emit(historyKey any, msg *Message) {
	a.emitted.Add(historyKey, struct{}{})
	if msg.ConsensusTimestamp.After(a.lastEmitted) {
		a.lastEmitted = msg.ConsensusTimestamp
	}
	a.observe("emitted")
}

// dropOldest discards the pending assembly that was started first
func (a *Assembler) dropOldest() error {
	var oldest *pendingAssembly
	for _, assembly := range a.pending {
		if oldest == nil || assembly.created.Before(oldest.created) {
			oldest = assembly
		}
	}
	if oldest == nil {
		return nil
	}
	delete(a.pending, oldest.key)
	a.logger.Warn(
		"dropping pending assembly",
		"transaction_id", oldest.key.InitialTransactionId.String(),
		"received", len(oldest.chunks),
		"total", oldest.key.Total,
	)
	a.observe("overflow")
	return AssemblyOverflowError{Key: oldest.key, Received: len(oldest.chunks)}
}

// Expire discards assemblies that have not received a chunk for longer than the idle
// timeout and returns an AssemblyTimeoutError for each, oldest first
func (a *Assembler) Expire(now time.Time) []error {
	var expired []*pendingAssembly
	for _, assembly := range a.pending {
		if now.Sub(assembly.updated) > a.config.IdleTimeout {
			expired = append(expired, assembly)
		}
	}
	slices.SortFunc(expired, func(x, y *pendingAssembly) int {
		return x.created.Compare(y.created)
	})
	ret := make([]error, 0, len(expired))
	for _, assembly := range expired {
		delete(a.pending, assembly.key)
		a.logger.Warn(
			"pending assembly timed out",
			"transaction_id", assembly.key.InitialTransactionId.String(),
			"received", len(assembly.chunks),
			"total", assembly.key.Total,
		)
		a.observe("timeout")
		ret = append(ret, AssemblyTimeoutError{
			Key:      assembly.key,
			Received: len(assembly.chunks),
			Idle:     now.Sub(assembly.updated),
		})
	}
	return ret
}

// Pending returns the number of messages being assembled
func (a *Assembler) Pending() int {
	return len(a.pending)
}

// Reset discards every pending assembly. The emitted history is kept, so messages that were
// already emitted are not emitted again when the feed is replayed
func (a *Assembler) Reset() {
	clear(a.pending)
}

// ResumeCursor returns where a replacement feed should start so that no chunk of a pending
// assembly and no message after the last emitted one is skipped. Call it before Reset. The
// second return value is false when nothing has been seen yet
func (a *Assembler) ResumeCursor() (ledger.Timestamp, bool) {
	var ret ledger.Timestamp
	found := false
	if !a.lastEmitted.IsZero() {
		ret = a.lastEmitted.Next()
		found = true
	}
	for _, assembly := range a.pending {
		if !found || assembly.earliest.Before(ret) {
			ret = assembly.earliest
			found = true
		}
	}
	return ret, found
}

// LastEmitted returns the consensus timestamp of the latest emitted message
func (a *Assembler) LastEmitted() ledger.Timestamp {
	return a.lastEmitted
}

func (a *Assembler) observe(result string) {
	if a.config.Observer != nil {
		a.config.Observer.ObserveAssembly(result)
	}
}
