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
	"bytes"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	payer         = ledger.NewAccountId(0, 0, 1001)
	topic         = ledger.NewTopicId(0, 0, 5000)
	baseTime      = time.Unix(1700000000, 0)
)

func ts(n int) ledger.Timestamp {
	return ledger.NewTimestamp(baseTime.Add(time.Duration(n) * time.Second))
}

func singleItem(n int, payload string) mirror.Item {
	return mirror.Item{
		ConsensusTimestamp: ts(n),
		SequenceNumber:     uint64(n),
		Payload:            []byte(payload),
	}
}

func chunkItem(n int, initialId ledger.TransactionId, number int32, total int32, payload string) mirror.Item {
	return mirror.Item{
		ConsensusTimestamp: ts(n),
		SequenceNumber:     uint64(n),
		Payload:            []byte(payload),
		ChunkInfo: &protocol.ChunkInfo{
			InitialTransactionId: initialId,
			Total:                total,
			Number:               number,
		},
	}
}

func newTestAssembler(t *testing.T, opts ...mirror.ConfigOptionFunc) *mirror.Assembler {
	t.Helper()
	opts = append([]mirror.ConfigOptionFunc{mirror.WithLogger(discardLogger)}, opts...)
	a, err := mirror.NewAssembler(opts...)
	require.NoError(t, err)
	return a
}

type assemblyRecorder struct {
	results map[string]int
}

func (r *assemblyRecorder) ObserveAssembly(result string) {
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func TestAssemblerSingle(t *testing.T) {
	a := newTestAssembler(t)
	now := time.Now()
	msg, err := a.Add(singleItem(1, "hello"), now)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []byte("hello"), msg.Contents)
	assert.Nil(t, msg.TransactionId)
	assert.Equal(t, ts(1), msg.ConsensusTimestamp)
	// Replayed
	msg, err = a.Add(singleItem(1, "hello"), now)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

// Chunks 2, 1, 3 of a three chunk message
func TestAssemblerOutOfOrder(t *testing.T) {
	a := newTestAssembler(t)
	initialId := ledger.NewTransactionId(payer)
	now := time.Now()
	msg, err := a.Add(chunkItem(1, initialId, 2, 3, "payload1"), now)
	require.NoError(t, err)
	assert.Nil(t, msg)
	msg, err = a.Add(chunkItem(2, initialId, 1, 3, "payload0"), now)
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 1, a.Pending())
	msg, err = a.Add(chunkItem(3, initialId, 3, 3, "payload2"), now)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, []byte("payload0payload1payload2"), msg.Contents)
	assert.Equal(t, initialId, *msg.TransactionId)
	assert.Equal(t, ts(3), msg.ConsensusTimestamp)
	assert.Len(t, msg.Chunks, 3)
	assert.Equal(t, 0, a.Pending())
}

func permutations(n int) [][]int {
	if n == 1 {
		return [][]int{{0}}
	}
	var ret [][]int
	for _, perm := range permutations(n - 1) {
		for i := 0; i <= len(perm); i++ {
			p := make([]int, 0, n)
			p = append(p, perm[:i]...)
			p = append(p, n-1)
			p = append(p, perm[i:]...)
			ret = append(ret, p)
		}
	}
	return ret
}

// Every arrival order produces the same message, exactly once
func TestAssemblerPermutations(t *testing.T) {
	const total = 4
	payloads := []string{"a", "bb", "ccc", "dddd"}
	for _, perm := range permutations(total) {
		a := newTestAssembler(t)
		initialId := ledger.NewTransactionId(payer)
		var emitted []*mirror.Message
		now := time.Now()
		// Deliver every chunk twice to also cover duplicates
		for round := range 2 {
			for pos, idx := range perm {
				msg, err := a.Add(
					chunkItem(round*total+pos+1, initialId, int32(idx+1), total, payloads[idx]),
					now,
				)
				require.NoError(t, err)
				if msg != nil {
					emitted = append(emitted, msg)
				}
			}
		}
		require.Len(t, emitted, 1, "permutation %v", perm)
		assert.Equal(t, []byte("abbcccdddd"), emitted[0].Contents, "permutation %v", perm)
	}
}

func TestAssemblerRandomInterleaving(t *testing.T) {
	a := newTestAssembler(t)
	type message struct {
		id      ledger.TransactionId
		payload []byte
	}
	var messages []message
	var items []mirror.Item
	for range 20 {
		id := ledger.NewTransactionId(payer)
		payload := make([]byte, 10+rand.IntN(200))
		for i := range payload {
			payload[i] = byte(rand.IntN(256))
		}
		messages = append(messages, message{id: id, payload: payload})
		chunkCount := (len(payload) + 31) / 32
		for i := range chunkCount {
			end := min((i+1)*32, len(payload))
			items = append(items, mirror.Item{
				Payload: payload[i*32 : end],
				ChunkInfo: &protocol.ChunkInfo{
					InitialTransactionId: id,
					// #nosec G115
					Total: int32(chunkCount),
					// #nosec G115
					Number: int32(i + 1),
				},
			})
		}
	}
	rand.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	got := map[ledger.TransactionId][]byte{}
	for i, item := range items {
		item.ConsensusTimestamp = ts(i + 1)
		msg, err := a.Add(item, time.Now())
		require.NoError(t, err)
		if msg == nil {
			continue
		}
		if msg.TransactionId == nil {
			// Messages that fit one chunk
			got[item.ChunkInfo.InitialTransactionId] = msg.Contents
			continue
		}
		_, dup := got[*msg.TransactionId]
		require.False(t, dup)
		got[*msg.TransactionId] = msg.Contents
	}
	require.Len(t, got, len(messages))
	for _, m := range messages {
		assert.True(t, bytes.Equal(m.payload, got[m.id]))
	}
}

func TestAssemblerIdleTimeout(t *testing.T) {
	recorder := &assemblyRecorder{}
	a := newTestAssembler(t, mirror.WithIdleTimeout(time.Minute), mirror.WithObserver(recorder))
	initialId := ledger.NewTransactionId(payer)
	now := time.Now()
	_, err := a.Add(chunkItem(1, initialId, 1, 3, "p0"), now)
	require.NoError(t, err)
	_, err = a.Add(chunkItem(2, initialId, 2, 3, "p1"), now.Add(30*time.Second))
	require.NoError(t, err)
	// Not idle long enough yet
	assert.Empty(t, a.Expire(now.Add(80*time.Second)))
	errs := a.Expire(now.Add(91 * time.Second))
	require.Len(t, errs, 1)
	var timeoutErr mirror.AssemblyTimeoutError
	require.ErrorAs(t, errs[0], &timeoutErr)
	assert.Equal(t, initialId, timeoutErr.Key.InitialTransactionId)
	assert.Equal(t, 2, timeoutErr.Received)
	assert.Equal(t, 0, a.Pending())
	// The last chunk arriving later does not complete anything
	msg, err := a.Add(chunkItem(3, initialId, 3, 3, "p2"), now.Add(100*time.Second))
	require.NoError(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, 1, recorder.results["timeout"])
	assert.Equal(t, 0, recorder.results["emitted"])
}

func TestAssemblerOverflow(t *testing.T) {
	a := newTestAssembler(t, mirror.WithMaxPending(2))
	now := time.Now()
	first := ledger.NewTransactionId(payer)
	_, err := a.Add(chunkItem(1, first, 1, 2, "a"), now)
	require.NoError(t, err)
	_, err = a.Add(chunkItem(2, ledger.NewTransactionId(payer), 1, 2, "b"), now.Add(time.Second))
	require.NoError(t, err)
	_, err = a.Add(chunkItem(3, ledger.NewTransactionId(payer), 1, 2, "c"), now.Add(2*time.Second))
	var overflowErr mirror.AssemblyOverflowError
	require.ErrorAs(t, err, &overflowErr)
	assert.Equal(t, first, overflowErr.Key.InitialTransactionId)
	assert.Equal(t, 2, a.Pending())
}

func TestAssemblerInvalidChunk(t *testing.T) {
	a := newTestAssembler(t)
	initialId := ledger.NewTransactionId(payer)
	for _, number := range []int32{0, 4} {
		_, err := a.Add(chunkItem(1, initialId, number, 3, "x"), time.Now())
		require.ErrorIs(t, err, mirror.ErrInvalidChunk)
	}
	assert.Equal(t, 0, a.Pending())
}

func TestAssemblerResumeCursor(t *testing.T) {
	a := newTestAssembler(t)
	_, ok := a.ResumeCursor()
	assert.False(t, ok)
	now := time.Now()
	_, err := a.Add(singleItem(10, "x"), now)
	require.NoError(t, err)
	cursor, ok := a.ResumeCursor()
	require.True(t, ok)
	assert.Equal(t, ts(10).Next(), cursor)
	// A pending chunk from before the last emitted message pulls the cursor back
	initialId := ledger.NewTransactionId(payer)
	_, err = a.Add(chunkItem(8, initialId, 1, 2, "y"), now)
	require.NoError(t, err)
	cursor, _ = a.ResumeCursor()
	assert.Equal(t, ts(8), cursor)
	a.Reset()
	cursor, _ = a.ResumeCursor()
	assert.Equal(t, ts(10).Next(), cursor)
}

// The feed drops after K1 is emitted and while K2 is half done. The replacement feed starts at
// the resume cursor and replays from there
func TestAssemblerReconnect(t *testing.T) {
	a := newTestAssembler(t)
	now := time.Now()
	k1 := ledger.NewTransactionId(payer)
	k2 := ledger.NewTransactionId(payer)
	var emitted []*mirror.Message
	add := func(item mirror.Item) {
		msg, err := a.Add(item, now)
		require.NoError(t, err)
		if msg != nil {
			emitted = append(emitted, msg)
		}
	}
	add(chunkItem(1, k1, 1, 2, "k1a"))
	add(chunkItem(2, k2, 1, 2, "k2a"))
	add(chunkItem(3, k1, 2, 2, "k1b"))
	require.Len(t, emitted, 1)
	// Disconnect
	resume, ok := a.ResumeCursor()
	require.True(t, ok)
	assert.Equal(t, ts(2), resume)
	a.Reset()
	// Replay from the cursor, including K1's final chunk
	add(chunkItem(2, k2, 1, 2, "k2a"))
	add(chunkItem(3, k1, 2, 2, "k1b"))
	add(chunkItem(4, k2, 2, 2, "k2b"))
	require.Len(t, emitted, 2)
	assert.Equal(t, []byte("k1ak1b"), emitted[0].Contents)
	assert.Equal(t, []byte("k2ak2b"), emitted[1].Contents)
	assert.Equal(t, k2, *emitted[1].TransactionId)
}
