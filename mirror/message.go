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
	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
)

// Item is one raw entry from the feed
type Item struct {
	ConsensusTimestamp ledger.Timestamp
	SequenceNumber     uint64
	RunningHash        []byte
	Payload            []byte
	ChunkInfo          *protocol.ChunkInfo
}

func ItemFromResponse(resp *protocol.TopicResponse) Item {
	return Item{
		ConsensusTimestamp: resp.ConsensusTimestamp,
		SequenceNumber:     resp.SequenceNumber,
		RunningHash:        resp.RunningHash,
		Payload:            resp.Message,
		ChunkInfo:          resp.ChunkInfo,
	}
}

// chunked reports whether the item is one part of a multi-part message
func (i Item) chunked() bool {
	return i.ChunkInfo != nil && i.ChunkInfo.Total > 1
}

// ChunkKey identifies one multi-part message
type ChunkKey struct {
	InitialTransactionId ledger.TransactionId
	Total                int32
}

// Message is a complete message. For a chunked message, the timestamp, sequence number and
// running hash are those of the last chunk in the feed
type Message struct {
	ConsensusTimestamp ledger.Timestamp
	SequenceNumber     uint64
	RunningHash        []byte
	Contents           []byte
	// Initial transaction id of a chunked message. Nil for single messages
	TransactionId *ledger.TransactionId
	// The chunks in index order. A single message has one
	Chunks []Item
}

// Cursor is a position in a topic feed
type Cursor struct {
	cbor.StructAsArray
	// Start is where a new subscription resumes from, inclusive
	Start ledger.Timestamp
	// LastSequenceNumber is the sequence number of the last delivered message
	LastSequenceNumber uint64
}
