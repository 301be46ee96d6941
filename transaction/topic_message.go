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

package transaction

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
)

const KindTopicMessageSubmit = "ConsensusSubmitMessage"

// TopicMessageData is the encoded body data of a topic message submission
type TopicMessageData struct {
	cbor.StructAsArray
	TopicId   ledger.TopicId
	Message   []byte
	ChunkInfo *protocol.ChunkInfo
}

// TopicMessageSubmit submits one message, or one chunk of a larger message, to a topic
type TopicMessageSubmit struct {
	TopicId    ledger.TopicId
	Message    []byte
	ChunkInfo  *protocol.ChunkInfo
	SubmitKeys []keys.PublicKey
}

func (d *TopicMessageSubmit) Kind() string {
	return KindTopicMessageSubmit
}

func (d *TopicMessageSubmit) Encode() ([]byte, error) {
	return cbor.Encode(
		&TopicMessageData{
			TopicId:   d.TopicId,
			Message:   d.Message,
			ChunkInfo: d.ChunkInfo,
		},
	)
}

func (d *TopicMessageSubmit) RequiredSigners() []keys.PublicKey {
	return d.SubmitKeys
}

func (d *TopicMessageSubmit) Targetable() bool {
	return true
}

// ChunkMessage splits msg.Message into chunks of at most ChunkSize bytes and returns one
// Transaction per chunk, in order. Every chunk references the transaction id of the first
// chunk, which is the configured transaction id or a new one for payer
func ChunkMessage(
	msg TopicMessageSubmit,
	payer ledger.AccountId,
	options ...ConfigOptionFunc,
) ([]*Transaction, error) {
	config := NewConfig(options...)
	if len(msg.Message) == 0 {
		return nil, ErrEmptyMessage
	}
	if config.ChunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size: %d", config.ChunkSize)
	}
	total := (len(msg.Message) + config.ChunkSize - 1) / config.ChunkSize
	if total > config.MaxChunks {
		return nil, fmt.Errorf(
			"%w: %d bytes needs %d chunks of %d bytes, max %d",
			ErrTooManyChunks,
			len(msg.Message),
			total,
			config.ChunkSize,
			config.MaxChunks,
		)
	}
	initialId := config.TransactionId
	if initialId.IsZero() {
		initialId = ledger.NewTransactionId(payer)
	}
	ret := make([]*Transaction, 0, total)
	for i, chunk := range chunks(msg.Message, config.ChunkSize) {
		txId := initialId
		if i > 0 {
			txId = ledger.NewTransactionId(initialId.AccountId)
		}
		desc := &TopicMessageSubmit{
			TopicId: msg.TopicId,
			Message: bytes.Clone(chunk),
			ChunkInfo: &protocol.ChunkInfo{
				InitialTransactionId: initialId,
				// #nosec G115 -- bounded by MaxChunks
				Total: int32(total),
				// #nosec G115 -- bounded by MaxChunks
				Number: int32(i + 1),
			},
			SubmitKeys: msg.SubmitKeys,
		}
		chunkOptions := append(slices.Clone(options), WithTransactionId(txId))
		ret = append(ret, New(desc, chunkOptions...))
	}
	return ret, nil
}

func chunks(data []byte, size int) [][]byte {
	var ret [][]byte
	for len(data) > 0 {
		n := min(size, len(data))
		ret = append(ret, data[:n])
		data = data[n:]
	}
	return ret
}
