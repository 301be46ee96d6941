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

package protocol

import (
	"github.com/blinklabs-io/gohiero/cbor"
	"github.com/blinklabs-io/gohiero/ledger"
)

// Wire envelopes exchanged with network and mirror nodes. Every envelope is a CBOR
// array so field order is part of the format.

// TransactionBody is the signed part of a transaction. A frozen transaction holds one
// encoded body per designated node, since the node id is part of what gets signed
type TransactionBody struct {
	cbor.StructAsArray
	cbor.DecodeStoreCbor
	TransactionId  ledger.TransactionId
	NodeAccountId  ledger.AccountId
	TransactionFee uint64
	// Seconds
	ValidDuration uint64
	Memo          string
	Kind          string
	Data          []byte
}

func (b *TransactionBody) UnmarshalCBOR(cborData []byte) error {
	return b.UnmarshalCborGeneric(cborData, b)
}

// Key types carried in a SignaturePair
const (
	KeyTypeEd25519   uint8 = 1
	KeyTypeSecp256k1 uint8 = 2
)

type SignaturePair struct {
	cbor.StructAsArray
	KeyType   uint8
	PubKey    []byte
	Signature []byte
}

type SignedTransaction struct {
	cbor.StructAsArray
	BodyBytes  []byte
	Signatures []SignaturePair
}

// TransactionRequest is what gets submitted to a node
type TransactionRequest struct {
	cbor.StructAsArray
	SignedTransactionBytes []byte
}

type TransactionResponse struct {
	cbor.StructAsArray
	Precheck Status
	Cost     uint64
}

type ReceiptQuery struct {
	cbor.StructAsArray
	TransactionId     ledger.TransactionId
	IncludeDuplicates bool
}

type TransactionReceipt struct {
	cbor.StructAsArray
	Status              Status
	AccountId           *ledger.AccountId
	TopicId             *ledger.TopicId
	TopicSequenceNumber uint64
	TopicRunningHash    []byte
}

type ReceiptResponse struct {
	cbor.StructAsArray
	Precheck   Status
	Receipt    TransactionReceipt
	Duplicates []TransactionReceipt
}

type RecordQuery struct {
	cbor.StructAsArray
	TransactionId ledger.TransactionId
}

type TransactionRecord struct {
	cbor.StructAsArray
	Receipt            TransactionReceipt
	TransactionHash    []byte
	ConsensusTimestamp ledger.Timestamp
	TransactionId      ledger.TransactionId
	Memo               string
	TransactionFee     uint64
}

type RecordResponse struct {
	cbor.StructAsArray
	Precheck Status
	Record   TransactionRecord
}

// TopicQuery starts a mirror subscription. A zero Start means "from now", a zero End
// means no end and a zero Limit means unlimited
type TopicQuery struct {
	cbor.StructAsArray
	TopicId ledger.TopicId
	Start   ledger.Timestamp
	End     ledger.Timestamp
	Limit   uint64
}

// ChunkInfo describes one part of a multi-part topic message. Number is 1-based
type ChunkInfo struct {
	cbor.StructAsArray
	InitialTransactionId ledger.TransactionId
	Total                int32
	Number               int32
}

type TopicResponse struct {
	cbor.StructAsArray
	ConsensusTimestamp ledger.Timestamp
	Message            []byte
	RunningHash        []byte
	SequenceNumber     uint64
	ChunkInfo          *ChunkInfo
}
