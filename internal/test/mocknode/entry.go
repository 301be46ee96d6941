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
	"time"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type EntryType int

const (
	EntryTypeNone EntryType = 0
	// Reply with Response
	EntryTypeResponse EntryType = 1
	// Fail the call with Err
	EntryTypeError EntryType = 2
	// Never reply. The call ends when the caller's context does
	EntryTypeHang EntryType = 3
)

// ConversationEntry is one scripted reply. Method and Node, when set, are checked against
// the incoming call
type ConversationEntry struct {
	Type     EntryType
	Method   string
	Node     *ledger.AccountId
	Response any
	Err      error
	Delay    time.Duration
}

// ForNode returns a copy of the entry that only matches calls to node
func (e ConversationEntry) ForNode(node ledger.AccountId) ConversationEntry {
	e.Node = &node
	return e
}

// ConversationEntrySubmit is a scripted precheck response to a transaction submission
func ConversationEntrySubmit(precheck protocol.Status) ConversationEntry {
	return ConversationEntry{
		Type:     EntryTypeResponse,
		Method:   transport.MethodSubmitTransaction,
		Response: &protocol.TransactionResponse{Precheck: precheck},
	}
}

// Pre-defined submission replies
var (
	ConversationEntrySubmitAccepted    = ConversationEntrySubmit(protocol.StatusOk)
	ConversationEntrySubmitBusy        = ConversationEntrySubmit(protocol.StatusBusy)
	ConversationEntrySubmitInvalidNode = ConversationEntrySubmit(protocol.StatusInvalidNodeAccount)
)

// ConversationEntryReceipt is a scripted receipt query response
func ConversationEntryReceipt(receiptStatus protocol.Status) ConversationEntry {
	return ConversationEntry{
		Type:   EntryTypeResponse,
		Method: transport.MethodGetTransactionReceipt,
		Response: &protocol.ReceiptResponse{
			Precheck: protocol.StatusOk,
			Receipt:  protocol.TransactionReceipt{Status: receiptStatus},
		},
	}
}

// ConversationEntryRecord is a scripted record query response
func ConversationEntryRecord(record protocol.TransactionRecord) ConversationEntry {
	return ConversationEntry{
		Type:   EntryTypeResponse,
		Method: transport.MethodGetTransactionRecord,
		Response: &protocol.RecordResponse{
			Precheck: protocol.StatusOk,
			Record:   record,
		},
	}
}

// ConversationEntryUnavailable fails the call as if the node could not be reached
var ConversationEntryUnavailable = ConversationEntry{
	Type: EntryTypeError,
	Err:  status.Error(codes.Unavailable, "connection refused"),
}

// ConversationEntryHang never replies
var ConversationEntryHang = ConversationEntry{
	Type: EntryTypeHang,
}
