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

import "fmt"

// Status is the response code returned by a node at precheck time and carried in
// receipts once consensus is reached
type Status uint32

const (
	StatusOk                            Status = 0
	StatusInvalidTransaction            Status = 1
	StatusPayerAccountNotFound          Status = 2
	StatusInvalidNodeAccount            Status = 3
	StatusTransactionExpired            Status = 4
	StatusInvalidTransactionStart       Status = 5
	StatusInvalidTransactionDuration    Status = 6
	StatusInvalidSignature              Status = 7
	StatusMemoTooLong                   Status = 8
	StatusInsufficientTxFee             Status = 9
	StatusInsufficientPayerBalance      Status = 10
	StatusDuplicateTransaction          Status = 11
	StatusBusy                          Status = 12
	StatusNotSupported                  Status = 13
	StatusInvalidTopicId                Status = 14
	StatusInvalidChunkNumber            Status = 15
	StatusInvalidChunkTransactionId     Status = 16
	StatusMessageSizeTooLarge           Status = 17
	StatusReceiptNotFound               Status = 18
	StatusRecordNotFound                Status = 19
	StatusInvalidTransactionId          Status = 20
	StatusUnknown                       Status = 21
	StatusSuccess                       Status = 22
	StatusFailInvalid                   Status = 23
	StatusFailFee                       Status = 24
	StatusFailBalance                   Status = 25
	StatusPlatformTransactionNotCreated Status = 26
	StatusPlatformNotActive             Status = 27
	StatusTransactionOversize           Status = 28
	StatusInvalidTopicMessage           Status = 29
)

var statusNames = map[Status]string{
	StatusOk:                            "OK",
	StatusInvalidTransaction:            "INVALID_TRANSACTION",
	StatusPayerAccountNotFound:          "PAYER_ACCOUNT_NOT_FOUND",
	StatusInvalidNodeAccount:            "INVALID_NODE_ACCOUNT",
	StatusTransactionExpired:            "TRANSACTION_EXPIRED",
	StatusInvalidTransactionStart:       "INVALID_TRANSACTION_START",
	StatusInvalidTransactionDuration:    "INVALID_TRANSACTION_DURATION",
	StatusInvalidSignature:              "INVALID_SIGNATURE",
	StatusMemoTooLong:                   "MEMO_TOO_LONG",
	StatusInsufficientTxFee:             "INSUFFICIENT_TX_FEE",
	StatusInsufficientPayerBalance:      "INSUFFICIENT_PAYER_BALANCE",
	StatusDuplicateTransaction:          "DUPLICATE_TRANSACTION",
	StatusBusy:                          "BUSY",
	StatusNotSupported:                  "NOT_SUPPORTED",
	StatusInvalidTopicId:                "INVALID_TOPIC_ID",
	StatusInvalidChunkNumber:            "INVALID_CHUNK_NUMBER",
	StatusInvalidChunkTransactionId:     "INVALID_CHUNK_TRANSACTION_ID",
	StatusMessageSizeTooLarge:           "MESSAGE_SIZE_TOO_LARGE",
	StatusReceiptNotFound:               "RECEIPT_NOT_FOUND",
	StatusRecordNotFound:                "RECORD_NOT_FOUND",
	StatusInvalidTransactionId:          "INVALID_TRANSACTION_ID",
	StatusUnknown:                       "UNKNOWN",
	StatusSuccess:                       "SUCCESS",
	StatusFailInvalid:                   "FAIL_INVALID",
	StatusFailFee:                       "FAIL_FEE",
	StatusFailBalance:                   "FAIL_BALANCE",
	StatusPlatformTransactionNotCreated: "PLATFORM_TRANSACTION_NOT_CREATED",
	StatusPlatformNotActive:             "PLATFORM_NOT_ACTIVE",
	StatusTransactionOversize:           "TRANSACTION_OVERSIZE",
	StatusInvalidTopicMessage:           "INVALID_TOPIC_MESSAGE",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("STATUS_%d", uint32(s))
}

// IsRetryablePrecheck reports whether a precheck status means the node could not take
// the transaction right now, but the same signed bytes may succeed later or elsewhere
func (s Status) IsRetryablePrecheck() bool {
	switch s {
	case StatusBusy,
		StatusPlatformTransactionNotCreated,
		StatusPlatformNotActive:
		return true
	}
	return false
}

// IsNodeMismatch reports whether the node refused the transaction because it was
// addressed to a different node
func (s Status) IsNodeMismatch() bool {
	return s == StatusInvalidNodeAccount
}

// IsExpired reports whether the transaction's validity window has passed
func (s Status) IsExpired() bool {
	return s == StatusTransactionExpired
}

// IsPending reports whether a receipt or record status means consensus has not been
// reached yet
func (s Status) IsPending() bool {
	switch s {
	case StatusUnknown, StatusReceiptNotFound, StatusRecordNotFound:
		return true
	}
	return false
}

// IsAccepted reports whether a precheck status means the node took the transaction
func (s Status) IsAccepted() bool {
	return s == StatusOk
}
