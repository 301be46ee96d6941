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

package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/blinklabs-io/gohiero/cbor"
)

// ValidStartSkew is how far a generated valid start is backdated. Nodes reject
// transactions whose valid start is in their future, so a little slack covers clock drift
const ValidStartSkew = 10 * time.Second

var (
	lastValidStart atomic.Int64
	nonceCounter   atomic.Uint32
)

// TransactionId uniquely identifies a submitted transaction: the payer, the time the
// transaction becomes valid and a nonce
type TransactionId struct {
	cbor.StructAsArray
	AccountId  AccountId
	ValidStart Timestamp
	Nonce      uint32
	Scheduled  bool
}

// NewTransactionId generates a transaction id for the given payer that has never been
// handed out before by this process. Valid starts are strictly increasing
func NewTransactionId(payer AccountId) TransactionId {
	return newTransactionIdAt(payer, time.Now())
}

func newTransactionIdAt(payer AccountId, now time.Time) TransactionId {
	candidate := now.Add(-ValidStartSkew).UnixNano()
	for {
		last := lastValidStart.Load()
		next := candidate
		if next <= last {
			next = last + 1
		}
		if lastValidStart.CompareAndSwap(last, next) {
			return TransactionId{
				AccountId:  payer,
				ValidStart: timestampFromUnixNano(next),
				Nonce:      nonceCounter.Add(1),
			}
		}
	}
}

// NewTransactionIdWithValidStart builds an id with an explicit valid start. The caller is
// responsible for uniqueness
func NewTransactionIdWithValidStart(payer AccountId, validStart time.Time) TransactionId {
	return TransactionId{
		AccountId:  payer,
		ValidStart: NewTimestamp(validStart),
	}
}

// WithNonce returns a copy of the id with the given nonce
func (t TransactionId) WithNonce(nonce uint32) TransactionId {
	t.Nonce = nonce
	return t
}

func (t TransactionId) IsZero() bool {
	return t.AccountId.IsZero() && t.ValidStart.IsZero()
}

// String renders the id as "0.0.2@1700000000.000000123", with "?scheduled" and "/nonce"
// suffixes when set
func (t TransactionId) String() string {
	var sb strings.Builder
	sb.WriteString(t.AccountId.String())
	sb.WriteString("@")
	sb.WriteString(t.ValidStart.String())
	if t.Scheduled {
		sb.WriteString("?scheduled")
	}
	if t.Nonce != 0 {
		sb.WriteString("/")
		sb.WriteString(strconv.FormatUint(uint64(t.Nonce), 10))
	}
	return sb.String()
}

// ParseTransactionId parses the form produced by String
func ParseTransactionId(s string) (TransactionId, error) {
	var ret TransactionId
	accountStr, rest, found := strings.Cut(strings.TrimSpace(s), "@")
	if !found {
		return ret, fmt.Errorf("invalid transaction id %q: missing valid start", s)
	}
	account, err := ParseAccountId(accountStr)
	if err != nil {
		return ret, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	ret.AccountId = account
	if before, after, ok := strings.Cut(rest, "/"); ok {
		nonce, err := strconv.ParseUint(after, 10, 32)
		if err != nil {
			return ret, fmt.Errorf("invalid transaction id %q: %w", s, err)
		}
		ret.Nonce = uint32(nonce)
		rest = before
	}
	if before, ok := strings.CutSuffix(rest, "?scheduled"); ok {
		ret.Scheduled = true
		rest = before
	}
	validStart, err := ParseTimestamp(rest)
	if err != nil {
		return ret, fmt.Errorf("invalid transaction id %q: %w", s, err)
	}
	ret.ValidStart = validStart
	return ret, nil
}
