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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/gohiero/cbor"
)

var ErrInvalidEntityId = errors.New("invalid entity id")

// AccountId identifies an account (and therefore a node, payer or operator) as shard.realm.num
type AccountId struct {
	cbor.StructAsArray
	Shard uint64
	Realm uint64
	Num   uint64
}

func NewAccountId(shard, realm, num uint64) AccountId {
	return AccountId{Shard: shard, Realm: realm, Num: num}
}

// ParseAccountId parses an id in the form "0.0.3"
func ParseAccountId(s string) (AccountId, error) {
	shard, realm, num, err := parseEntityId(s)
	if err != nil {
		return AccountId{}, err
	}
	return AccountId{Shard: shard, Realm: realm, Num: num}, nil
}

func (a AccountId) String() string {
	return fmt.Sprintf("%d.%d.%d", a.Shard, a.Realm, a.Num)
}

func (a AccountId) IsZero() bool {
	return a.Shard == 0 && a.Realm == 0 && a.Num == 0
}

// MarshalText allows an AccountId to be used as a JSON/TOML string
func (a AccountId) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountId) UnmarshalText(text []byte) error {
	tmp, err := ParseAccountId(string(text))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// TopicId identifies a consensus topic
type TopicId struct {
	cbor.StructAsArray
	Shard uint64
	Realm uint64
	Num   uint64
}

func NewTopicId(shard, realm, num uint64) TopicId {
	return TopicId{Shard: shard, Realm: realm, Num: num}
}

func ParseTopicId(s string) (TopicId, error) {
	shard, realm, num, err := parseEntityId(s)
	if err != nil {
		return TopicId{}, err
	}
	return TopicId{Shard: shard, Realm: realm, Num: num}, nil
}

func (t TopicId) String() string {
	return fmt.Sprintf("%d.%d.%d", t.Shard, t.Realm, t.Num)
}

func parseEntityId(s string) (uint64, uint64, uint64, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidEntityId, s)
	}
	var ret [3]uint64
	for idx, part := range parts {
		val, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q: %w", ErrInvalidEntityId, s, err)
		}
		ret[idx] = val
	}
	return ret[0], ret[1], ret[2], nil
}
