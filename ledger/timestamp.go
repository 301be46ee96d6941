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
	"time"

	"github.com/blinklabs-io/gohiero/cbor"
)

// Timestamp is a consensus or valid-start time with nanosecond precision. Unlike
// time.Time it is comparable, so it can be part of a map key.
type Timestamp struct {
	cbor.StructAsArray
	Seconds int64
	Nanos   int32
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()), // #nosec G115
	}
}

func timestampFromUnixNano(n int64) Timestamp {
	return Timestamp{
		Seconds: n / int64(time.Second),
		Nanos:   int32(n % int64(time.Second)), // #nosec G115
	}
}

func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

func (t Timestamp) UnixNano() int64 {
	return t.Seconds*int64(time.Second) + int64(t.Nanos)
}

func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanos == 0
}

func (t Timestamp) Before(o Timestamp) bool {
	return t.UnixNano() < o.UnixNano()
}

func (t Timestamp) After(o Timestamp) bool {
	return t.UnixNano() > o.UnixNano()
}

func (t Timestamp) Add(d time.Duration) Timestamp {
	return timestampFromUnixNano(t.UnixNano() + int64(d))
}

// Next returns the timestamp one nanosecond later. Used to build exclusive lower bounds
func (t Timestamp) Next() Timestamp {
	return t.Add(time.Nanosecond)
}

// String renders the timestamp as "seconds.nanoseconds" with 9 fractional digits
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", t.Seconds, t.Nanos)
}

// ParseTimestamp parses the "seconds.nanoseconds" form produced by String
func ParseTimestamp(s string) (Timestamp, error) {
	secStr, nanoStr, found := strings.Cut(strings.TrimSpace(s), ".")
	secs, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	ret := Timestamp{Seconds: secs}
	if found {
		if len(nanoStr) == 0 || len(nanoStr) > 9 {
			return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
		}
		// Right-pad so that "1.5" means half a second
		nanoStr += strings.Repeat("0", 9-len(nanoStr))
		nanos, err := strconv.ParseInt(nanoStr, 10, 32)
		if err != nil {
			return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
		ret.Nanos = int32(nanos)
	}
	return ret, nil
}
