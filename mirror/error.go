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
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidChunk        = errors.New("invalid chunk")
	ErrSubscriptionClosed  = errors.New("subscription closed")
	ErrNoMirrorAddress     = errors.New("no mirror address")
	ErrReconnectsExhausted = errors.New("reconnect attempts exhausted")
)

// AssemblyTimeoutError reports a chunked message that stopped receiving chunks before it was
// complete. Its chunks were discarded and the message was not delivered
type AssemblyTimeoutError struct {
	Key      ChunkKey
	Received int
	Idle     time.Duration
}

func (e AssemblyTimeoutError) Error() string {
	return fmt.Sprintf(
		"assembly of %s timed out with %d of %d chunks after %s idle",
		e.Key.InitialTransactionId,
		e.Received,
		e.Key.Total,
		e.Idle,
	)
}

// AssemblyOverflowError reports a chunked message that was discarded to make room for a newer
// one, because too many messages were being assembled at once
type AssemblyOverflowError struct {
	Key      ChunkKey
	Received int
}

func (e AssemblyOverflowError) Error() string {
	return fmt.Sprintf(
		"assembly of %s dropped with %d of %d chunks: too many pending assemblies",
		e.Key.InitialTransactionId,
		e.Received,
		e.Key.Total,
	)
}
