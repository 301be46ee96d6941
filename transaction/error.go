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
	"errors"
	"fmt"
)

var (
	ErrInvalidState     = errors.New("invalid transaction state")
	ErrMemoTooLong      = errors.New("memo too long")
	ErrMissingSignature = errors.New("missing required signature")
	ErrNoDesignatedNode = errors.New("no designated node")
	ErrEmptyMessage     = errors.New("empty message")
	ErrTooManyChunks    = errors.New("message requires too many chunks")
)

// StateError is returned when an operation is not allowed in the transaction's current state
type StateError struct {
	Op       string
	State    State
	Expected []State
}

func (e StateError) Error() string {
	return fmt.Sprintf("%s: cannot %s in state %s (expected %v)", ErrInvalidState, e.Op, e.State, e.Expected)
}

func (e StateError) Unwrap() error {
	return ErrInvalidState
}
