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

import "github.com/blinklabs-io/gohiero/keys"

// Descriptor produces the encoded body of one kind of ledger operation. Builders for the
// individual operation kinds implement it
type Descriptor interface {
	// Kind names the operation, for logs and metrics
	Kind() string
	// Encode returns the canonical bytes of the operation body
	Encode() ([]byte, error)
	// RequiredSigners returns the keys that must sign, in addition to the payer
	RequiredSigners() []keys.PublicKey
	// Targetable reports whether the operation may be sent to a different node after a
	// node mismatch
	Targetable() bool
}
