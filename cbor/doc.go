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

// Package cbor provides the CBOR encoding used for every envelope exchanged with
// network and mirror nodes.
//
// This package wraps github.com/fxamacker/cbor/v2. Encoding is deterministic
// (core deterministic map key ordering), so a value always encodes to the same
// bytes. Transaction bodies are signed over their encoded bytes, which makes this
// property load-bearing.
//
// Embeddable types for struct encoding:
//   - StructAsArray: Embed to encode struct fields as a CBOR array instead of a map
//   - DecodeStoreCbor: Embed to preserve the exact bytes an object was decoded from
//
// Utility types:
//   - RawMessage: Deferred decoding (like json.RawMessage)
//   - Tag: CBOR semantic tags
package cbor
