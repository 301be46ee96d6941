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

package keys

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
)

type SignatureEntry struct {
	PublicKey PublicKey
	Signature []byte
}

// SignatureMap maps public key identity to signature. Each public key appears at most once
type SignatureMap struct {
	entries map[string]SignatureEntry
}

func NewSignatureMap() *SignatureMap {
	return &SignatureMap{
		entries: make(map[string]SignatureEntry),
	}
}

// Add records a signature. Adding an identical signature for a key that is already present
// is a no-op. A different signature for the same key fails with DuplicateSignerError, since
// both supported schemes are deterministic and only a different private key could produce it
func (m *SignatureMap) Add(pub PublicKey, signature []byte) error {
	id := Identity(pub)
	if existing, ok := m.entries[id]; ok {
		if bytes.Equal(existing.Signature, signature) {
			return nil
		}
		return DuplicateSignerError{PublicKey: id}
	}
	m.entries[id] = SignatureEntry{
		PublicKey: pub,
		Signature: bytes.Clone(signature),
	}
	return nil
}

// Merge adds every entry from other
func (m *SignatureMap) Merge(other *SignatureMap) error {
	for _, entry := range other.Entries() {
		if err := m.Add(entry.PublicKey, entry.Signature); err != nil {
			return err
		}
	}
	return nil
}

func (m *SignatureMap) Get(pub PublicKey) ([]byte, bool) {
	entry, ok := m.entries[Identity(pub)]
	if !ok {
		return nil, false
	}
	return bytes.Clone(entry.Signature), true
}

func (m *SignatureMap) Has(pub PublicKey) bool {
	_, ok := m.entries[Identity(pub)]
	return ok
}

func (m *SignatureMap) Len() int {
	return len(m.entries)
}

// Entries returns the signatures ordered by public key identity
func (m *SignatureMap) Entries() []SignatureEntry {
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ret := make([]SignatureEntry, 0, len(ids))
	for _, id := range ids {
		entry := m.entries[id]
		ret = append(ret, SignatureEntry{
			PublicKey: entry.PublicKey,
			Signature: bytes.Clone(entry.Signature),
		})
	}
	return ret
}

func (m *SignatureMap) Clone() *SignatureMap {
	ret := NewSignatureMap()
	for id, entry := range m.entries {
		ret.entries[id] = SignatureEntry{
			PublicKey: entry.PublicKey,
			Signature: bytes.Clone(entry.Signature),
		}
	}
	return ret
}

func (m *SignatureMap) String() string {
	ids := make([]string, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return fmt.Sprintf("SignatureMap{%s}", strings.Join(ids, ", "))
}

// Sign signs body with every key and returns the resulting SignatureMap
func Sign(body []byte, privKeys ...PrivateKey) (*SignatureMap, error) {
	ret := NewSignatureMap()
	if err := SignInto(ret, body, privKeys...); err != nil {
		return nil, err
	}
	return ret, nil
}

// SignInto signs body with every key and accumulates the signatures in sigMap. Keys that
// already have a signature in the map are signed again and compared, which is how a second
// private key claiming an existing public key is caught. Every new signature is verified
// against its claimed public key before being added
func SignInto(sigMap *SignatureMap, body []byte, privKeys ...PrivateKey) error {
	for _, privKey := range privKeys {
		if privKey == nil {
			return SignatureError{Err: fmt.Errorf("%w: nil private key", ErrInvalidKey)}
		}
		pub := privKey.PublicKey()
		id := Identity(pub)
		sig, err := privKey.Sign(body)
		if err != nil {
			return SignatureError{PublicKey: id, Err: err}
		}
		if existing, ok := sigMap.entries[id]; ok {
			if bytes.Equal(existing.Signature, sig) {
				continue
			}
			return SignatureError{PublicKey: id, Err: DuplicateSignerError{PublicKey: id}}
		}
		if !pub.Verify(body, sig) {
			return SignatureError{PublicKey: id, Err: ErrInvalidSignature}
		}
		if err := sigMap.Add(pub, sig); err != nil {
			return SignatureError{PublicKey: id, Err: err}
		}
	}
	return nil
}
