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
	"encoding/hex"
	"fmt"
	"strings"
)

type KeyType uint8

const (
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
)

func (k KeyType) String() string {
	switch k {
	case KeyTypeEd25519:
		return "ed25519"
	case KeyTypeSecp256k1:
		return "secp256k1"
	}
	return fmt.Sprintf("KeyType(%d)", uint8(k))
}

// PrivateKey signs transaction bodies. Implementations must be deterministic: signing the
// same bytes twice yields the same signature
type PrivateKey interface {
	Type() KeyType
	PublicKey() PublicKey
	Sign(message []byte) ([]byte, error)
	Bytes() []byte
}

type PublicKey interface {
	Type() KeyType
	// Bytes returns the raw (for secp256k1, compressed) public key
	Bytes() []byte
	Verify(message []byte, signature []byte) bool
	String() string
}

// Identity returns the string a public key is tracked under in a SignatureMap
func Identity(pub PublicKey) string {
	return pub.Type().String() + ":" + hex.EncodeToString(pub.Bytes())
}

// PrivateKeyFromString parses a hex encoded private key. DER encoded keys are detected by
// their prefix. Raw 32-byte keys are taken as Ed25519 seeds unless keyType says otherwise
func PrivateKeyFromString(s string, keyType KeyType) (PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	switch {
	case strings.HasPrefix(s, ed25519PrivateKeyDerPrefix):
		return Ed25519PrivateKeyFromString(s)
	case strings.HasPrefix(s, secp256k1PrivateKeyDerPrefix):
		return Secp256k1PrivateKeyFromString(s)
	}
	switch keyType {
	case KeyTypeSecp256k1:
		return Secp256k1PrivateKeyFromString(s)
	default:
		return Ed25519PrivateKeyFromString(s)
	}
}

// PublicKeyFromString parses a hex encoded public key, raw or DER
func PublicKeyFromString(s string) (PublicKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	switch {
	case strings.HasPrefix(s, ed25519PublicKeyDerPrefix):
		return Ed25519PublicKeyFromString(s)
	case strings.HasPrefix(s, secp256k1PublicKeyDerPrefix):
		return Secp256k1PublicKeyFromString(s)
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, SignatureError{Err: fmt.Errorf("%w: %w", ErrInvalidKey, err)}
	}
	switch len(data) {
	case ed25519PublicKeySize:
		return Ed25519PublicKeyFromBytes(data)
	case secp256k1CompressedSize, secp256k1UncompressedSize:
		return Secp256k1PublicKeyFromBytes(data)
	}
	return nil, SignatureError{Err: fmt.Errorf("%w: %d bytes", ErrInvalidKeyLength, len(data))}
}

func decodeHexKey(s string, derPrefix string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.TrimPrefix(s, derPrefix)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, SignatureError{Err: fmt.Errorf("%w: %w", ErrInvalidKey, err)}
	}
	return data, nil
}
