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

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

const (
	secp256k1PrivateKeyDerPrefix = "3030020100300706052b8104000a04220420"
	secp256k1PublicKeyDerPrefix  = "302d300706052b8104000a032200"
	secp256k1PrivateKeySize      = 32
	secp256k1CompressedSize      = 33
	secp256k1UncompressedSize    = 65
	secp256k1SignatureSize       = 64
	secp256k1RecoverableSize     = 65

	// Header byte offset used by compact signatures for a compressed public key
	compactHeaderCompressed = 27 + 4
)

// Keccak256 hashes data with the legacy (pre-standard) Keccak-256 used by EVM tooling
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Secp256k1PrivateKey is an ECDSA key on secp256k1. Messages are hashed with Keccak-256 and
// signed with RFC 6979 deterministic nonces, so re-signing the same body is repeatable and
// nonces never come from a random source
type Secp256k1PrivateKey struct {
	key *btcec.PrivateKey
}

func GenerateSecp256k1PrivateKey() (*Secp256k1PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Secp256k1PrivateKey{key: key}, nil
}

func Secp256k1PrivateKeyFromBytes(data []byte) (*Secp256k1PrivateKey, error) {
	if len(data) != secp256k1PrivateKeySize {
		return nil, SignatureError{
			Err: fmt.Errorf("%w: secp256k1 private key must be 32 bytes, got %d", ErrInvalidKeyLength, len(data)),
		}
	}
	var scalar btcec.ModNScalar
	if overflow := scalar.SetByteSlice(data); overflow || scalar.IsZero() {
		return nil, SignatureError{Err: fmt.Errorf("%w: secp256k1 scalar out of range", ErrInvalidKey)}
	}
	key, _ := btcec.PrivKeyFromBytes(data)
	return &Secp256k1PrivateKey{key: key}, nil
}

// Secp256k1PrivateKeyFromString parses a raw or DER hex encoded secp256k1 private key
func Secp256k1PrivateKeyFromString(s string) (*Secp256k1PrivateKey, error) {
	data, err := decodeHexKey(s, secp256k1PrivateKeyDerPrefix)
	if err != nil {
		return nil, err
	}
	return Secp256k1PrivateKeyFromBytes(data)
}

func (k *Secp256k1PrivateKey) Type() KeyType {
	return KeyTypeSecp256k1
}

func (k *Secp256k1PrivateKey) PublicKey() PublicKey {
	return &Secp256k1PublicKey{key: k.key.PubKey()}
}

// Sign returns the 64-byte r||s signature over the Keccak-256 hash of message
func (k *Secp256k1PrivateKey) Sign(message []byte) ([]byte, error) {
	return k.SignRecoverable(message)[:secp256k1SignatureSize], nil
}

// SignRecoverable returns the 65-byte r||s||v signature, where v (0 or 1) allows the public
// key to be recovered from the signature and message
func (k *Secp256k1PrivateKey) SignRecoverable(message []byte) []byte {
	compact := ecdsa.SignCompact(k.key, Keccak256(message), true)
	ret := make([]byte, 0, secp256k1RecoverableSize)
	ret = append(ret, compact[1:]...)
	ret = append(ret, compact[0]-compactHeaderCompressed)
	return ret
}

func (k *Secp256k1PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

func (k *Secp256k1PrivateKey) StringDer() string {
	return secp256k1PrivateKeyDerPrefix + hex.EncodeToString(k.Bytes())
}

type Secp256k1PublicKey struct {
	key *btcec.PublicKey
}

// Secp256k1PublicKeyFromBytes parses a compressed or uncompressed public key
func Secp256k1PublicKeyFromBytes(data []byte) (*Secp256k1PublicKey, error) {
	key, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, SignatureError{Err: fmt.Errorf("%w: %w", ErrInvalidKey, err)}
	}
	return &Secp256k1PublicKey{key: key}, nil
}

func Secp256k1PublicKeyFromString(s string) (*Secp256k1PublicKey, error) {
	data, err := decodeHexKey(s, secp256k1PublicKeyDerPrefix)
	if err != nil {
		return nil, err
	}
	return Secp256k1PublicKeyFromBytes(data)
}

// RecoverPublicKey recovers the signer of message from a 65-byte r||s||v signature
func RecoverPublicKey(message []byte, signature []byte) (*Secp256k1PublicKey, error) {
	if len(signature) != secp256k1RecoverableSize {
		return nil, SignatureError{
			Err: fmt.Errorf("%w: recoverable signature must be 65 bytes, got %d", ErrInvalidSignature, len(signature)),
		}
	}
	v := signature[secp256k1SignatureSize]
	if v > 3 {
		return nil, SignatureError{Err: fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, v)}
	}
	compact := make([]byte, 0, secp256k1RecoverableSize)
	compact = append(compact, compactHeaderCompressed+v)
	compact = append(compact, signature[:secp256k1SignatureSize]...)
	key, _, err := ecdsa.RecoverCompact(compact, Keccak256(message))
	if err != nil {
		return nil, SignatureError{Err: fmt.Errorf("%w: %w", ErrInvalidSignature, err)}
	}
	return &Secp256k1PublicKey{key: key}, nil
}

func (k *Secp256k1PublicKey) Type() KeyType {
	return KeyTypeSecp256k1
}

// Bytes returns the 33-byte compressed form
func (k *Secp256k1PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

func (k *Secp256k1PublicKey) Verify(message []byte, signature []byte) bool {
	if len(signature) == secp256k1RecoverableSize {
		signature = signature[:secp256k1SignatureSize]
	}
	if len(signature) != secp256k1SignatureSize {
		return false
	}
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow || r.IsZero() {
		return false
	}
	if overflow := s.SetByteSlice(signature[32:]); overflow || s.IsZero() {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(Keccak256(message), k.key)
}

// EVMAddress returns the 20-byte address derived from the key: the last 20 bytes of the
// Keccak-256 hash of the uncompressed point without its 0x04 prefix
func (k *Secp256k1PublicKey) EVMAddress() []byte {
	uncompressed := k.key.SerializeUncompressed()
	return Keccak256(uncompressed[1:])[12:]
}

func (k *Secp256k1PublicKey) String() string {
	return hex.EncodeToString(k.Bytes())
}

func (k *Secp256k1PublicKey) StringDer() string {
	return secp256k1PublicKeyDerPrefix + k.String()
}
