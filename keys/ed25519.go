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
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"filippo.io/edwards25519"
)

const (
	ed25519PrivateKeyDerPrefix = "302e020100300506032b657004220420"
	ed25519PublicKeyDerPrefix  = "302a300506032b6570032100"
	ed25519PublicKeySize       = ed25519.PublicKeySize
)

type Ed25519PrivateKey struct {
	key ed25519.PrivateKey
}

func GenerateEd25519PrivateKey() (*Ed25519PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519PrivateKey{key: priv}, nil
}

// Ed25519PrivateKeyFromSeed builds a key from a 32-byte seed. A 64-byte value is taken as
// seed followed by public key
func Ed25519PrivateKeyFromSeed(seed []byte) (*Ed25519PrivateKey, error) {
	switch len(seed) {
	case ed25519.SeedSize:
		return &Ed25519PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
	case ed25519.PrivateKeySize:
		key := ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])
		if !bytes.Equal(key[ed25519.SeedSize:], seed[ed25519.SeedSize:]) {
			return nil, SignatureError{Err: fmt.Errorf("%w: public half does not match seed", ErrInvalidKey)}
		}
		return &Ed25519PrivateKey{key: key}, nil
	}
	return nil, SignatureError{
		Err: fmt.Errorf("%w: ed25519 private key must be 32 bytes, got %d", ErrInvalidKeyLength, len(seed)),
	}
}

// Ed25519PrivateKeyFromString parses a raw or DER hex encoded Ed25519 private key
func Ed25519PrivateKeyFromString(s string) (*Ed25519PrivateKey, error) {
	data, err := decodeHexKey(s, ed25519PrivateKeyDerPrefix)
	if err != nil {
		return nil, err
	}
	return Ed25519PrivateKeyFromSeed(data)
}

func (k *Ed25519PrivateKey) Type() KeyType {
	return KeyTypeEd25519
}

func (k *Ed25519PrivateKey) PublicKey() PublicKey {
	pub, _ := k.key.Public().(ed25519.PublicKey)
	return &Ed25519PublicKey{key: pub}
}

func (k *Ed25519PrivateKey) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.key, message), nil
}

// Bytes returns the 32-byte seed
func (k *Ed25519PrivateKey) Bytes() []byte {
	return k.key.Seed()
}

func (k *Ed25519PrivateKey) StringDer() string {
	return ed25519PrivateKeyDerPrefix + hex.EncodeToString(k.Bytes())
}

type Ed25519PublicKey struct {
	key ed25519.PublicKey
}

// Ed25519PublicKeyFromBytes validates and wraps a 32-byte public key. Points that are not on
// the curve or have small order are rejected
func Ed25519PublicKeyFromBytes(data []byte) (*Ed25519PublicKey, error) {
	if len(data) != ed25519PublicKeySize {
		return nil, SignatureError{
			Err: fmt.Errorf("%w: ed25519 public key must be 32 bytes, got %d", ErrInvalidKeyLength, len(data)),
		}
	}
	point, err := new(edwards25519.Point).SetBytes(data)
	if err != nil {
		return nil, SignatureError{Err: fmt.Errorf("%w: %w", ErrInvalidKey, err)}
	}
	if new(edwards25519.Point).MultByCofactor(point).Equal(edwards25519.NewIdentityPoint()) == 1 {
		return nil, SignatureError{Err: ErrSmallOrderKey}
	}
	key := make(ed25519.PublicKey, ed25519PublicKeySize)
	copy(key, data)
	return &Ed25519PublicKey{key: key}, nil
}

func Ed25519PublicKeyFromString(s string) (*Ed25519PublicKey, error) {
	data, err := decodeHexKey(s, ed25519PublicKeyDerPrefix)
	if err != nil {
		return nil, err
	}
	return Ed25519PublicKeyFromBytes(data)
}

func (k *Ed25519PublicKey) Type() KeyType {
	return KeyTypeEd25519
}

func (k *Ed25519PublicKey) Bytes() []byte {
	ret := make([]byte, len(k.key))
	copy(ret, k.key)
	return ret
}

func (k *Ed25519PublicKey) Verify(message []byte, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(k.key, message, signature)
}

func (k *Ed25519PublicKey) String() string {
	return hex.EncodeToString(k.key)
}

func (k *Ed25519PublicKey) StringDer() string {
	return ed25519PublicKeyDerPrefix + k.String()
}
