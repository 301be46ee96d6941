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
	"errors"
	"fmt"
)

var (
	ErrInvalidKey       = errors.New("invalid key")
	ErrInvalidKeyLength = errors.New("invalid key length")
	ErrSmallOrderKey    = errors.New("public key has small order")
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignatureError is a local signing failure: bad key material, a signature that does not
// verify, or a duplicate-signer conflict. It is never sent over the network
type SignatureError struct {
	PublicKey string
	Err       error
}

func (e SignatureError) Error() string {
	if e.PublicKey == "" {
		return fmt.Sprintf("signature error: %s", e.Err)
	}
	return fmt.Sprintf("signature error for key %s: %s", e.PublicKey, e.Err)
}

func (e SignatureError) Unwrap() error {
	return e.Err
}

// DuplicateSignerError means two different private keys claim the same public key
type DuplicateSignerError struct {
	PublicKey string
}

func (e DuplicateSignerError) Error() string {
	return fmt.Sprintf("conflicting signature for public key %s from a different private key", e.PublicKey)
}
