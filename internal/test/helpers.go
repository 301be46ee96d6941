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

// Package test holds helpers shared by the package tests
package test

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/gohiero/keys"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
)

// DecodeHexString is a helper function for tests that decodes hex strings. It doesn't return
// an error value, which makes it usable inline.
func DecodeHexString(hexData string) []byte {
	// Strip off any leading/trailing whitespace in hex string
	hexData = strings.TrimSpace(hexData)
	decoded, err := hex.DecodeString(hexData)
	if err != nil {
		panic(fmt.Sprintf("error decoding hex: %s", err))
	}
	return decoded
}

// Ed25519Key returns the key whose seed is 32 copies of b
func Ed25519Key(b byte) keys.PrivateKey {
	key, err := keys.Ed25519PrivateKeyFromSeed(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		panic(fmt.Sprintf("error creating test key: %s", err))
	}
	return key
}

// NodeEndpoints returns count endpoints for nodes 0.0.3 onward, one port per node
func NodeEndpoints(count int) []network.NodeEndpoint {
	ret := make([]network.NodeEndpoint, 0, count)
	for i := range count {
		ret = append(ret, network.NodeEndpoint{
			// #nosec G115 -- small test counts
			Node:    ledger.NewAccountId(0, 0, uint64(3+i)),
			Address: "127.0.0.1",
			// #nosec G115 -- small test counts
			Port: uint(50211 + i),
		})
	}
	return ret
}

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
