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

package cbor_test

import (
	"encoding/hex"
	"reflect"
	"strings"
	"testing"

	"github.com/blinklabs-io/gohiero/cbor"
)

type decodeTestDefinition struct {
	CborHex   string
	Object    any
	BytesRead int
}

var decodeTests = []decodeTestDefinition{
	// Simple list of numbers
	{
		CborHex: "83010203",
		Object:  []any{uint64(1), uint64(2), uint64(3)},
	},
	// Multiple CBOR objects
	{
		CborHex:   "81018102",
		Object:    []any{uint64(1)},
		BytesRead: 2,
	},
}

func TestDecode(t *testing.T) {
	for _, test := range decodeTests {
		cborData, err := hex.DecodeString(test.CborHex)
		if err != nil {
			t.Fatalf("failed to decode CBOR hex: %s", err)
		}
		var dest any
		bytesRead, err := cbor.Decode(cborData, &dest)
		if err != nil {
			t.Fatalf("failed to decode CBOR: %s", err)
		}
		if test.BytesRead > 0 {
			if bytesRead != test.BytesRead {
				t.Fatalf(
					"expected to read %d bytes, read %d instead",
					test.BytesRead,
					bytesRead,
				)
			}
		}
		if !reflect.DeepEqual(dest, test.Object) {
			t.Fatalf(
				"CBOR did not decode to expected object\n  got: %#v\n  wanted: %#v",
				dest,
				test.Object,
			)
		}
	}
}

func TestDecodeRejectsDuplicateMapKeys(t *testing.T) {
	cborData, _ := hex.DecodeString("a201010102")
	var dest map[uint64]uint64
	if _, err := cbor.Decode(cborData, &dest); err == nil {
		t.Fatalf("did not get expected error")
	}
}

func TestListLength(t *testing.T) {
	testDefs := []struct {
		CborHex string
		Length  int
	}{
		{CborHex: "80", Length: 0},
		{CborHex: "83010203", Length: 3},
		{CborHex: "9818" + strings.Repeat("01", 24), Length: 24},
	}
	for _, testDef := range testDefs {
		cborData, _ := hex.DecodeString(testDef.CborHex)
		length, err := cbor.ListLength(cborData)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if length != testDef.Length {
			t.Fatalf("got length %d, wanted %d", length, testDef.Length)
		}
	}
	if _, err := cbor.ListLength(nil); err == nil {
		t.Fatalf("did not get expected error")
	}
}

type storedBody struct {
	cbor.StructAsArray
	cbor.DecodeStoreCbor
	Memo string
	Fee  uint64
}

func (b *storedBody) UnmarshalCBOR(data []byte) error {
	return b.UnmarshalCborGeneric(data, b)
}

func TestDecodeStoreCbor(t *testing.T) {
	// [ "hi", 5 ]
	cborData, _ := hex.DecodeString("82626869" + "05")
	var body storedBody
	if _, err := cbor.Decode(cborData, &body); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if body.Memo != "hi" || body.Fee != 5 {
		t.Fatalf("unexpected decoded value: %#v", body)
	}
	if hex.EncodeToString(body.Cbor()) != hex.EncodeToString(cborData) {
		t.Fatalf("original CBOR was not stored")
	}
	// The stored copy must not alias the input
	cborData[1] = 0x00
	if body.Cbor()[1] == 0x00 {
		t.Fatalf("stored CBOR aliases caller buffer")
	}
}
