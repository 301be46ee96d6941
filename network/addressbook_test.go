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

package network_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
)

type addressBookTestDefinition struct {
	jsonData       string
	expectedObject *network.AddressBook
}

var addressBookTests = []addressBookTestDefinition{
	{
		jsonData: `
{
  "nodes": [
    {
      "nodeAccountId": "0.0.3",
      "address": "node0.example.com",
      "port": 50211,
      "description": "first node"
    },
    {
      "nodeAccountId": "0.0.4",
      "address": "10.0.0.4",
      "port": 50211
    }
  ],
  "mirror": [
    "mirror.example.com:443"
  ]
}
`,
		expectedObject: &network.AddressBook{
			Nodes: []network.AddressBookEntry{
				{
					NodeEndpoint: network.NodeEndpoint{
						Node:    ledger.NewAccountId(0, 0, 3),
						Address: "node0.example.com",
						Port:    50211,
					},
					Description: "first node",
				},
				{
					NodeEndpoint: network.NodeEndpoint{
						Node:    ledger.NewAccountId(0, 0, 4),
						Address: "10.0.0.4",
						Port:    50211,
					},
				},
			},
			Mirror: []string{"mirror.example.com:443"},
		},
	},
}

func TestParseAddressBook(t *testing.T) {
	for _, test := range addressBookTests {
		book, err := network.NewAddressBookFromReader(strings.NewReader(test.jsonData))
		if err != nil {
			t.Fatalf("failed to load address book: %s", err)
		}
		if !reflect.DeepEqual(book, test.expectedObject) {
			t.Fatalf(
				"did not get expected object\n  got:\n    %#v\n  wanted:\n    %#v",
				book,
				test.expectedObject,
			)
		}
		endpoints := book.Endpoints()
		if len(endpoints) != len(test.expectedObject.Nodes) {
			t.Fatalf("did not get expected endpoint count: got %d", len(endpoints))
		}
	}
}

func TestParseAddressBookInvalid(t *testing.T) {
	testDefs := []string{
		`{"nodes": []}`,
		`{"nodes": [{"nodeAccountId": "0.0.3", "port": 50211}]}`,
		`{"nodes": [{"nodeAccountId": "bogus", "address": "a", "port": 1}]}`,
		`not json`,
	}
	for _, jsonData := range testDefs {
		if _, err := network.NewAddressBookFromReader(strings.NewReader(jsonData)); err == nil {
			t.Fatalf("did not get expected error for input: %s", jsonData)
		}
	}
}
