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

package hiero

import (
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/network"
)

func node(num uint64, address string, port uint) network.NodeEndpoint {
	return network.NodeEndpoint{
		Node:    ledger.NewAccountId(0, 0, num),
		Address: address,
		Port:    port,
	}
}

// Network definitions
var (
	NetworkMainnet = Network{
		Name: "mainnet",
		Nodes: []network.NodeEndpoint{
			node(3, "35.237.200.180", 50211),
			node(4, "35.186.191.247", 50211),
			node(5, "35.192.2.25", 50211),
			node(6, "35.199.161.108", 50211),
			node(7, "35.203.82.240", 50211),
		},
		Mirror: []string{"mainnet-public.mirrornode.hedera.com:443"},
	}
	NetworkTestnet = Network{
		Name: "testnet",
		Nodes: []network.NodeEndpoint{
			node(3, "0.testnet.hedera.com", 50211),
			node(4, "1.testnet.hedera.com", 50211),
			node(5, "2.testnet.hedera.com", 50211),
			node(6, "3.testnet.hedera.com", 50211),
		},
		Mirror: []string{"testnet.mirrornode.hedera.com:443"},
	}
	NetworkPreviewnet = Network{
		Name: "previewnet",
		Nodes: []network.NodeEndpoint{
			node(3, "0.previewnet.hedera.com", 50211),
			node(4, "1.previewnet.hedera.com", 50211),
			node(5, "2.previewnet.hedera.com", 50211),
		},
		Mirror: []string{"previewnet.mirrornode.hedera.com:443"},
	}
	NetworkLocal = Network{
		Name:   "local",
		Nodes:  []network.NodeEndpoint{node(3, "127.0.0.1", 50211)},
		Mirror: []string{"127.0.0.1:5600"},
	}

	NetworkInvalid = Network{
		Name: "invalid",
	} // NetworkInvalid is used as a return value for lookup functions when a network isn't found
)

// List of valid networks for use in lookup functions
var networks = []Network{
	NetworkMainnet,
	NetworkTestnet,
	NetworkPreviewnet,
	NetworkLocal,
}

// NetworkByName returns a predefined network by name
func NetworkByName(name string) Network {
	for _, network := range networks {
		if network.Name == name {
			return network
		}
	}
	return NetworkInvalid
}

// NetworkFromAddressBook returns a network made up of the nodes and mirrors in an address book
func NetworkFromAddressBook(name string, book *network.AddressBook) Network {
	return Network{
		Name:   name,
		Nodes:  book.Endpoints(),
		Mirror: book.Mirror,
	}
}

// Network is a set of consensus nodes plus the mirrors that serve their topic feeds
type Network struct {
	Name   string
	Nodes  []network.NodeEndpoint
	Mirror []string
}

func (n Network) String() string {
	return n.Name
}

// Valid reports whether the network has any nodes
func (n Network) Valid() bool {
	return len(n.Nodes) > 0
}
