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

package network

import (
	"errors"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
)

// AddressBook is a list of network nodes and mirror endpoints, loaded from JSON
type AddressBook struct {
	Nodes  []AddressBookEntry `json:"nodes"`
	Mirror []string           `json:"mirror"`
}

type AddressBookEntry struct {
	NodeEndpoint
	Description string `json:"description,omitempty"`
}

// Endpoints returns the node endpoints listed in the address book
func (a *AddressBook) Endpoints() []NodeEndpoint {
	ret := make([]NodeEndpoint, 0, len(a.Nodes))
	for _, entry := range a.Nodes {
		ret = append(ret, entry.NodeEndpoint)
	}
	return ret
}

func (a *AddressBook) validate() error {
	if len(a.Nodes) == 0 {
		return errors.New("address book contains no nodes")
	}
	for _, entry := range a.Nodes {
		if entry.Address == "" || entry.Port == 0 {
			return fmt.Errorf("address book entry for node %s is missing address or port", entry.Node)
		}
	}
	return nil
}

func NewAddressBookFromFile(path string) (*AddressBook, error) {
	dataFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer dataFile.Close()
	return NewAddressBookFromReader(dataFile)
}

func NewAddressBookFromReader(r io.Reader) (*AddressBook, error) {
	a := &AddressBook{}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}
