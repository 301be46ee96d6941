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

package transaction

type State struct {
	Id   uint
	Name string
}

func NewState(id uint, name string) State {
	return State{
		Id:   id,
		Name: name,
	}
}

func (s State) String() string {
	return s.Name
}

var (
	StateBuilding   = NewState(1, "Building")
	StateFrozen     = NewState(2, "Frozen")
	StateSigned     = NewState(3, "Signed")
	StateSubmitting = NewState(4, "Submitting")
	StateSucceeded  = NewState(5, "Succeeded")
	StateFailed     = NewState(6, "Failed")
)

type StateMapEntry struct {
	Terminal    bool
	Transitions []State
}

type StateMap map[State]StateMapEntry

// Copy returns a copy of the state map
func (s StateMap) Copy() StateMap {
	ret := StateMap{}
	for k, v := range s {
		ret[k] = v
	}
	return ret
}

// CanTransition reports whether the map allows moving from one state to another
func (s StateMap) CanTransition(from State, to State) bool {
	entry, ok := s[from]
	if !ok {
		return false
	}
	for _, next := range entry.Transitions {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from the state
func (s StateMap) IsTerminal(state State) bool {
	return s[state].Terminal
}

// stateMap is the transaction lifecycle. Later states are only reachable through these
// transitions, so signed body bytes can never be rebuilt
var stateMap = StateMap{
	StateBuilding: StateMapEntry{
		Transitions: []State{StateFrozen},
	},
	StateFrozen: StateMapEntry{
		Transitions: []State{StateSigned},
	},
	StateSigned: StateMapEntry{
		Transitions: []State{StateSubmitting},
	},
	StateSubmitting: StateMapEntry{
		Transitions: []State{StateSucceeded, StateFailed},
	},
	StateSucceeded: StateMapEntry{
		Terminal: true,
	},
	StateFailed: StateMapEntry{
		Terminal: true,
	},
}

// LifecycleStateMap returns a copy of the transaction lifecycle
func LifecycleStateMap() StateMap {
	return stateMap.Copy()
}
