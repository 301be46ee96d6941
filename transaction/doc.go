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

// Package transaction implements the freeze-then-sign transaction lifecycle.
//
// A Transaction starts in Building. Freeze binds its transaction id and designated nodes
// and encodes one body per node. Sign adds signatures while Frozen, and MarkSigned checks
// that every required signer is present. Execute hands the signed transaction to an
// engine.Engine and records the terminal state.
package transaction
