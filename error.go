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
	"errors"
)

var (
	// ErrNoOperator is returned when an operation needs the operator account or key and none
	// was configured
	ErrNoOperator = errors.New("no operator configured")
	// ErrNoMirror is returned by Subscribe when the network has no mirror addresses
	ErrNoMirror = errors.New("no mirror addresses configured")
)
