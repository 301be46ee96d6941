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

// Package mirror consumes topic message feeds from mirror nodes.
//
// The Assembler turns the raw feed into messages, putting chunked messages back together
// regardless of the order their chunks arrive in. A Subscription drives an Assembler from a
// live feed, reconnecting after transport failures and delivering messages to a handler
// through a bounded queue.
package mirror
