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

package transport

import (
	"errors"
	"fmt"
	"strings"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// isRetryableStatus reports whether a gRPC status means the call may succeed if retried
func isRetryableStatus(st *status.Status) bool {
	switch st.Code() {
	case codes.Unavailable,
		codes.ResourceExhausted,
		codes.DeadlineExceeded,
		codes.Aborted:
		return true
	case codes.Internal:
		// Proxies in front of nodes reset streams under load
		return strings.Contains(st.Message(), "RST_STREAM")
	}
	return false
}

// ClassifyError converts an error from a gRPC call against node into the error taxonomy.
// Retryable failures become protocol.TransportError. Anything else is returned wrapped
func ClassifyError(node ledger.AccountId, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("call to node %s failed: %w", node, err)
	}
	if isRetryableStatus(st) {
		return protocol.TransportError{Node: node, Err: err}
	}
	return fmt.Errorf("call to node %s failed: %w", node, err)
}

// IsRetryable reports whether err is a transport failure worth retrying
func IsRetryable(err error) bool {
	var transportErr protocol.TransportError
	return errors.As(err, &transportErr)
}

// IsRetryableStreamError reports whether a subscription that failed with err should be
// re-established
func IsRetryableStreamError(err error) bool {
	if IsRetryable(err) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	// The mirror reports NotFound for a topic it has not ingested yet
	return isRetryableStatus(st) || st.Code() == codes.NotFound
}
