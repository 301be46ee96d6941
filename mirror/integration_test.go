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

package mirror_test

import (
	"context"
	"testing"

	"github.com/blinklabs-io/gohiero/internal/test/mocknode"
	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/mirror"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Runs a subscription over gRPC against in-memory mirrors, failing over from one mirror to
// the other part way through a chunked message
func TestSubscriptionOverGrpc(t *testing.T) {
	k1 := ledger.NewTransactionId(payer)
	k2 := ledger.NewTransactionId(payer)
	first := mocknode.NewMirrorServer(mocknode.MirrorSession{
		Messages: []*protocol.TopicResponse{
			chunkResponse(1, k1, 1, 2, "k1a"),
			chunkResponse(2, k1, 2, 2, "k1b"),
			chunkResponse(3, k2, 1, 2, "k2a"),
		},
		Err: status.Error(codes.Unavailable, "mirror restarting"),
	})
	second := mocknode.NewMirrorServer(mocknode.MirrorSession{
		Messages: []*protocol.TopicResponse{
			chunkResponse(3, k2, 1, 2, "k2a"),
			chunkResponse(4, k2, 2, 2, "k2b"),
			singleResponse(5, "last"),
		},
	})
	net := mocknode.NewNetwork()
	defer net.Stop()
	net.Add("10.0.0.1:5600", nil, first)
	net.Add("10.0.0.2:5600", nil, second)
	client := transport.NewNodeClient(
		transport.WithDialOptions(net.DialOption()),
		transport.WithLogger(discardLogger),
	)
	defer client.Close()

	collector := newMessageCollector()
	sub, err := mirror.Subscribe(
		context.Background(),
		client,
		[]string{"10.0.0.1:5600", "10.0.0.2:5600"},
		topic,
		ts(1),
		collector.handle,
		collector.handleError,
		mirror.WithLogger(discardLogger),
	)
	require.NoError(t, err)
	require.NoError(t, sub.Wait())
	assert.Equal(t, []string{"k1ak1b", "k2ak2b", "last"}, collector.contents())
	require.Len(t, first.Queries(), 1)
	require.Len(t, second.Queries(), 1)
	assert.Equal(t, topic, second.Queries()[0].TopicId)
	assert.Equal(t, ts(2).Next(), second.Queries()[0].Start)
	assert.Empty(t, collector.errors())
}
