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

package mocknode

import (
	"context"
	"net"
	"sync"

	"github.com/blinklabs-io/gohiero/ledger"
	"github.com/blinklabs-io/gohiero/protocol"
	"github.com/blinklabs-io/gohiero/transport"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// NodeServer is a gRPC node that replies with a scripted conversation
type NodeServer struct {
	conversation
	node ledger.AccountId
}

// NewNodeServer returns a NodeServer for node with the provided conversation entries
func NewNodeServer(node ledger.AccountId, entries ...ConversationEntry) *NodeServer {
	return &NodeServer{
		conversation: conversation{entries: entries},
		node:         node,
	}
}

func serve[Resp any](ctx context.Context, s *NodeServer, method string, req any) (*Resp, error) {
	entry, err := s.next(s.node, method, req)
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}
	resp := new(Resp)
	if err := reply(ctx, entry, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *NodeServer) SubmitTransaction(
	ctx context.Context,
	req *protocol.TransactionRequest,
) (*protocol.TransactionResponse, error) {
	return serve[protocol.TransactionResponse](ctx, s, transport.MethodSubmitTransaction, req)
}

func (s *NodeServer) GetTransactionReceipt(
	ctx context.Context,
	req *protocol.ReceiptQuery,
) (*protocol.ReceiptResponse, error) {
	return serve[protocol.ReceiptResponse](ctx, s, transport.MethodGetTransactionReceipt, req)
}

func (s *NodeServer) GetTransactionRecord(
	ctx context.Context,
	req *protocol.RecordQuery,
) (*protocol.RecordResponse, error) {
	return serve[protocol.RecordResponse](ctx, s, transport.MethodGetTransactionRecord, req)
}

// MirrorSession scripts one subscription: the messages to send, then how the stream ends.
// A nil Err ends the stream cleanly unless Hold is set, in which case the stream stays open
// until the client goes away
type MirrorSession struct {
	Messages []*protocol.TopicResponse
	Err      error
	Hold     bool
}

// MirrorServer is a gRPC mirror that plays one scripted session per subscription
type MirrorServer struct {
	mutex    sync.Mutex
	sessions []MirrorSession
	queries  []*protocol.TopicQuery
}

func NewMirrorServer(sessions ...MirrorSession) *MirrorServer {
	return &MirrorServer{sessions: sessions}
}

func (m *MirrorServer) SubscribeTopic(query *protocol.TopicQuery, sender transport.TopicSender) error {
	m.mutex.Lock()
	m.queries = append(m.queries, query)
	if len(m.sessions) == 0 {
		m.mutex.Unlock()
		return status.Error(codes.FailedPrecondition, ErrConversationExhausted.Error())
	}
	session := m.sessions[0]
	m.sessions = m.sessions[1:]
	m.mutex.Unlock()
	for _, msg := range session.Messages {
		if err := sender.Send(msg); err != nil {
			return err
		}
	}
	if session.Err != nil {
		return session.Err
	}
	if session.Hold {
		<-sender.Context().Done()
	}
	return nil
}

// Queries returns every subscription request seen so far
func (m *MirrorServer) Queries() []*protocol.TopicQuery {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	ret := make([]*protocol.TopicQuery, len(m.queries))
	copy(ret, m.queries)
	return ret
}

// Listener is an in-memory gRPC listener hosting mock services
type Listener struct {
	lis    *bufconn.Listener
	server *grpc.Server
}

// Serve starts a gRPC server on an in-memory listener with the provided services
func Serve(node transport.NodeServer, mirror transport.MirrorServer) *Listener {
	l := &Listener{
		lis:    bufconn.Listen(1024 * 1024),
		server: grpc.NewServer(),
	}
	if node != nil {
		transport.RegisterNodeServer(l.server, node)
	}
	if mirror != nil {
		transport.RegisterMirrorServer(l.server, mirror)
	}
	go func() {
		_ = l.server.Serve(l.lis)
	}()
	return l
}

// DialOption returns the option that routes every client connection to this listener
func (l *Listener) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return l.lis.DialContext(ctx)
	})
}

func (l *Listener) Stop() {
	l.server.Stop()
}

// Network routes client connections to per-address in-memory listeners, so each mock node
// only sees the calls addressed to it. Addresses must be IP literals
type Network struct {
	mutex     sync.Mutex
	listeners map[string]*Listener
}

func NewNetwork() *Network {
	return &Network{listeners: make(map[string]*Listener)}
}

// Add hosts services at address
func (n *Network) Add(address string, node transport.NodeServer, mirror transport.MirrorServer) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.listeners[address] = Serve(node, mirror)
}

func (n *Network) DialOption() grpc.DialOption {
	return grpc.WithContextDialer(func(ctx context.Context, address string) (net.Conn, error) {
		n.mutex.Lock()
		l, ok := n.listeners[address]
		n.mutex.Unlock()
		if !ok {
			return nil, status.Errorf(codes.Unavailable, "no mock listening on %s", address)
		}
		return l.lis.DialContext(ctx)
	})
}

func (n *Network) Stop() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	for _, l := range n.listeners {
		l.Stop()
	}
}
