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
	"context"

	"github.com/blinklabs-io/gohiero/protocol"
	"google.golang.org/grpc"
)

// NodeServer is the server side of the node service. Used by local networks and tests
type NodeServer interface {
	SubmitTransaction(context.Context, *protocol.TransactionRequest) (*protocol.TransactionResponse, error)
	GetTransactionReceipt(context.Context, *protocol.ReceiptQuery) (*protocol.ReceiptResponse, error)
	GetTransactionRecord(context.Context, *protocol.RecordQuery) (*protocol.RecordResponse, error)
}

// TopicSender is the server side of a topic subscription stream
type TopicSender interface {
	Context() context.Context
	Send(*protocol.TopicResponse) error
}

// MirrorServer is the server side of the mirror service
type MirrorServer interface {
	SubscribeTopic(*protocol.TopicQuery, TopicSender) error
}

// RegisterNodeServer registers a NodeServer implementation with a gRPC server
func RegisterNodeServer(s grpc.ServiceRegistrar, srv NodeServer) {
	s.RegisterService(&nodeServiceDesc, srv)
}

// RegisterMirrorServer registers a MirrorServer implementation with a gRPC server
func RegisterMirrorServer(s grpc.ServiceRegistrar, srv MirrorServer) {
	s.RegisterService(&mirrorServiceDesc, srv)
}

// unaryHandler builds a grpc method handler for a NodeServer method
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(NodeServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(
		srv any,
		ctx context.Context,
		dec func(any) error,
		interceptor grpc.UnaryServerInterceptor,
	) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(NodeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(NodeServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var nodeServiceDesc = grpc.ServiceDesc{
	ServiceName: NodeServiceName,
	HandlerType: (*NodeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitTransaction",
			Handler: unaryHandler(
				MethodSubmitTransaction,
				NodeServer.SubmitTransaction,
			),
		},
		{
			MethodName: "GetTransactionReceipt",
			Handler: unaryHandler(
				MethodGetTransactionReceipt,
				NodeServer.GetTransactionReceipt,
			),
		},
		{
			MethodName: "GetTransactionRecord",
			Handler: unaryHandler(
				MethodGetTransactionRecord,
				NodeServer.GetTransactionRecord,
			),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hiero.cbor",
}

type topicSender struct {
	grpc.ServerStream
}

func (s *topicSender) Send(resp *protocol.TopicResponse) error {
	return s.SendMsg(resp)
}

func subscribeTopicHandler(srv any, stream grpc.ServerStream) error {
	in := new(protocol.TopicQuery)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MirrorServer).SubscribeTopic(in, &topicSender{stream})
}

var mirrorServiceDesc = grpc.ServiceDesc{
	ServiceName: MirrorServiceName,
	HandlerType: (*MirrorServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SubscribeTopic",
			Handler:       subscribeTopicHandler,
			ServerStreams: true,
		},
	},
	Metadata: "hiero.cbor",
}
