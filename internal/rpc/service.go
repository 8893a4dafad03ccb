// Package rpc is the gRPC contract between clients and the sync server.
//
// The service is described by hand rather than generated: every message is
// a protobuf well-known wrapper, and structured payloads travel as JSON
// inside wrapperspb.BytesValue.
package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "readersync.v1.SyncGroups"

// Full method names.
const (
	PingMethod        = "/" + ServiceName + "/Ping"
	GroupExistsMethod = "/" + ServiceName + "/GroupExists"
	CreateGroupMethod = "/" + ServiceName + "/CreateGroup"
	GetGroupMethod    = "/" + ServiceName + "/GetGroup"
	PutGroupMethod    = "/" + ServiceName + "/PutGroup"
)

// DeviceIDHeader carries the caller's anonymous device id in request
// metadata.
const DeviceIDHeader = "x-device-id"

// SyncGroupsServer is implemented by the sync server.
//
// GroupExists and GetGroup take the sync code. CreateGroup takes a JSON
// CreateGroupRequest, GetGroup answers with a JSON GroupSnapshot, PutGroup
// takes a JSON PutGroupRequest and answers with a JSON PutGroupResponse.
type SyncGroupsServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GroupExists(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	CreateGroup(context.Context, *wrapperspb.BytesValue) (*emptypb.Empty, error)
	GetGroup(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	PutGroup(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// RegisterSyncGroupsServer attaches srv to s.
func RegisterSyncGroupsServer(s grpc.ServiceRegistrar, srv SyncGroupsServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc is the grpc.ServiceDesc for SyncGroups.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SyncGroupsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unary(PingMethod, SyncGroupsServer.Ping)},
		{MethodName: "GroupExists", Handler: unary(GroupExistsMethod, SyncGroupsServer.GroupExists)},
		{MethodName: "CreateGroup", Handler: unary(CreateGroupMethod, SyncGroupsServer.CreateGroup)},
		{MethodName: "GetGroup", Handler: unary(GetGroupMethod, SyncGroupsServer.GetGroup)},
		{MethodName: "PutGroup", Handler: unary(PutGroupMethod, SyncGroupsServer.PutGroup)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "readersync/v1/sync_groups",
}

// unary builds the method handler protoc-gen-go-grpc would generate for one
// unary call.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](fullMethod string, call func(SyncGroupsServer, context.Context, PReq) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := PReq(new(Req))
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SyncGroupsServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(SyncGroupsServer), ctx, req.(PReq))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// SyncGroupsClient is the client side of SyncGroups.
type SyncGroupsClient interface {
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GroupExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error)
	CreateGroup(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetGroup(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	PutGroup(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type syncGroupsClient struct {
	cc grpc.ClientConnInterface
}

func NewSyncGroupsClient(cc grpc.ClientConnInterface) SyncGroupsClient {
	return &syncGroupsClient{cc: cc}
}

func (c *syncGroupsClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, PingMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncGroupsClient) GroupExists(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, GroupExistsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncGroupsClient) CreateGroup(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, CreateGroupMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncGroupsClient) GetGroup(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, GetGroupMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *syncGroupsClient) PutGroup(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, PutGroupMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
