package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "dashboard.control.v1.DashboardControl"

const (
	getStatusMethod     = "/" + serviceName + "/GetStatus"
	purgeCacheMethod    = "/" + serviceName + "/PurgeCache"
	searchSymbolsMethod = "/" + serviceName + "/SearchSymbols"
)

// DashboardControlServer is the server API of the control plane. Messages
// are protobuf well-known types so no generated code is needed.
type DashboardControlServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	PurgeCache(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SearchSymbols(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
}

// UnimplementedDashboardControlServer can be embedded for forward compatibility.
type UnimplementedDashboardControlServer struct{}

func (UnimplementedDashboardControlServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}
func (UnimplementedDashboardControlServer) PurgeCache(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method PurgeCache not implemented")
}
func (UnimplementedDashboardControlServer) SearchSymbols(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method SearchSymbols not implemented")
}

// -----------------------------------------------------------------------------

func RegisterDashboardControlServer(s grpc.ServiceRegistrar, srv DashboardControlServer) {
	s.RegisterService(&DashboardControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func getStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func purgeCacheHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).PurgeCache(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: purgeCacheMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).PurgeCache(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func searchSymbolsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DashboardControlServer).SearchSymbols(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: searchSymbolsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(DashboardControlServer).SearchSymbols(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// DashboardControl_ServiceDesc describes the control service for grpc.Server.
var DashboardControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*DashboardControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: getStatusHandler},
		{MethodName: "PurgeCache", Handler: purgeCacheHandler},
		{MethodName: "SearchSymbols", Handler: searchSymbolsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dashboard/control/v1/control.proto",
}

// -----------------------------------------------------------------------------
// Client
// -----------------------------------------------------------------------------

type DashboardControlClient struct {
	cc grpc.ClientConnInterface
}

func NewDashboardControlClient(cc grpc.ClientConnInterface) *DashboardControlClient {
	return &DashboardControlClient{cc: cc}
}

func (c *DashboardControlClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardControlClient) PurgeCache(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, purgeCacheMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *DashboardControlClient) SearchSymbols(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, searchSymbolsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
