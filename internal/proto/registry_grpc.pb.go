// Hand-maintained gRPC bindings for proto/registry.proto. See doc.go.

package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	RegistryService_Register_FullMethodName            = "/registry.RegistryService/Register"
	RegistryService_EstablishConnection_FullMethodName = "/registry.RegistryService/EstablishConnection"
)

// RegistryServiceClient is the client API for RegistryService.
type RegistryServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	EstablishConnection(ctx context.Context, opts ...grpc.CallOption) (RegistryService_EstablishConnectionClient, error)
}

type registryServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRegistryServiceClient(cc grpc.ClientConnInterface) RegistryServiceClient {
	return &registryServiceClient{cc}
}

func (c *registryServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	err := c.cc.Invoke(ctx, RegistryService_Register_FullMethodName, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryServiceClient) EstablishConnection(ctx context.Context, opts ...grpc.CallOption) (RegistryService_EstablishConnectionClient, error) {
	stream, err := c.cc.NewStream(ctx, &RegistryService_ServiceDesc.Streams[0], RegistryService_EstablishConnection_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	return &registryServiceEstablishConnectionClient{stream}, nil
}

type RegistryService_EstablishConnectionClient interface {
	Send(*ConnectionMessage) error
	Recv() (*ConnectionMessage, error)
	grpc.ClientStream
}

type registryServiceEstablishConnectionClient struct {
	grpc.ClientStream
}

func (x *registryServiceEstablishConnectionClient) Send(m *ConnectionMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *registryServiceEstablishConnectionClient) Recv() (*ConnectionMessage, error) {
	m := new(ConnectionMessage)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegistryServiceServer is the server API for RegistryService. All
// implementations must embed UnimplementedRegistryServiceServer for forward
// compatibility.
type RegistryServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	EstablishConnection(RegistryService_EstablishConnectionServer) error
	mustEmbedUnimplementedRegistryServiceServer()
}

// UnimplementedRegistryServiceServer must be embedded for forward compatibility.
type UnimplementedRegistryServiceServer struct{}

func (UnimplementedRegistryServiceServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Register not implemented")
}

func (UnimplementedRegistryServiceServer) EstablishConnection(RegistryService_EstablishConnectionServer) error {
	return status.Errorf(codes.Unimplemented, "method EstablishConnection not implemented")
}

func (UnimplementedRegistryServiceServer) mustEmbedUnimplementedRegistryServiceServer() {}

func RegisterRegistryServiceServer(s grpc.ServiceRegistrar, srv RegistryServiceServer) {
	s.RegisterService(&RegistryService_ServiceDesc, srv)
}

func _RegistryService_Register_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RegistryServiceServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: RegistryService_Register_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(RegistryServiceServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _RegistryService_EstablishConnection_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(RegistryServiceServer).EstablishConnection(&registryServiceEstablishConnectionServer{stream})
}

type RegistryService_EstablishConnectionServer interface {
	Send(*ConnectionMessage) error
	Recv() (*ConnectionMessage, error)
	grpc.ServerStream
}

type registryServiceEstablishConnectionServer struct {
	grpc.ServerStream
}

func (x *registryServiceEstablishConnectionServer) Send(m *ConnectionMessage) error {
	return x.ServerStream.SendMsg(m)
}

func (x *registryServiceEstablishConnectionServer) Recv() (*ConnectionMessage, error) {
	m := new(ConnectionMessage)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// RegistryService_ServiceDesc is the grpc.ServiceDesc for RegistryService.
var RegistryService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "registry.RegistryService",
	HandlerType: (*RegistryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Register",
			Handler:    _RegistryService_Register_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "EstablishConnection",
			Handler:       _RegistryService_EstablishConnection_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "registry.proto",
}
