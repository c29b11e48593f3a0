// Package grpcval exposes the validation service over gRPC, typically on a
// second local Unix socket.
//
// Messages are the JSON documents of package wire carried in protobuf
// well-known wrapper types, so no protoc/codegen step is needed.
package grpcval

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName    = "xyron.core.v1.Validator"
	validateMethod = "/" + serviceName + "/Validate"
)

// ValidatorServer is the server API for the Validator gRPC service.
type ValidatorServer interface {
	Validate(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

// UnimplementedValidatorServer can be embedded to have forward compatible implementations.
type UnimplementedValidatorServer struct{}

func (UnimplementedValidatorServer) Validate(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Validate not implemented")
}

// RegisterValidatorServer registers the Validator service on a gRPC server.
func RegisterValidatorServer(s grpc.ServiceRegistrar, srv ValidatorServer) {
	s.RegisterService(&Validator_ServiceDesc, srv)
}

// ValidatorClient is the client API for the Validator gRPC service.
type ValidatorClient interface {
	Validate(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type validatorClient struct{ cc grpc.ClientConnInterface }

func NewValidatorClient(cc grpc.ClientConnInterface) ValidatorClient {
	return &validatorClient{cc: cc}
}

func (c *validatorClient) Validate(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, validateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func _Validator_Validate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ValidatorServer).Validate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: validateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ValidatorServer).Validate(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Validator_ServiceDesc is the grpc.ServiceDesc for the Validator service.
var Validator_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ValidatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Validate", Handler: _Validator_Validate_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "validator.proto",
}
