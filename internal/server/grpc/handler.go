// Package grpc serves the account operations over gRPC. Every operation is a
// unary method of accountkeeper.v1.AccountService taking and returning a
// google.protobuf.Struct: the operation's variables in, its envelope out.
package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/accountkeeper/internal/server/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "accountkeeper.v1.AccountService"

// FullMethod returns the gRPC method path of operation op.
func FullMethod(op string) string {
	return "/" + ServiceName + "/" + op
}

// AccountServiceServer runs one operation with its variables.
type AccountServiceServer interface {
	Call(ctx context.Context, op string, in *structpb.Struct) (*structpb.Struct, error)
}

func serviceDesc(ops []string) *grpc.ServiceDesc {
	methods := make([]grpc.MethodDesc, 0, len(ops))
	for _, op := range ops {
		methods = append(methods, grpc.MethodDesc{MethodName: op, Handler: methodHandler(op)})
	}
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*AccountServiceServer)(nil),
		Methods:     methods,
		Streams:     []grpc.StreamDesc{},
		Metadata:    "accountkeeper/v1/account_service.proto",
	}
}

func methodHandler(op string) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return srv.(AccountServiceServer).Call(ctx, op, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(op)}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(AccountServiceServer).Call(ctx, op, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Call runs op through the dispatcher and returns its envelope. Transport
// errors are reserved for payloads that cannot be converted; operation
// failures are envelopes with an OK status.
func (s *GRPCServer) Call(ctx context.Context, op string, in *structpb.Struct) (*structpb.Struct, error) {
	var variables []byte
	if in != nil {
		b, err := protojson.Marshal(in)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "malformed variables")
		}
		variables = b
	}

	env, err := s.dispatcher.Call(ctx, op, variables)
	if err != nil {
		if errors.Is(err, api.ErrUnknownOperation) {
			return nil, status.Error(codes.Unimplemented, err.Error())
		}
		return nil, status.Error(codes.Internal, "internal error")
	}

	out, err := envelopeToStruct(env)
	if err != nil {
		s.logger.Error(ctx, "encode envelope", "operation", op, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func envelopeToStruct(env api.Envelope) (*structpb.Struct, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
