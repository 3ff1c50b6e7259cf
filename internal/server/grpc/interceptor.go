package grpc

import (
	"context"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// tokenFromMetadata reads the bearer token from "authorization" or, failing
// that, "access_token".
func tokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 && values[0] != "" {
		return auth.BearerToken(values[0])
	}
	if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}

// identityInterceptor attaches the caller's identity to the context. A missing
// or invalid token leaves the call anonymous; each operation's guard decides
// what anonymous callers may do.
func (s *GRPCServer) identityInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if accessToken := tokenFromMetadata(ctx); accessToken != "" {
		id, err := s.tokens.Parse(accessToken)
		if err != nil {
			s.logger.Warn(ctx, "invalid access token", "method", info.FullMethod, "error", err)
		} else {
			ctx = auth.WithIdentity(ctx, id)
		}
	}

	return handler(ctx, req)
}
