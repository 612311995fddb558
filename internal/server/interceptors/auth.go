package interceptors

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"auth-service/backend/internal/security"
)

const bearerPrefix = "bearer "

// Status messages match the stable error codes returned by the auth handlers.
var (
	errNoBearer     = status.Error(codes.Unauthenticated, "missing_token")
	errTokenExpired = status.Error(codes.Unauthenticated, "token_expired")
	errTokenInvalid = status.Error(codes.Unauthenticated, "token_invalid")
)

// AuthUnary authenticates protected RPCs with the Bearer access token and stores the
// subject and roles in the context. Methods in publicMethods run without a token; when they
// carry one that verifies, the identity is still attached, and a bad one is ignored.
func AuthUnary(tokens *security.TokenCodec, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		authCtx, err := authenticate(ctx, tokens)
		switch {
		case err == nil:
			return handler(authCtx, req)
		case publicMethods[info.FullMethod]:
			return handler(ctx, req)
		default:
			return nil, err
		}
	}
}

func authenticate(ctx context.Context, tokens *security.TokenCodec) (context.Context, error) {
	raw := extractBearer(ctx)
	if raw == "" {
		return nil, errNoBearer
	}
	claims, err := tokens.DecodeAccess(raw)
	switch {
	case errors.Is(err, security.ErrTokenExpired):
		return nil, errTokenExpired
	case err != nil, claims.Type == security.TokenTypeRefresh:
		return nil, errTokenInvalid
	}
	return WithIdentity(ctx, claims.Subject, claims.Roles), nil
}

// extractBearer returns the token of an "authorization: Bearer <token>" header, matching the
// scheme case-insensitively, or "".
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) || !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
