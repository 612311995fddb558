// Package rbac guards handlers on the identity and roles carried by the access token.
package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"auth-service/backend/internal/server/interceptors"
)

// RequireUser ensures the caller is authenticated. Returns the caller's user id, or an
// Unauthenticated gRPC error.
func RequireUser(ctx context.Context) (userID string, err error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	return userID, nil
}

// RequireRole ensures the caller is authenticated and holds role. Roles come from the access
// token, so a grant or revoke takes effect at the caller's next refresh.
// Returns Unauthenticated or PermissionDenied on failure.
func RequireRole(ctx context.Context, role string) (userID string, err error) {
	userID, err = RequireUser(ctx)
	if err != nil {
		return "", err
	}
	if !interceptors.HasRole(ctx, role) {
		return "", status.Errorf(codes.PermissionDenied, "role %q required", role)
	}
	return userID, nil
}
