package interceptors

import (
	"context"
	"slices"

	sessiondomain "auth-service/backend/internal/session/domain"
)

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	rolesKey  = contextKey{"roles"}
	originKey = contextKey{"origin"}
)

// WithIdentity returns a context carrying the authenticated user_id and the roles from the access token.
func WithIdentity(ctx context.Context, userID string, roles []string) context.Context {
	if r, ok := ctx.Value(recordKey).(*requestRecord); ok {
		r.userID = userID
	}
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, rolesKey, roles)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetRoles returns the caller's roles, or nil for an unauthenticated context.
func GetRoles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey).([]string)
	return v
}

// HasRole reports whether the authenticated caller holds role.
func HasRole(ctx context.Context, role string) bool {
	return slices.Contains(GetRoles(ctx), role)
}

// WithOrigin returns a context carrying the client metadata recorded on sessions and audit rows.
func WithOrigin(ctx context.Context, o sessiondomain.Metadata) context.Context {
	return context.WithValue(ctx, originKey, o)
}

// GetOrigin returns the origin set by OriginUnary, or the zero value.
func GetOrigin(ctx context.Context) sessiondomain.Metadata {
	o, _ := ctx.Value(originKey).(sessiondomain.Metadata)
	return o
}
