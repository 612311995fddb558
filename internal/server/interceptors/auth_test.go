package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"auth-service/backend/internal/platform/clock"
	"auth-service/backend/internal/security"
)

func newTokens() *security.TokenCodec {
	return security.NewTestTokenCodec(clock.NewManual(time.Now()))
}

func bearerContext(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": "Bearer " + token,
	}))
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "success", nil
}

func requireUnauthenticated(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("error is not a gRPC status: %v", err)
	}
	if st.Code() != codes.Unauthenticated {
		t.Errorf("status code = %v, want %v", st.Code(), codes.Unauthenticated)
	}
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	interceptor := AuthUnary(newTokens(), map[string]bool{"/test.Service/PublicMethod": true})

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/PublicMethod",
	}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_PublicMethod_BadTokenIgnored(t *testing.T) {
	interceptor := AuthUnary(newTokens(), map[string]bool{"/test.Service/PublicMethod": true})

	_, err := interceptor(bearerContext("invalid-token"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/PublicMethod",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		if _, ok := GetUserID(ctx); ok {
			t.Error("no identity should be set for a bad token")
		}
		return "success", nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
}

func TestAuthUnary_ProtectedMethod_NoToken(t *testing.T) {
	interceptor := AuthUnary(newTokens(), map[string]bool{})

	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, okHandler)
	requireUnauthenticated(t, err)
	if msg := status.Convert(err).Message(); msg != "missing_token" {
		t.Errorf("message = %q, want %q", msg, "missing_token")
	}
}

func TestAuthUnary_ProtectedMethod_ValidToken(t *testing.T) {
	tokens := newTokens()
	token, _, err := tokens.IssueAccess("user-1", []string{"admin", "user"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	interceptor := AuthUnary(tokens, map[string]bool{})

	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		userID, ok := GetUserID(ctx)
		if !ok || userID != "user-1" {
			t.Errorf("user_id = %q, ok = %v, want %q", userID, ok, "user-1")
		}
		if !HasRole(ctx, "admin") || !HasRole(ctx, "user") {
			t.Errorf("roles = %v", GetRoles(ctx))
		}
		return "success", nil
	}
	resp, err := interceptor(bearerContext(token), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "success" {
		t.Errorf("response = %v, want %q", resp, "success")
	}
}

func TestAuthUnary_ProtectedMethod_InvalidToken(t *testing.T) {
	interceptor := AuthUnary(newTokens(), map[string]bool{})

	_, err := interceptor(bearerContext("invalid-token"), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, okHandler)
	requireUnauthenticated(t, err)
}

func TestAuthUnary_ProtectedMethod_RefreshTokenRejected(t *testing.T) {
	tokens := newTokens()
	refresh, _, err := tokens.IssueRefresh("user-1")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	interceptor := AuthUnary(tokens, map[string]bool{})

	_, err = interceptor(bearerContext(refresh), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, okHandler)
	requireUnauthenticated(t, err)
}

func TestAuthUnary_ProtectedMethod_ExpiredToken(t *testing.T) {
	clk := clock.NewManual(time.Now())
	tokens := security.NewTestTokenCodec(clk)
	token, _, err := tokens.IssueAccess("user-1", nil)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	clk.Advance(time.Hour)
	interceptor := AuthUnary(tokens, map[string]bool{})

	_, err = interceptor(bearerContext(token), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/ProtectedMethod",
	}, okHandler)
	requireUnauthenticated(t, err)
	if msg := status.Convert(err).Message(); msg != "token_expired" {
		t.Errorf("message = %q, want %q", msg, "token_expired")
	}
}

func TestAuthUnary_PublicMethod_ValidTokenAttachesIdentity(t *testing.T) {
	tokens := newTokens()
	token, _, err := tokens.IssueAccess("user-7", nil)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	interceptor := AuthUnary(tokens, map[string]bool{"/test.Service/Public": true})

	var got string
	_, err = interceptor(bearerContext(token), "request", &grpc.UnaryServerInfo{
		FullMethod: "/test.Service/Public",
	}, func(ctx context.Context, req interface{}) (interface{}, error) {
		got, _ = GetUserID(ctx)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if got != "user-7" {
		t.Errorf("user_id = %q, want %q", got, "user-7")
	}
}

func TestExtractBearer_Valid(t *testing.T) {
	if token := extractBearer(bearerContext("token123")); token != "token123" {
		t.Errorf("token = %q, want %q", token, "token123")
	}
}

func TestExtractBearer_CaseInsensitive(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": "bearer token123",
	}))
	if token := extractBearer(ctx); token != "token123" {
		t.Errorf("token = %q, want %q", token, "token123")
	}
}

func TestExtractBearer_Missing(t *testing.T) {
	if token := extractBearer(context.Background()); token != "" {
		t.Errorf("token = %q, want empty", token)
	}
}

func TestExtractBearer_InvalidPrefix(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": "Basic token123",
	}))
	if token := extractBearer(ctx); token != "" {
		t.Errorf("token = %q, want empty", token)
	}
}

func TestExtractBearer_Whitespace(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.New(map[string]string{
		"authorization": "  Bearer   token123  ",
	}))
	if token := extractBearer(ctx); token != "token123" {
		t.Errorf("token = %q, want %q", token, "token123")
	}
}
