package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	authv1 "auth-service/backend/api/auth/v1"
	healthhandler "auth-service/backend/internal/health/handler"
	identityhandler "auth-service/backend/internal/identity/handler"
	identityservice "auth-service/backend/internal/identity/service"
	"auth-service/backend/internal/security"
	"auth-service/backend/internal/server/interceptors"
)

// Deps holds optional service dependencies for gRPC handlers.
type Deps struct {
	// Auth is the auth service for the AuthService RPCs. If nil, auth RPCs return Unimplemented.
	Auth *identityservice.AuthService
	// Tokens validates Bearer access tokens on protected RPCs. Required by NewServer.
	Tokens *security.TokenCodec
	// HealthDeps are pinged by the health service for readiness (e.g. store). If empty, the server always reports SERVING.
	HealthDeps map[string]healthhandler.Pinger
	// OptionalHealthDeps are reported under their own service name but never make the server
	// NOT_SERVING (e.g. the cache, which the auth flows can run without).
	OptionalHealthDeps map[string]healthhandler.Pinger
	// Logger receives one line per RPC.
	Logger zerolog.Logger
}

// PublicMethods can be called without a Bearer token.
var PublicMethods = map[string]bool{
	authv1.AuthService_Register_FullMethodName: true,
	authv1.AuthService_Login_FullMethodName:    true,
	authv1.AuthService_Refresh_FullMethodName:  true,
	authv1.AuthService_Logout_FullMethodName:   true,
	healthpb.Health_Check_FullMethodName:       true,
	healthpb.Health_Watch_FullMethodName:       true,
}

// quietMethods are not request-logged.
var quietMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// RegisterServices registers the gRPC services with the given server.
//
//   - AuthService → internal/identity/handler
//   - Health      → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authv1.RegisterAuthServiceServer(s, identityhandler.NewAuthServer(deps.Auth))
	healthpb.RegisterHealthServer(s, healthhandler.NewServer(deps.HealthDeps, authv1.ServiceName).WithOptional(deps.OptionalHealthDeps))
}

// NewServer builds a gRPC server with the interceptor chain (origin, request logging,
// authentication), OpenTelemetry stats handler, and all services registered. Logging wraps
// authentication so rejected calls are logged.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.OriginUnary(),
			interceptors.LoggingUnary(deps.Logger, quietMethods),
			interceptors.AuthUnary(deps.Tokens, PublicMethods),
		),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}
