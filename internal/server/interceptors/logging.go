package interceptors

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// requestRecord collects what inner interceptors and handlers learn about an RPC, so
// LoggingUnary can log it after they return.
type requestRecord struct {
	cause  error
	userID string
}

var recordKey = contextKey{"request_record"}

// RecordCause attaches the internal cause of a failed RPC for LoggingUnary. Handlers call it
// where they reduce an error to a client-safe status. No-op outside LoggingUnary.
func RecordCause(ctx context.Context, err error) {
	if r, ok := ctx.Value(recordKey).(*requestRecord); ok {
		r.cause = err
	}
}

// LoggingUnary returns a unary server interceptor that writes one log line per RPC.
// Server-side failures (Internal, Unavailable, Unknown) log at error with the wrapped cause
// when the handler attached one; everything else logs at debug.
// It runs ahead of AuthUnary so rejected calls are logged too; the user_id comes from any
// identity attached further down the chain.
// skipMethods is the set of full method names not logged (e.g. health checks).
func LoggingUnary(log zerolog.Logger, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		rec := &requestRecord{}
		resp, err := handler(context.WithValue(ctx, recordKey, rec), req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		var ev *zerolog.Event
		switch code {
		case codes.Internal, codes.Unavailable, codes.Unknown:
			ev = log.Error()
			if rec.cause != nil {
				ev = ev.AnErr("cause", rec.cause)
			}
		default:
			ev = log.Debug()
		}
		userID := rec.userID
		if userID == "" {
			userID, _ = GetUserID(ctx)
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Str("client_ip", GetOrigin(ctx).IPAddress).
			Str("user_id", userID).
			Msg("grpc request")
		return resp, err
	}
}
