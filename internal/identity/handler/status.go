package handler

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"auth-service/backend/internal/identity/service"
)

var kindCodes = map[service.Kind]codes.Code{
	service.KindInvalidCredentials: codes.Unauthenticated,
	service.KindTokenExpired:       codes.Unauthenticated,
	service.KindTokenInvalid:       codes.Unauthenticated,
	service.KindSessionRevoked:     codes.Unauthenticated,
	service.KindSessionNotFound:    codes.Unauthenticated,
	service.KindUserMismatch:       codes.Unauthenticated,
	service.KindRateLimited:        codes.ResourceExhausted,
	service.KindConflict:           codes.Aborted,
	service.KindServiceUnavailable: codes.Unavailable,
	service.KindSamePassword:       codes.InvalidArgument,
	service.KindInvalidArgument:    codes.InvalidArgument,
	service.KindLoginTaken:         codes.AlreadyExists,
	service.KindEmailTaken:         codes.AlreadyExists,
	service.KindUserNotFound:       codes.NotFound,
}

// ToStatus maps a service error to a gRPC status. The message is only the stable error code;
// causes never reach the client. Errors outside the service taxonomy become Internal.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	kind := service.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = codes.Internal
	}
	return status.Error(code, kind.Code())
}
