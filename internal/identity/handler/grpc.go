package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	authv1 "auth-service/backend/api/auth/v1"
	"auth-service/backend/internal/identity/service"
	"auth-service/backend/internal/platform/rbac"
	"auth-service/backend/internal/server/interceptors"
	userdomain "auth-service/backend/internal/user/domain"
)

// AuthServer implements AuthService (gRPC) for registration, login, token rotation, logout
// and account changes.
type AuthServer struct {
	authv1.UnimplementedAuthServiceServer
	auth *service.AuthService
}

// NewAuthServer returns a new Auth gRPC server. Pass nil for a stub (Unimplemented).
func NewAuthServer(auth *service.AuthService) *AuthServer {
	return &AuthServer{auth: auth}
}

// fail records err's cause for the request log and converts it to a status.
func fail(ctx context.Context, err error) error {
	interceptors.RecordCause(ctx, err)
	return ToStatus(err)
}

func origin(ctx context.Context, device string) service.Origin {
	o := interceptors.GetOrigin(ctx)
	o.Device = device
	return o
}

func tokenResponse(p *service.TokenPair) *authv1.TokenResponse {
	return &authv1.TokenResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

func (s *AuthServer) Register(ctx context.Context, req *authv1.RegisterRequest) (*authv1.RegisterResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	u, err := s.auth.Register(ctx, service.RegisterInput{
		Login:     req.Login,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return nil, fail(ctx, err)
	}
	return &authv1.RegisterResponse{UserID: u.ID}, nil
}

func (s *AuthServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	pair, err := s.auth.Login(ctx, req.Login, req.Password, origin(ctx, req.Device))
	if err != nil {
		return nil, fail(ctx, err)
	}
	return tokenResponse(pair), nil
}

// Refresh rotates the refresh token. Replaying a rotated token returns Unauthenticated with
// code refresh_revoked.
func (s *AuthServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.TokenResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	pair, err := s.auth.Refresh(ctx, req.RefreshToken, origin(ctx, req.Device))
	if err != nil {
		return nil, fail(ctx, err)
	}
	return tokenResponse(pair), nil
}

func (s *AuthServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*authv1.LogoutResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, fail(ctx, err)
	}
	return &authv1.LogoutResponse{}, nil
}

// ChangePassword changes the caller's password and signs out every session.
func (s *AuthServer) ChangePassword(ctx context.Context, req *authv1.ChangePasswordRequest) (*authv1.ChangePasswordResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method ChangePassword not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auth.ChangePassword(ctx, userID, req.CurrentPassword, req.NewPassword); err != nil {
		return nil, fail(ctx, err)
	}
	return &authv1.ChangePasswordResponse{}, nil
}

func (s *AuthServer) ChangeLogin(ctx context.Context, req *authv1.ChangeLoginRequest) (*authv1.ChangeLoginResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method ChangeLogin not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.auth.ChangeLogin(ctx, userID, req.NewLogin); err != nil {
		return nil, fail(ctx, err)
	}
	return &authv1.ChangeLoginResponse{}, nil
}

// LoginHistory returns the caller's login events, newest first. Admins may pass another user id.
func (s *AuthServer) LoginHistory(ctx context.Context, req *authv1.LoginHistoryRequest) (*authv1.LoginHistoryResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method LoginHistory not implemented")
	}
	userID, err := rbac.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.UserID != "" && req.UserID != userID {
		if _, err := rbac.RequireRole(ctx, userdomain.AdminRole); err != nil {
			return nil, err
		}
		userID = req.UserID
	}
	page, err := s.auth.LoginHistory(ctx, userID, req.Page, req.PageSize)
	if err != nil {
		return nil, fail(ctx, err)
	}
	resp := &authv1.LoginHistoryResponse{
		Items:    make([]*authv1.LoginEvent, 0, len(page.Items)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
	for _, e := range page.Items {
		resp.Items = append(resp.Items, &authv1.LoginEvent{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Result:    string(e.Result),
			Reason:    e.Reason,
		})
	}
	return resp, nil
}
