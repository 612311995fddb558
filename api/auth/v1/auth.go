// Package authv1 defines the AuthService wire messages and gRPC service descriptor.
// Messages travel as JSON through the codec registered in codec.go.
package authv1

import "time"

type RegisterRequest struct {
	Login     string `json:"login"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type RegisterResponse struct {
	UserID string `json:"user_id"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	// Device is an optional client label stored on the session.
	Device string `json:"device,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	Device       string `json:"device,omitempty"`
}

// TokenResponse is returned by Login and Refresh.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutResponse struct{}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ChangePasswordResponse struct{}

type ChangeLoginRequest struct {
	NewLogin string `json:"new_login"`
}

type ChangeLoginResponse struct{}

// LoginHistoryRequest pages through the caller's login events. UserID selects another
// user and requires the admin role.
type LoginHistoryRequest struct {
	UserID   string `json:"user_id,omitempty"`
	Page     int    `json:"page,omitempty"`
	PageSize int    `json:"page_size,omitempty"`
}

type LoginEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"ts"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Result    string    `json:"result"`
	Reason    string    `json:"reason,omitempty"`
}

type LoginHistoryResponse struct {
	Items    []*LoginEvent `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}
