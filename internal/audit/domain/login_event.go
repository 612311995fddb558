package domain

import "time"

// Result is the outcome of a login attempt.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFail    Result = "fail"
)

// Reason codes recorded on failed attempts.
const (
	ReasonBadCredentials = "bad credentials"
)

// LoginEvent is one append-only row of the login audit trail. Never mutated or deleted by the core.
type LoginEvent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"` // empty when the identity is unknown
	Timestamp time.Time `json:"ts"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Result    Result    `json:"result"`
	Reason    string    `json:"reason,omitempty"`
}
