package dto

import "github.com/spec-kit/homeserve-auth/internal/domain"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// SessionResponse pairs an identity with its issued token. The user
// field uses the same JSON shape the client session store persists.
type SessionResponse struct {
	User  domain.UserIdentity `json:"user"`
	Token string              `json:"token"`
}

// NewSessionResponse builds a SessionResponse from an account.
func NewSessionResponse(user *domain.User, token string) SessionResponse {
	return SessionResponse{User: user.UserIdentity, Token: token}
}

// PasswordResetRequest starts a reset flow.
type PasswordResetRequest struct {
	Phone string `json:"phone"`
}

// PasswordResetConfirm completes a reset flow.
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// PasswordChangeRequest changes the password of the authenticated user.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
