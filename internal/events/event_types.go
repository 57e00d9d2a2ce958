package events

import (
	"time"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered         EventType = "user_registered"
	EventUserLoggedIn           EventType = "user_logged_in"
	EventPasswordResetRequested EventType = "password_reset_requested"
	EventImpersonationStarted   EventType = "impersonation_started"
	EventImpersonationEnded     EventType = "impersonation_ended"
)

// Actor encapsulates who triggered an event. ImpersonatedBy is set
// when the actor was a delegated session.
type Actor struct {
	UserID         string      `json:"user_id"`
	Role           domain.Role `json:"role"`
	ImpersonatedBy *string     `json:"impersonated_by,omitempty"`
}

// Event represents an auth event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ImpersonationStartedPayload payload.
type ImpersonationStartedPayload struct {
	OriginalUserID string `json:"original_user_id"`
	TargetUserID   string `json:"target_user_id"`
	TokenID        string `json:"token_id"`
}

// ImpersonationEndedPayload payload.
type ImpersonationEndedPayload struct {
	OriginalUserID string `json:"original_user_id"`
	TargetUserID   string `json:"target_user_id"`
	TokenID        string `json:"token_id"`
}

// PasswordResetRequestedPayload payload.
type PasswordResetRequestedPayload struct {
	UserID string `json:"user_id"`
}
