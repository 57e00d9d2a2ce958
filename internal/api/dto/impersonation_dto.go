package dto

// ImpersonateRequest asks for a delegated session.
type ImpersonateRequest struct {
	TargetUserID   string `json:"targetUserId"`
	OriginalUserID string `json:"originalUserId"`
}

// ExitImpersonationRequest ends a delegated session.
type ExitImpersonationRequest struct {
	OriginalUserID string `json:"originalUserId"`
}
