package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// Verifier confirms a credential is still accepted by the backend and
// returns the canonical identity it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (domain.UserIdentity, error)
}

type apiVerifier struct {
	client *Client
}

// NewVerifier verifies tokens against GET /api/user/profile.
func NewVerifier(client *Client) Verifier {
	return &apiVerifier{client: client}
}

// Verify returns ErrInvalidToken when the backend rejects the token and
// ErrVerificationUnavailable when it cannot be reached. An empty token
// is invalid without a network call.
func (v *apiVerifier) Verify(ctx context.Context, token string) (domain.UserIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.UserIdentity{}, ErrInvalidToken
	}

	user, err := v.client.Profile(ctx, token)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return domain.UserIdentity{}, fmt.Errorf("%w: %s", ErrInvalidToken, apiErr.Error())
		}
		return domain.UserIdentity{}, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return user, nil
}
