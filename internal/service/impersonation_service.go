package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/domain"
	"github.com/spec-kit/homeserve-auth/internal/events"
	"github.com/spec-kit/homeserve-auth/internal/repository"
	apperrors "github.com/spec-kit/homeserve-auth/pkg/util/errorutil"
)

// ImpersonationService is the server-side authority for delegated
// sessions. It issues delegated tokens carrying an actor claim and
// keeps a TTL-bound registry of live delegations for auditing.
type ImpersonationService struct {
	users       repository.UserRepository
	delegations repository.DelegationRepository
	tokenMgr    *auth.TokenManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewImpersonationService builds the service.
func NewImpersonationService(
	users repository.UserRepository,
	delegations repository.DelegationRepository,
	tokenMgr *auth.TokenManager,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *ImpersonationService {
	return &ImpersonationService{
		users:       users,
		delegations: delegations,
		tokenMgr:    tokenMgr,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Impersonate issues a delegated session for the target user. The
// acting principal must be a super admin holding an ordinary (not
// already delegated) token; the target must exist, must not be a super
// admin, and must not be the acting user.
func (s *ImpersonationService) Impersonate(ctx context.Context, acting *auth.Principal, targetUserID string) (*domain.User, string, error) {
	if !acting.User.Role.CanImpersonate() {
		return nil, "", apperrors.NewForbidden("only super admins may impersonate")
	}
	if acting.Claims.Impersonated() {
		return nil, "", apperrors.NewForbidden("nested impersonation is not allowed")
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewNotFound("user", map[string]any{"id": targetUserID})
		}
		return nil, "", err
	}
	if target.Role == domain.RoleSuperAdmin {
		return nil, "", apperrors.NewValidationError("cannot impersonate a super admin", nil)
	}
	if target.ID == acting.User.ID {
		return nil, "", apperrors.NewValidationError("cannot impersonate yourself", nil)
	}

	token, claims, err := s.tokenMgr.GenerateToken(target.ID, target.Role, acting.User.ID)
	if err != nil {
		return nil, "", err
	}

	delegation := &repository.ActiveDelegation{
		TokenID:        claims.ID,
		OriginalUserID: acting.User.ID,
		TargetUserID:   target.ID,
		StartedAt:      time.Now(),
	}
	if err := s.delegations.Put(ctx, delegation, s.tokenMgr.TTL()); err != nil {
		return nil, "", err
	}

	s.logger.Info("impersonation started",
		zap.String("original_user_id", acting.User.ID),
		zap.String("target_user_id", target.ID),
		zap.String("token_id", claims.ID))
	s.publish(ctx, events.EventImpersonationStarted, acting.User, events.ImpersonationStartedPayload{
		OriginalUserID: acting.User.ID,
		TargetUserID:   target.ID,
		TokenID:        claims.ID,
	})

	return target, token, nil
}

// ExitImpersonation ends a delegation and issues a fresh session for
// the original super admin. The caller presents the delegated token;
// its actor claim must match the requested original user.
func (s *ImpersonationService) ExitImpersonation(ctx context.Context, acting *auth.Principal, originalUserID string) (*domain.User, string, error) {
	if !acting.Claims.Impersonated() {
		return nil, "", apperrors.NewValidationError("session is not delegated", nil)
	}
	if acting.Claims.ActorID != originalUserID {
		return nil, "", apperrors.NewForbidden("delegation does not belong to this user")
	}

	original, err := s.users.GetByID(ctx, originalUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewNotFound("user", map[string]any{"id": originalUserID})
		}
		return nil, "", err
	}
	if original.Role != domain.RoleSuperAdmin {
		return nil, "", apperrors.NewForbidden("original user is not a super admin")
	}

	// The registry entry may already have expired with the token; the
	// actor claim is the binding that matters.
	if err := s.delegations.Delete(ctx, acting.Claims.ID); err != nil && !errors.Is(err, repository.ErrDelegationNotFound) {
		s.logger.Warn("delegation registry entry not deleted",
			zap.String("token_id", acting.Claims.ID), zap.Error(err))
	}

	token, claims, err := s.tokenMgr.GenerateToken(original.ID, original.Role, "")
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("impersonation ended",
		zap.String("original_user_id", original.ID),
		zap.String("target_user_id", acting.User.ID),
		zap.String("token_id", claims.ID))
	s.publish(ctx, events.EventImpersonationEnded, original, events.ImpersonationEndedPayload{
		OriginalUserID: original.ID,
		TargetUserID:   acting.User.ID,
		TokenID:        acting.Claims.ID,
	})

	return original, token, nil
}

func (s *ImpersonationService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
