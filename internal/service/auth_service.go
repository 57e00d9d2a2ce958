package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/config"
	"github.com/spec-kit/homeserve-auth/internal/domain"
	"github.com/spec-kit/homeserve-auth/internal/events"
	"github.com/spec-kit/homeserve-auth/internal/repository"
	apperrors "github.com/spec-kit/homeserve-auth/pkg/util/errorutil"
)

// AuthService coordinates registration, login, and profile flows.
type AuthService struct {
	users      repository.UserRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for the auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PasswordResetRepo repository.PasswordResetRepository
	Dispatcher        events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// Register creates a new customer account. All self-registered accounts
// get the user role; privileged roles are assigned out of band.
func (s *AuthService) Register(ctx context.Context, phone, fullName, email, password, address string) (*domain.User, string, error) {
	if _, err := s.users.GetByPhone(ctx, phone); err == nil {
		return nil, "", apperrors.NewConflict("phone already registered", nil)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		UserIdentity: domain.UserIdentity{
			Phone:    phone,
			FullName: fullName,
			Email:    email,
			Role:     domain.RoleUser,
			Address:  address,
		},
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, _, err := s.tokenMgr.GenerateToken(user.ID, user.Role, "")
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, events.EventUserRegistered, user, nil)
	return user, token, nil
}

// Login authenticates by phone and password.
func (s *AuthService) Login(ctx context.Context, phone, password string) (*domain.User, string, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", apperrors.NewUnauthorized("invalid credentials")
	}

	token, _, err := s.tokenMgr.GenerateToken(user.ID, user.Role, "")
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, events.EventUserLoggedIn, user, nil)
	return user, token, nil
}

// UpdateProfile replaces identity fields on the account. The role is
// never writable through this path, whatever the payload claims.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, identity domain.UserIdentity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Phone = identity.Phone
	user.FullName = identity.FullName
	user.Email = identity.Email
	user.Address = identity.Address

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset persists a reset token for the account matching
// the phone number.
func (s *AuthService) RequestPasswordReset(ctx context.Context, phone string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventPasswordResetRequested, user, events.PasswordResetRequestedPayload{UserID: user.ID})
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("token expired or used", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies the current password before updating.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, user *domain.User, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     events.Actor{UserID: user.ID, Role: user.Role},
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
