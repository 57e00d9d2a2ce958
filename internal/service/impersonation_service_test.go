package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/auth"
	"github.com/spec-kit/homeserve-auth/internal/domain"
	"github.com/spec-kit/homeserve-auth/internal/repository"
	apperrors "github.com/spec-kit/homeserve-auth/pkg/util/errorutil"
)

type memoryUserRepo struct {
	byID map[string]*domain.User
}

func (m *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := m.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.byID[user.ID] = user
	return nil
}

func (m *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memoryUserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	for _, user := range m.byID {
		if user.Phone == phone {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryDelegationRepo struct {
	entries map[string]*repository.ActiveDelegation
}

func (m *memoryDelegationRepo) Put(_ context.Context, d *repository.ActiveDelegation, _ time.Duration) error {
	m.entries[d.TokenID] = d
	return nil
}

func (m *memoryDelegationRepo) Get(_ context.Context, tokenID string) (*repository.ActiveDelegation, error) {
	d, ok := m.entries[tokenID]
	if !ok {
		return nil, repository.ErrDelegationNotFound
	}
	return d, nil
}

func (m *memoryDelegationRepo) Delete(_ context.Context, tokenID string) error {
	if _, ok := m.entries[tokenID]; !ok {
		return repository.ErrDelegationNotFound
	}
	delete(m.entries, tokenID)
	return nil
}

func newUser(id string, role domain.Role) *domain.User {
	return &domain.User{UserIdentity: domain.UserIdentity{
		ID:       id,
		Phone:    "+1555000" + id,
		FullName: "User " + id,
		Role:     role,
	}}
}

type serviceFixture struct {
	users       *memoryUserRepo
	delegations *memoryDelegationRepo
	tokens      *auth.TokenManager
	svc         *ImpersonationService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	users := &memoryUserRepo{byID: map[string]*domain.User{
		"1": newUser("1", domain.RoleSuperAdmin),
		"2": newUser("2", domain.RoleManager),
		"3": newUser("3", domain.RoleSuperAdmin),
		"5": newUser("5", domain.RoleUser),
	}}
	delegations := &memoryDelegationRepo{entries: map[string]*repository.ActiveDelegation{}}
	tokens := auth.NewTokenManager("test-secret", 60)
	return &serviceFixture{
		users:       users,
		delegations: delegations,
		tokens:      tokens,
		svc:         NewImpersonationService(users, delegations, tokens, nil, zap.NewNop()),
	}
}

// principalFor builds a Principal the way the auth middleware would.
func (f *serviceFixture) principalFor(t *testing.T, userID, actorID string) *auth.Principal {
	t.Helper()
	user := f.users.byID[userID]
	signed, _, err := f.tokens.GenerateToken(user.ID, user.Role, actorID)
	require.NoError(t, err)
	claims, err := f.tokens.ParseToken(signed)
	require.NoError(t, err)
	return &auth.Principal{User: user, Claims: claims}
}

func TestImpersonateIssuesDelegatedToken(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	target, token, err := f.svc.Impersonate(ctx, f.principalFor(t, "1", ""), "5")
	require.NoError(t, err)
	assert.Equal(t, "5", target.ID)

	claims, err := f.tokens.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "5", claims.Subject)
	assert.Equal(t, "1", claims.ActorID)
	assert.Equal(t, domain.RoleUser, claims.Role)

	entry, err := f.delegations.Get(ctx, claims.ID)
	require.NoError(t, err)
	assert.Equal(t, "1", entry.OriginalUserID)
	assert.Equal(t, "5", entry.TargetUserID)
}

func TestImpersonateDeniedForManager(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Impersonate(context.Background(), f.principalFor(t, "2", ""), "5")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
	assert.Empty(t, f.delegations.entries)
}

func TestImpersonateRejectsNestedDelegation(t *testing.T) {
	f := newServiceFixture(t)

	// A delegated token never belongs to a super admin, but even a
	// forged one with an actor claim is refused.
	acting := f.principalFor(t, "1", "3")
	_, _, err := f.svc.Impersonate(context.Background(), acting, "5")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestImpersonateRejectsSuperAdminTarget(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Impersonate(context.Background(), f.principalFor(t, "1", ""), "3")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestImpersonateRejectsSelf(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Impersonate(context.Background(), f.principalFor(t, "1", ""), "1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestImpersonateUnknownTarget(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.Impersonate(context.Background(), f.principalFor(t, "1", ""), "missing")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "NOT_FOUND", domainErr.Code)
}

func TestExitImpersonationRestoresOriginal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, delegated, err := f.svc.Impersonate(ctx, f.principalFor(t, "1", ""), "5")
	require.NoError(t, err)
	delegatedClaims, err := f.tokens.ParseToken(delegated)
	require.NoError(t, err)

	acting := &auth.Principal{User: f.users.byID["5"], Claims: delegatedClaims}
	original, fresh, err := f.svc.ExitImpersonation(ctx, acting, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", original.ID)

	freshClaims, err := f.tokens.ParseToken(fresh)
	require.NoError(t, err)
	assert.Equal(t, "1", freshClaims.Subject)
	assert.False(t, freshClaims.Impersonated())

	_, err = f.delegations.Get(ctx, delegatedClaims.ID)
	assert.ErrorIs(t, err, repository.ErrDelegationNotFound)
}

func TestExitImpersonationRejectsMismatchedActor(t *testing.T) {
	f := newServiceFixture(t)

	acting := f.principalFor(t, "5", "1")
	_, _, err := f.svc.ExitImpersonation(context.Background(), acting, "3")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "FORBIDDEN", domainErr.Code)
}

func TestExitImpersonationRequiresDelegatedToken(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.svc.ExitImpersonation(context.Background(), f.principalFor(t, "1", ""), "1")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
}

func TestExitImpersonationToleratesExpiredRegistryEntry(t *testing.T) {
	f := newServiceFixture(t)

	acting := f.principalFor(t, "5", "1")
	original, fresh, err := f.svc.ExitImpersonation(context.Background(), acting, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", original.ID)
	assert.NotEmpty(t, fresh)
}
