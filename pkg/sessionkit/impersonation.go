package sessionkit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// State identifies whether the active session is an original or a
// delegated identity.
type State int

const (
	StateNormal State = iota
	StateDelegating
)

func (s State) String() string {
	if s == StateDelegating {
		return "delegating"
	}
	return "normal"
}

// Controller orchestrates starting and ending delegated sessions. A
// delegation record exists in the store exactly while a delegated
// identity is current; the record is written once at start and consumed
// at exit, never updated in between.
type Controller struct {
	sessions *SessionContext
	store    Store
	client   *Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewController wires the impersonation controller. The store must be
// the same instance the SessionContext persists to.
func NewController(sessions *SessionContext, store Store, client *Client, logger *zap.Logger) *Controller {
	return &Controller{
		sessions: sessions,
		store:    store,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

// State reports the current delegation state from the store.
func (c *Controller) State(ctx context.Context) State {
	if c.IsImpersonating(ctx) {
		return StateDelegating
	}
	return StateNormal
}

// IsImpersonating reports whether a delegation record is active. This
// is the read half of the contract the impersonation indicator UI
// consumes; the write half is Exit.
func (c *Controller) IsImpersonating(ctx context.Context) bool {
	flag, ok, err := c.store.Get(ctx, KeyIsImpersonating)
	return err == nil && ok && flag == "true"
}

// Delegation returns the active delegation record, if any.
func (c *Controller) Delegation(ctx context.Context) (domain.DelegationRecord, bool) {
	rec, ok, err := loadDelegation(ctx, c.store)
	if err != nil {
		c.logger.Warn("delegation record unreadable", zap.Error(err))
		return domain.DelegationRecord{}, false
	}
	return rec, ok
}

// Start begins impersonating target on behalf of acting. Guards run
// before any network call or state mutation:
//
//   - acting must be a super admin (ErrPermissionDenied),
//   - target must not be a super admin or acting themselves
//     (ErrInvalidTarget),
//   - no delegation may already be active (ErrPermissionDenied, since a
//     delegated session is never a super admin).
//
// The delegation record is written only after the backend accepts, and
// strictly before the delegated login, so a failed request changes
// nothing and an interrupted sequence is recoverable on next boot.
func (c *Controller) Start(ctx context.Context, acting, target domain.UserIdentity) (domain.Session, error) {
	if !acting.Role.CanImpersonate() {
		return domain.Session{}, fmt.Errorf("%w: role %s", ErrPermissionDenied, acting.Role)
	}
	if target.Role == domain.RoleSuperAdmin {
		return domain.Session{}, fmt.Errorf("%w: cannot impersonate a super admin", ErrInvalidTarget)
	}
	if target.ID == acting.ID {
		return domain.Session{}, fmt.Errorf("%w: cannot impersonate yourself", ErrInvalidTarget)
	}
	if c.IsImpersonating(ctx) {
		return domain.Session{}, fmt.Errorf("%w: already impersonating", ErrPermissionDenied)
	}

	current, ok := c.sessions.Current()
	if !ok {
		return domain.Session{}, fmt.Errorf("%w: no active session", ErrPermissionDenied)
	}
	// The guards above validated acting; make sure acting is who the
	// session actually belongs to.
	if current.User.ID != acting.ID {
		return domain.Session{}, fmt.Errorf("%w: session belongs to another user", ErrPermissionDenied)
	}

	delegated, err := c.client.Impersonate(ctx, current.Token, target.ID, acting.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrDelegationStartFailed, err)
	}

	stamp := c.now().UnixNano()
	rec := domain.DelegationRecord{
		OriginalUser:  current.User,
		OriginalToken: current.Token,
		StartedAt:     c.now(),
		Stamp:         stamp,
	}
	if err := saveDelegation(ctx, c.store, rec); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrDelegationStartFailed, err)
	}

	// Same stamp as the record; see RestoreOnBoot.
	if err := c.sessions.loginStamped(ctx, delegated.User, delegated.Token, stamp); err != nil {
		c.logger.Warn("delegated session not persisted", zap.Error(err))
	}

	c.logger.Info("impersonation started",
		zap.String("original_user_id", current.User.ID),
		zap.String("target_user_id", delegated.User.ID))
	return delegated, nil
}

// Exit ends the active delegation and restores the original identity.
//
// Primary path: ask the backend to formally end delegation; it returns
// a fresh session for the original identity. Fallback path: if that
// call fails for any reason, restore directly from the stored record
// without contacting the backend. Either way the restored login happens
// strictly before the record is deleted.
//
// When the record's credential is gone and the backend is unreachable,
// Exit returns ErrRestoreFailed and the system stays in the delegating
// state; the caller must tell the user to reload.
func (c *Controller) Exit(ctx context.Context) (domain.Session, error) {
	rec, ok, err := loadDelegation(ctx, c.store)
	if err != nil || !ok {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrRestoreFailed, ErrFallbackUnavailable)
	}

	current, ok := c.sessions.Current()
	if ok {
		restored, err := c.client.ExitImpersonation(ctx, current.Token, rec.OriginalUser.ID)
		if err == nil {
			if err := c.sessions.Login(ctx, restored.User, restored.Token); err != nil {
				c.logger.Warn("restored session not persisted", zap.Error(err))
			}
			if err := clearDelegation(ctx, c.store); err != nil {
				c.logger.Warn("delegation markers not cleared", zap.Error(err))
			}
			c.logger.Info("impersonation ended", zap.String("user_id", restored.User.ID))
			return restored, nil
		}
		c.logger.Warn("backend exit failed, falling back to stored session", zap.Error(err))
	}

	if rec.OriginalToken == "" {
		return domain.Session{}, fmt.Errorf("%w: %w", ErrRestoreFailed, ErrFallbackUnavailable)
	}

	if err := c.sessions.Login(ctx, rec.OriginalUser, rec.OriginalToken); err != nil {
		c.logger.Warn("restored session not persisted", zap.Error(err))
	}
	if err := clearDelegation(ctx, c.store); err != nil {
		c.logger.Warn("delegation markers not cleared", zap.Error(err))
	}
	c.logger.Info("impersonation ended via fallback",
		zap.String("user_id", rec.OriginalUser.ID))
	return domain.Session{User: rec.OriginalUser, Token: rec.OriginalToken}, nil
}
