package sessionkit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// Notifier surfaces user-facing acknowledgements (a toast, a status
// line). The default notifier logs at info level.
type Notifier func(message string)

// SessionContext is the in-memory authority for "who is currently
// acting". It restores durable state on boot and keeps the Store in
// step with every transition.
type SessionContext struct {
	mu       sync.Mutex
	store    Store
	verifier Verifier
	logger   *zap.Logger
	notify   Notifier
	now      func() time.Time
	current  *domain.Session
	stamp    int64
}

// ContextOption customizes a SessionContext.
type ContextOption func(*SessionContext)

// WithNotifier routes acknowledgements to the host UI.
func WithNotifier(n Notifier) ContextOption {
	return func(s *SessionContext) { s.notify = n }
}

// WithClock overrides the stamp clock.
func WithClock(now func() time.Time) ContextOption {
	return func(s *SessionContext) { s.now = now }
}

// NewSessionContext builds a SessionContext over the given store and
// verifier.
func NewSessionContext(store Store, verifier Verifier, logger *zap.Logger, opts ...ContextOption) *SessionContext {
	s := &SessionContext{
		store:    store,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notify == nil {
		s.notify = func(message string) { logger.Info(message) }
	}
	return s
}

// Login makes the given identity current, unconditionally overwriting
// any prior session in memory and in the store. The in-memory session
// is set even if persistence fails, so the returned error only means
// the session may not survive a restart.
func (s *SessionContext) Login(ctx context.Context, user domain.UserIdentity, token string) error {
	return s.loginStamped(ctx, user, token, s.now().UnixNano())
}

// loginStamped is Login with an explicit stamp. The impersonation
// controller stamps the delegated login with the same value as its
// delegation record, which is what lets boot-time recovery tell a live
// record from a stale one.
func (s *SessionContext) loginStamped(ctx context.Context, user domain.UserIdentity, token string, stamp int64) error {
	s.mu.Lock()
	s.current = &domain.Session{User: user, Token: token}
	s.stamp = stamp
	sess := *s.current
	s.mu.Unlock()

	s.notify(fmt.Sprintf("Signed in as %s", user.FullName))
	s.logger.Info("session started",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))

	if err := saveSession(ctx, s.store, sess, stamp); err != nil {
		s.logger.Warn("session not persisted", zap.Error(err))
		return err
	}
	return nil
}

// Logout clears the current session from memory and from the store,
// along with any delegation markers: a delegation record never outlives
// the session it suspended. Calling it with no session is a no-op.
func (s *SessionContext) Logout(ctx context.Context) error {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.logger.Info("session ended")
	}
	if err := clearSession(ctx, s.store); err != nil {
		return err
	}
	return clearDelegation(ctx, s.store)
}

// UpdateUser replaces the identity portion of the current session and
// persists it; the token and the role are left untouched. A call with
// no current session is a no-op.
func (s *SessionContext) UpdateUser(ctx context.Context, user domain.UserIdentity) error {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil
	}
	// Role never changes client-side. The stamp stays put too: an
	// identity update does not replace the session.
	user.Role = s.current.User.Role
	s.current.User = user
	sess := *s.current
	stamp := s.stamp
	s.mu.Unlock()

	return saveSession(ctx, s.store, sess, stamp)
}

// RestoreOnBoot loads the persisted session, makes it current
// optimistically, then verifies the token against the backend. A
// rejected or unverifiable token forces a logout rather than surfacing
// an error; the practical effect is a return to the login screen. The
// optimistic window before verification completes is acceptable because
// server-side authorization is the real enforcement point.
//
// It also discards a stale delegation record: one whose stamp differs
// from the session stamp (either another writer replaced the session
// after delegation, or the host stopped between record write and
// delegated login so the delegation never activated), or one whose
// original user is the current user.
func (s *SessionContext) RestoreOnBoot(ctx context.Context) (*domain.Session, error) {
	sess, sessionStamp, ok, err := loadSession(ctx, s.store)
	if err != nil {
		s.logger.Warn("stored session unreadable, discarding", zap.Error(err))
		return nil, s.Logout(ctx)
	}
	if !ok {
		return nil, nil
	}

	s.mu.Lock()
	s.current = &sess
	s.stamp = sessionStamp
	s.mu.Unlock()

	s.discardStaleDelegation(ctx, sess, sessionStamp)

	verified, err := s.verifier.Verify(ctx, sess.Token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrVerificationUnavailable) {
			s.logger.Info("restored session rejected, signing out", zap.Error(err))
			return nil, s.Logout(ctx)
		}
		return nil, err
	}

	// Adopt the canonical record; the stored copy may be behind.
	if err := s.UpdateUser(ctx, verified); err != nil {
		s.logger.Warn("canonical identity not persisted", zap.Error(err))
	}

	s.mu.Lock()
	restored := *s.current
	s.mu.Unlock()
	return &restored, nil
}

func (s *SessionContext) discardStaleDelegation(ctx context.Context, sess domain.Session, sessionStamp int64) {
	rec, ok, err := loadDelegation(ctx, s.store)
	if err != nil {
		s.logger.Warn("delegation record unreadable, discarding", zap.Error(err))
		_ = clearDelegation(ctx, s.store)
		return
	}
	if !ok {
		return
	}
	if rec.Stamp != sessionStamp || rec.OriginalUser.ID == sess.User.ID {
		s.logger.Info("discarding stale delegation record",
			zap.String("original_user_id", rec.OriginalUser.ID))
		_ = clearDelegation(ctx, s.store)
	}
}

// IsAuthenticated reports whether both an identity and a token are
// currently held.
func (s *SessionContext) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Token != ""
}

// Current returns a copy of the current session, if any.
func (s *SessionContext) Current() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}
