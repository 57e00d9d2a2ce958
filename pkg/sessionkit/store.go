package sessionkit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// Store keys. Values are strings; structured values are JSON-encoded.
const (
	KeyToken           = "token"
	KeyUser            = "user"
	KeyIsImpersonating = "isImpersonating"
	KeyOriginalUser    = "originalUser"
	KeyOriginalToken   = "originalToken"
	KeySessionStamp    = "sessionStamp"
	KeyDelegationStamp = "delegationStamp"
)

// Store is the persistent session store contract: a durable key-value
// surface surviving restarts, scoped to one user profile. No business
// logic lives here.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryStore is an in-process Store for tests and short-lived hosts.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Snapshot copies the current contents, for tests asserting the store
// was left untouched.
func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// saveSession persists a session, unconditionally overwriting prior
// values. The stamp orders sessions across store writers.
func saveSession(ctx context.Context, store Store, sess domain.Session, stamp int64) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := store.Set(ctx, KeyUser, string(raw)); err != nil {
		return err
	}
	if err := store.Set(ctx, KeyToken, sess.Token); err != nil {
		return err
	}
	return store.Set(ctx, KeySessionStamp, strconv.FormatInt(stamp, 10))
}

// loadSession reads the persisted session. Returns ok=false when either
// the token or the user entry is absent. Stored identities with a role
// outside the closed set are rejected instead of trusted.
func loadSession(ctx context.Context, store Store) (domain.Session, int64, bool, error) {
	token, okToken, err := store.Get(ctx, KeyToken)
	if err != nil {
		return domain.Session{}, 0, false, err
	}
	rawUser, okUser, err := store.Get(ctx, KeyUser)
	if err != nil {
		return domain.Session{}, 0, false, err
	}
	if !okToken || !okUser {
		return domain.Session{}, 0, false, nil
	}

	var user domain.UserIdentity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domain.Session{}, 0, false, fmt.Errorf("decode stored user: %w", err)
	}
	if _, err := domain.ParseRole(string(user.Role)); err != nil {
		return domain.Session{}, 0, false, fmt.Errorf("stored user: %w", err)
	}

	var stamp int64
	if raw, ok, err := store.Get(ctx, KeySessionStamp); err != nil {
		return domain.Session{}, 0, false, err
	} else if ok {
		stamp, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Session{}, 0, false, fmt.Errorf("stored session stamp: %w", err)
		}
	}

	return domain.Session{User: user, Token: token}, stamp, true, nil
}

// clearSession removes the persisted session entries. Missing keys are
// not an error, which keeps logout idempotent.
func clearSession(ctx context.Context, store Store) error {
	for _, key := range []string{KeyToken, KeyUser, KeySessionStamp} {
		if err := store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// saveDelegation persists a delegation record. The isImpersonating flag
// is written last so that a record is fully materialized before the
// flag makes it observable.
func saveDelegation(ctx context.Context, store Store, rec domain.DelegationRecord) error {
	raw, err := json.Marshal(rec.OriginalUser)
	if err != nil {
		return fmt.Errorf("encode original user: %w", err)
	}
	if err := store.Set(ctx, KeyOriginalUser, string(raw)); err != nil {
		return err
	}
	if err := store.Set(ctx, KeyOriginalToken, rec.OriginalToken); err != nil {
		return err
	}
	if err := store.Set(ctx, KeyDelegationStamp, strconv.FormatInt(rec.Stamp, 10)); err != nil {
		return err
	}
	return store.Set(ctx, KeyIsImpersonating, "true")
}

// loadDelegation reads the delegation record, if any. A record whose
// original user fails role validation, or whose originalUser entry is
// missing entirely, reports ok=false.
func loadDelegation(ctx context.Context, store Store) (domain.DelegationRecord, bool, error) {
	flag, okFlag, err := store.Get(ctx, KeyIsImpersonating)
	if err != nil {
		return domain.DelegationRecord{}, false, err
	}
	if !okFlag || flag != "true" {
		return domain.DelegationRecord{}, false, nil
	}

	rawUser, okUser, err := store.Get(ctx, KeyOriginalUser)
	if err != nil {
		return domain.DelegationRecord{}, false, err
	}
	if !okUser {
		return domain.DelegationRecord{}, false, nil
	}

	var user domain.UserIdentity
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return domain.DelegationRecord{}, false, fmt.Errorf("decode original user: %w", err)
	}
	if _, err := domain.ParseRole(string(user.Role)); err != nil {
		return domain.DelegationRecord{}, false, fmt.Errorf("stored original user: %w", err)
	}

	token, _, err := store.Get(ctx, KeyOriginalToken)
	if err != nil {
		return domain.DelegationRecord{}, false, err
	}

	var stamp int64
	if raw, ok, err := store.Get(ctx, KeyDelegationStamp); err != nil {
		return domain.DelegationRecord{}, false, err
	} else if ok {
		stamp, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.DelegationRecord{}, false, fmt.Errorf("stored delegation stamp: %w", err)
		}
	}

	return domain.DelegationRecord{OriginalUser: user, OriginalToken: token, Stamp: stamp}, true, nil
}

// clearDelegation removes all delegation markers.
func clearDelegation(ctx context.Context, store Store) error {
	for _, key := range []string{KeyIsImpersonating, KeyOriginalUser, KeyOriginalToken, KeyDelegationStamp} {
		if err := store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
