package sessionkit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// fakeBackend serves just enough of the auth API for the session and
// impersonation flows, with switches to make individual endpoints fail.
type fakeBackend struct {
	mu sync.Mutex

	users  map[string]domain.UserIdentity // by user id
	tokens map[string]string              // token -> user id

	failImpersonate bool
	dropExit        bool // abort the connection, simulating a network failure
	exitCalls       int
	tokenSeq        int

	srv *httptest.Server
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		users:  make(map[string]domain.UserIdentity),
		tokens: make(map[string]string),
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.srv.URL }

// addUser registers an identity and returns a token for it.
func (b *fakeBackend) addUser(user domain.UserIdentity) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[user.ID] = user
	b.tokenSeq++
	token := fmt.Sprintf("tok-%s-%d", user.ID, b.tokenSeq)
	b.tokens[token] = user.ID
	return token
}

// revokeToken invalidates a previously issued token.
func (b *fakeBackend) revokeToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

func (b *fakeBackend) issueToken(userID string) string {
	b.tokenSeq++
	token := fmt.Sprintf("tok-%s-%d", userID, b.tokenSeq)
	b.tokens[token] = userID
	return token
}

func (b *fakeBackend) bearerUser(r *http.Request) (domain.UserIdentity, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return domain.UserIdentity{}, false
	}
	id, ok := b.tokens[token]
	if !ok {
		return domain.UserIdentity{}, false
	}
	user, ok := b.users[id]
	return user, ok
}

func (b *fakeBackend) handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Path {
	case "/api/user/profile":
		user, ok := b.bearerUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		writeData(w, user)

	case "/api/superadmin/impersonate":
		if b.failImpersonate {
			writeError(w, http.StatusInternalServerError, "impersonation unavailable")
			return
		}
		acting, ok := b.bearerUser(r)
		if !ok || acting.Role != domain.RoleSuperAdmin {
			writeError(w, http.StatusForbidden, "super admin required")
			return
		}
		var req struct {
			TargetUserID string `json:"targetUserId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		target, ok := b.users[req.TargetUserID]
		if !ok {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeData(w, map[string]any{"user": target, "token": b.issueToken(target.ID)})

	case "/api/superadmin/exit-impersonation":
		b.exitCalls++
		if b.dropExit {
			panic(http.ErrAbortHandler)
		}
		var req struct {
			OriginalUserID string `json:"originalUserId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		original, ok := b.users[req.OriginalUserID]
		if !ok {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeData(w, map[string]any{"user": original, "token": b.issueToken(original.ID)})

	default:
		writeError(w, http.StatusNotFound, "no such endpoint")
	}
}

func writeData(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": payload})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": "ERROR", "message": message},
	})
}

// testKit bundles a fully wired client-side subsystem over a fake
// backend and an in-memory store.
type testKit struct {
	backend  *fakeBackend
	store    *MemoryStore
	client   *Client
	sessions *SessionContext
	ctrl     *Controller
}

func newTestKit(t *testing.T) *testKit {
	t.Helper()
	backend := newFakeBackend(t)
	store := NewMemoryStore()
	client := NewClient(backend.URL(), nil)
	logger := zap.NewNop()
	sessions := NewSessionContext(store, NewVerifier(client), logger)
	return &testKit{
		backend:  backend,
		store:    store,
		client:   client,
		sessions: sessions,
		ctrl:     NewController(sessions, store, client, logger),
	}
}

func rootIdentity() domain.UserIdentity {
	return domain.UserIdentity{
		ID:       "1",
		Phone:    "+15550000001",
		FullName: "Root",
		Email:    "root@homeserve.test",
		Role:     domain.RoleSuperAdmin,
	}
}

func aliceIdentity() domain.UserIdentity {
	return domain.UserIdentity{
		ID:       "5",
		Phone:    "+15550000005",
		FullName: "Alice",
		Email:    "alice@homeserve.test",
		Role:     domain.RoleUser,
		Address:  "12 Elm Street",
	}
}
