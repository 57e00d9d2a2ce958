package sessionkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

func TestClientLoginParsesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/login", r.URL.Path)
		writeData(w, map[string]any{"user": rootIdentity(), "token": "tok-root"})
	}))
	defer srv.Close()

	sess, err := NewClient(srv.URL, nil).Login(context.Background(), "+15550000001", "secret")
	require.NoError(t, err)
	assert.Equal(t, "1", sess.User.ID)
	assert.Equal(t, domain.RoleSuperAdmin, sess.User.Role)
	assert.Equal(t, "tok-root", sess.Token)
}

func TestClientSurfacesBackendRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "wrong password")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Login(context.Background(), "+15550000001", "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "wrong password", apiErr.Message)
}

func TestClientTransportErrorIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := NewClient(srv.URL, nil).Profile(context.Background(), "tok")
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestVerifierEmptyTokenSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewVerifier(NewClient(srv.URL, nil)).Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, called)
}

func TestVerifierDistinguishesRejectionFromOutage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "invalid token")
	}))
	verifier := NewVerifier(NewClient(srv.URL, nil))

	_, err := verifier.Verify(context.Background(), "tok-bad")
	assert.ErrorIs(t, err, ErrInvalidToken)

	srv.Close()
	_, err = verifier.Verify(context.Background(), "tok-bad")
	assert.ErrorIs(t, err, ErrVerificationUnavailable)
}

func TestVerifierReturnsCanonicalIdentity(t *testing.T) {
	backend := newFakeBackend(t)
	token := backend.addUser(aliceIdentity())

	user, err := NewVerifier(NewClient(backend.URL(), nil)).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "5", user.ID)
	assert.Equal(t, "Alice", user.FullName)
}
