package sessionkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spec-kit/homeserve-auth/internal/domain"
)

// Client calls the platform auth endpoints. It distinguishes a backend
// rejection (APIError) from a transport failure (any other error), the
// distinction the impersonation fallback path depends on.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client for the given base URL. Pass nil to use a
// default client with a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend rejected request (%d)", e.Status)
}

// RegisterRequest carries a new account signup.
type RegisterRequest struct {
	Phone    string `json:"phone"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address,omitempty"`
}

type sessionPayload struct {
	User  domain.UserIdentity `json:"user"`
	Token string              `json:"token"`
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// Login authenticates with phone and password.
func (c *Client) Login(ctx context.Context, phone, password string) (domain.Session, error) {
	body := map[string]string{"phone": phone, "password": password}
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", body, &payload); err != nil {
		return domain.Session{}, err
	}
	return domain.Session(payload), nil
}

// Register creates a new account and returns its first session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (domain.Session, error) {
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", req, &payload); err != nil {
		return domain.Session{}, err
	}
	return domain.Session(payload), nil
}

// Profile fetches the canonical identity for the bearer token.
func (c *Client) Profile(ctx context.Context, token string) (domain.UserIdentity, error) {
	var user domain.UserIdentity
	if err := c.do(ctx, http.MethodGet, "/api/user/profile", token, nil, &user); err != nil {
		return domain.UserIdentity{}, err
	}
	return user, nil
}

// UpdateProfile replaces identity fields on the server. Role changes
// are rejected server-side.
func (c *Client) UpdateProfile(ctx context.Context, token string, user domain.UserIdentity) (domain.UserIdentity, error) {
	var updated domain.UserIdentity
	if err := c.do(ctx, http.MethodPut, "/api/user/profile", token, user, &updated); err != nil {
		return domain.UserIdentity{}, err
	}
	return updated, nil
}

// Impersonate requests a delegated session for the target user. The
// token must belong to a super admin.
func (c *Client) Impersonate(ctx context.Context, token, targetUserID, originalUserID string) (domain.Session, error) {
	body := map[string]string{"targetUserId": targetUserID, "originalUserId": originalUserID}
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/api/superadmin/impersonate", token, body, &payload); err != nil {
		return domain.Session{}, err
	}
	return domain.Session(payload), nil
}

// ExitImpersonation formally ends delegation, returning a fresh session
// for the original identity. The token is the delegated one.
func (c *Client) ExitImpersonation(ctx context.Context, token, originalUserID string) (domain.Session, error) {
	body := map[string]string{"originalUserId": originalUserID}
	var payload sessionPayload
	if err := c.do(ctx, http.MethodPost, "/api/superadmin/exit-impersonation", token, body, &payload); err != nil {
		return domain.Session{}, err
	}
	return domain.Session(payload), nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope errorEnvelope
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			if apiErr.Message == "" {
				apiErr.Message = envelope.Message
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}

	var envelope dataEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
