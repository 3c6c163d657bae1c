package portalsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the sponsor-portal auth service. The zero-value methods
// cover unauthenticated operations; WithToken returns a Session for the
// authenticated surface.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client with a sensible default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Session is an authenticated view of the client, bound to one bearer
// token. Tokens are fixed-duration with no refresh; when a Session starts
// getting 401s, log in again.
type Session struct {
	client *Client
	token  string
}

// WithToken binds a bearer token. The token is not validated locally.
func (c *Client) WithToken(token string) *Session {
	return &Session{client: c, token: token}
}

// Token returns the raw bearer token the session was created with.
func (s *Session) Token() string { return s.token }

// Login exchanges email+password for a session token and returns the
// authenticated Session alongside the raw response.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, *SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", "", LoginRequest{
		Email:    email,
		Password: password,
	}, &out, http.StatusOK)
	if err != nil {
		return nil, nil, err
	}
	return c.WithToken(out.Token), &out, nil
}

// Activate redeems a one-time linking code and sets the account password.
func (c *Client) Activate(ctx context.Context, linkingCode, password string) (*ActivateResponse, error) {
	var out ActivateResponse
	err := c.do(ctx, http.MethodPost, "/portal/activate", "", ActivateRequest{
		LinkingCode: linkingCode,
		NewPassword: password,
	}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports liveness. It does not touch the database.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports readiness, including database reachability.
func (c *Client) Ready(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, http.MethodGet, "/readyz", "", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword rotates the caller's own password.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	return s.client.do(ctx, http.MethodPost, "/auth/change-password", s.token, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	}, nil, http.StatusOK)
}

// ListUsers returns every portal account. Admin only.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	var out UsersResponse
	err := s.client.do(ctx, http.MethodGet, "/portal/users", s.token, nil, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return out.Users, nil
}

// GenerateCode provisions a dormant account and returns its one-time
// linking code. Admin only.
func (s *Session) GenerateCode(ctx context.Context, req GenerateCodeRequest) (*GenerateCodeResponse, error) {
	var out GenerateCodeResponse
	err := s.client.do(ctx, http.MethodPost, "/portal/admin/generate-code", s.token, req, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeUser deactivates an account. Admin only.
func (s *Session) RevokeUser(ctx context.Context, userID string) error {
	return s.client.do(ctx, http.MethodPost, "/portal/users/"+userID+"/revoke", s.token, nil, nil, http.StatusNoContent)
}

// ReinstateUser reactivates an account. Admin only.
func (s *Session) ReinstateUser(ctx context.Context, userID string) error {
	return s.client.do(ctx, http.MethodPost, "/portal/users/"+userID+"/reinstate", s.token, nil, nil, http.StatusNoContent)
}

// do sends one JSON request and decodes the response. Non-expected
// statuses become *APIError.
func (c *Client) do(
	ctx context.Context,
	method, path, token string,
	in, out any,
	expectedStatus int,
) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("portalsdk: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("portalsdk: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("portalsdk: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("portalsdk: read response: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = ErrorCodeServerError
			apiErr.Description = strings.TrimSpace(string(raw))
		}
		return apiErr
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("portalsdk: decode response: %w", err)
		}
	}
	return nil
}
