package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultRequestTimeout = 10 * time.Second

// Client talks to a GoTrue-compatible identity provider over HTTP.
// Anonymous-key requests handle the user-facing flows; service-key requests
// handle the privileged admin surface (metadata updates, identity deletion).
type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	anon       *handlePool
	admin      *handlePool
}

// Option configures the Client during construction.
type Option func(*Client)

// WithHandleTTL overrides how long a cached HTTP handle is reused before
// being lazily recreated.
func WithHandleTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.anon.ttl = ttl
		c.admin.ttl = ttl
	}
}

// WithTimeout overrides the per-request timeout used by fresh handles.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.anon.timeout = timeout
		c.admin.timeout = timeout
	}
}

// NewClient constructs a Client for the provider at baseURL.
func NewClient(baseURL, anonKey, serviceKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		serviceKey: serviceKey,
		anon:       newHandlePool(defaultHandleTTL, defaultRequestTimeout),
		admin:      newHandlePool(defaultHandleTTL, defaultRequestTimeout),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SendOtp asks the provider to email a one-time code.
func (c *Client) SendOtp(ctx context.Context, email string, opts OtpOptions) error {
	payload := map[string]any{
		"email":       email,
		"create_user": opts.CreateIfMissing,
	}
	if opts.PurposeTag != "" {
		payload["data"] = map[string]any{"flow": opts.PurposeTag}
	}

	return c.do(ctx, c.anon, http.MethodPost, "/auth/v1/otp", c.anonKey, "", payload, nil)
}

type verifyResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         Identity `json:"user"`
}

// VerifyOtp submits a one-time code. The provider consumes the challenge on
// first success; a second submit of the same code is rejected.
func (c *Client) VerifyOtp(ctx context.Context, email, code string) (VerifyResult, error) {
	payload := map[string]any{
		"type":  "email",
		"email": email,
		"token": code,
	}

	var resp verifyResponse
	if err := c.do(ctx, c.anon, http.MethodPost, "/auth/v1/verify", c.anonKey, "", payload, &resp); err != nil {
		return VerifyResult{}, err
	}

	return resultFrom(resp), nil
}

// RefreshSession rotates the refresh token. Single-use enforcement is the
// provider's responsibility; a rejected token surfaces as ErrRejected with
// the provider's own detail preserved in the error chain.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (VerifyResult, error) {
	payload := map[string]any{"refresh_token": refreshToken}

	var resp verifyResponse
	if err := c.do(ctx, c.anon, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", c.anonKey, "", payload, &resp); err != nil {
		return VerifyResult{}, err
	}

	return resultFrom(resp), nil
}

// GetUser resolves an access token to the identity it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (Identity, error) {
	var identity Identity
	if err := c.do(ctx, c.anon, http.MethodGet, "/auth/v1/user", c.anonKey, accessToken, nil, &identity); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// SignOut revokes the session behind the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, c.anon, http.MethodPost, "/auth/v1/logout", c.anonKey, accessToken, nil, nil)
}

// UpdateMetadata replaces an identity's application metadata. Privileged.
func (c *Client) UpdateMetadata(ctx context.Context, identityID string, metadata map[string]any) error {
	payload := map[string]any{"user_metadata": metadata}
	return c.do(ctx, c.admin, http.MethodPut, "/auth/v1/admin/users/"+identityID, c.serviceKey, "", payload, nil)
}

// DeleteIdentity removes an identity from the provider. Privileged.
func (c *Client) DeleteIdentity(ctx context.Context, identityID string) error {
	return c.do(ctx, c.admin, http.MethodDelete, "/auth/v1/admin/users/"+identityID, c.serviceKey, "", nil, nil)
}

type listUsersResponse struct {
	Users []Identity `json:"users"`
}

// ListIdentities enumerates provider identities. Used only to resolve an
// email to its identity id during account purges. Privileged.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	var resp listUsersResponse
	if err := c.do(ctx, c.admin, http.MethodGet, "/auth/v1/admin/users", c.serviceKey, "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

type providerError struct {
	Message          string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

func (e providerError) detail() string {
	if e.Message != "" {
		return e.Message
	}
	return e.ErrorDescription
}

func (c *Client) do(ctx context.Context, pool *handlePool, method, path, apiKey, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("identity: build request: %w", err)
	}

	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := pool.get().Do(req)
	if err != nil {
		if isConnectivityError(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return fmt.Errorf("identity: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		var detail providerError
		_ = json.NewDecoder(resp.Body).Decode(&detail)
		if d := detail.detail(); d != "" {
			return fmt.Errorf("%w: %s", ErrRejected, d)
		}
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("identity: decode response: %w", err)
	}
	return nil
}

func isConnectivityError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func resultFrom(resp verifyResponse) VerifyResult {
	return VerifyResult{
		Identity: resp.User,
		Session: Session{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
		},
	}
}
