// Package backend is a thin client for a GoTrue-compatible auth backend.
// Client operates with the publishable (anon) key on behalf of end users;
// AdminClient uses the service-role key for user provisioning.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const authPath = "/auth/v1"

// Client calls the backend's user-facing auth endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client or AdminClient during construction.
type Option func(*http.Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *http.Client) {
		if hc != nil {
			*c = *hc
		}
	}
}

// NewClient constructs a Client for the given backend URL and anon key.
func NewClient(baseURL, anonKey string, opts ...Option) *Client {
	hc := &http.Client{Timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{
		httpClient: hc,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     anonKey,
	}
}

// SignInWithIDToken exchanges a provider ID token for a backend session.
// This is the native federation path for first-class providers.
func (c *Client) SignInWithIDToken(ctx context.Context, provider, idToken, accessToken string) (*Session, error) {
	payload := map[string]string{
		"provider": provider,
		"id_token": idToken,
	}
	if accessToken != "" {
		payload["access_token"] = accessToken
	}

	var session Session
	if err := c.do(ctx, http.MethodPost, authPath+"/token?grant_type=id_token", "", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RefreshSession exchanges a refresh token for a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	payload := map[string]string{"refresh_token": refreshToken}

	var session Session
	if err := c.do(ctx, http.MethodPost, authPath+"/token?grant_type=refresh_token", "", payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUser returns the user owning the supplied access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, authPath+"/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut terminates the session behind the access token. Scope "global"
// revokes all of the user's sessions, "local" only this one.
func (c *Client) SignOut(ctx context.Context, accessToken, scope string) error {
	path := authPath + "/logout"
	if scope != "" {
		path += "?scope=" + url.QueryEscape(scope)
	}
	return c.do(ctx, http.MethodPost, path, accessToken, nil, nil)
}

// VerifyLink replays a magic-link verification URL without following the
// redirect and returns the Location header value, which carries the minted
// session in its URL fragment. An empty string means the backend answered
// without a redirect.
func (c *Client) VerifyLink(ctx context.Context, verifyURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return "", fmt.Errorf("backend: build verify request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)

	// The verify endpoint communicates the session only via a redirect; the
	// transport must not follow it.
	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := noRedirect.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend: verify link: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if location := resp.Header.Get("Location"); location != "" {
		return location, nil
	}

	if resp.StatusCode >= 400 {
		return "", decodeAPIError(resp)
	}
	return "", nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, payload, out any) error {
	return doRequest(ctx, c.httpClient, method, c.baseURL+path, c.apiKey, bearer, payload, out)
}

func doRequest(ctx context.Context, hc *http.Client, method, fullURL, apiKey, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer == "" {
		bearer = apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, fullURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, apiErr)
	}
	return apiErr
}
