// Package naver talks to Naver's OpenAPI. Naver is not an OIDC provider, so
// identity comes from its profile endpoint keyed by an OAuth access token.
package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultProfileURL = "https://openapi.naver.com/v1/nid/me"

// resultcode "00" is Naver's success marker.
const resultSuccess = "00"

// Profile is the subset of the Naver profile this service consumes.
type Profile struct {
	ID           string
	Email        string
	Nickname     string
	ProfileImage string
	Name         string
}

// DisplayName prefers the nickname, falling back to the real name.
func (p Profile) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Name
}

// ProfileError means Naver rejected the access token or the profile request.
type ProfileError struct {
	ResultCode string
	Message    string
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("naver: profile lookup failed (resultcode %s): %s", e.ResultCode, e.Message)
}

// ErrProfileUnavailable is returned when the profile endpoint itself fails.
var ErrProfileUnavailable = errors.New("naver: profile endpoint unavailable")

// ProfileClient fetches user profiles from Naver's OpenAPI.
type ProfileClient struct {
	httpClient *http.Client
	profileURL string
}

// ProfileOption configures a ProfileClient during construction.
type ProfileOption func(*ProfileClient)

// WithProfileURL overrides the profile endpoint, for tests.
func WithProfileURL(u string) ProfileOption {
	return func(c *ProfileClient) {
		c.profileURL = strings.TrimRight(u, "/")
	}
}

// WithProfileHTTPClient overrides the underlying HTTP client.
func WithProfileHTTPClient(hc *http.Client) ProfileOption {
	return func(c *ProfileClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewProfileClient constructs a ProfileClient.
func NewProfileClient(opts ...ProfileOption) *ProfileClient {
	c := &ProfileClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		profileURL: defaultProfileURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type profileResponse struct {
	ResultCode string `json:"resultcode"`
	Message    string `json:"message"`
	Response   struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		Nickname     string `json:"nickname"`
		ProfileImage string `json:"profile_image"`
		Name         string `json:"name"`
		Mobile       string `json:"mobile"`
	} `json:"response"`
}

// Fetch resolves the profile behind the access token. A non-success
// resultcode yields a *ProfileError.
func (c *ProfileClient) Fetch(ctx context.Context, accessToken string) (Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("naver: build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfileUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Profile{}, fmt.Errorf("%w: read body: %v", ErrProfileUnavailable, err)
	}

	var parsed profileResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return Profile{}, &ProfileError{ResultCode: fmt.Sprintf("http_%d", resp.StatusCode), Message: strings.TrimSpace(string(body))}
		}
		return Profile{}, fmt.Errorf("naver: decode profile: %w", err)
	}

	if parsed.ResultCode != resultSuccess {
		return Profile{}, &ProfileError{ResultCode: parsed.ResultCode, Message: parsed.Message}
	}

	return Profile{
		ID:           parsed.Response.ID,
		Email:        parsed.Response.Email,
		Nickname:     parsed.Response.Nickname,
		ProfileImage: parsed.Response.ProfileImage,
		Name:         parsed.Response.Name,
	}, nil
}
