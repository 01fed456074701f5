package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultAuthURL  = "https://nid.naver.com/oauth2.0/authorize"
	defaultTokenURL = "https://nid.naver.com/oauth2.0/token"
)

// Credential is a provider token bundle held for a linked user.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenClient refreshes and revokes Naver OAuth tokens. Naver does not speak
// OIDC, so the oauth2 endpoint is configured by hand.
type TokenClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	tokenURL   string
}

// NewTokenClient constructs a TokenClient with the app's client credentials.
func NewTokenClient(clientID, clientSecret string, opts ...TokenOption) *TokenClient {
	c := &TokenClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  defaultAuthURL,
				TokenURL: defaultTokenURL,
			},
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokenURL:   defaultTokenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TokenOption configures a TokenClient during construction.
type TokenOption func(*TokenClient)

// WithTokenURL overrides the token endpoint, for tests.
func WithTokenURL(u string) TokenOption {
	return func(c *TokenClient) {
		c.tokenURL = strings.TrimRight(u, "/")
		c.config.Endpoint.TokenURL = c.tokenURL
	}
}

// WithTokenHTTPClient overrides the underlying HTTP client.
func WithTokenHTTPClient(hc *http.Client) TokenOption {
	return func(c *TokenClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Refresh exchanges a refresh token for a fresh credential.
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	source := c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return Credential{}, fmt.Errorf("naver: refresh token: %w", err)
	}

	refreshed := token.RefreshToken
	if refreshed == "" {
		refreshed = refreshToken
	}
	return Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: refreshed,
		ExpiresAt:    token.Expiry,
	}, nil
}

// Revoke de-authorizes the app for the token's owner. Naver models this as a
// token grant of type "delete".
func (c *TokenClient) Revoke(ctx context.Context, accessToken string) error {
	values := url.Values{
		"grant_type":       {"delete"},
		"client_id":        {c.config.ClientID},
		"client_secret":    {c.config.ClientSecret},
		"access_token":     {accessToken},
		"service_provider": {"NAVER"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tokenURL+"?"+values.Encode(), nil)
	if err != nil {
		return fmt.Errorf("naver: build revoke request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("naver: revoke token: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var parsed struct {
		Result           string `json:"result"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("naver: decode revoke response: %w", err)
	}
	if parsed.Error != "" {
		return fmt.Errorf("naver: revoke rejected: %s (%s)", parsed.Error, parsed.ErrorDescription)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("naver: revoke failed with status %d", resp.StatusCode)
	}
	return nil
}
