package bridge

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bookshell/internal/backend"
)

// LinkVerifier replays a verification URL and reports the redirect Location.
type LinkVerifier interface {
	VerifyLink(ctx context.Context, verifyURL string) (string, error)
}

// sessionMinter converts a generated magic link into a live session by
// replaying the backend's own verify endpoint and reading the tokens out of
// the redirect fragment. The backend only communicates the session through a
// browser redirect, so the Location header is parsed instead of followed.
type sessionMinter struct {
	verifier   LinkVerifier
	backendURL string
}

// Mint exchanges the action link for session tokens.
func (m *sessionMinter) Mint(ctx context.Context, actionLink string) (*backend.Session, error) {
	token, linkType, err := extractLinkToken(actionLink)
	if err != nil {
		return nil, err
	}

	// redirect_to is deliberately blank so the backend redirects to its
	// configured default; only the fragment matters.
	verifyURL := fmt.Sprintf("%s/auth/v1/verify?token=%s&type=%s&redirect_to=",
		strings.TrimSuffix(m.backendURL, "/"), url.QueryEscape(token), url.QueryEscape(linkType))

	location, err := m.verifier.VerifyLink(ctx, verifyURL)
	if err != nil {
		return nil, err
	}
	if location == "" {
		return nil, fmt.Errorf("bridge: verify endpoint returned no redirect")
	}

	return sessionFromFragment(location)
}

func extractLinkToken(actionLink string) (token, linkType string, err error) {
	parsed, err := url.Parse(actionLink)
	if err != nil {
		return "", "", fmt.Errorf("bridge: parse action link: %w", err)
	}

	token = parsed.Query().Get("token")
	linkType = parsed.Query().Get("type")
	if token == "" || linkType == "" {
		return "", "", fmt.Errorf("bridge: action link is missing token or type")
	}
	return token, linkType, nil
}

func sessionFromFragment(location string) (*backend.Session, error) {
	parsed, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("bridge: parse redirect location: %w", err)
	}

	params, err := url.ParseQuery(parsed.Fragment)
	if err != nil {
		return nil, fmt.Errorf("bridge: parse redirect fragment: %w", err)
	}

	accessToken := params.Get("access_token")
	if accessToken == "" {
		if errCode := params.Get("error_code"); errCode != "" {
			return nil, fmt.Errorf("bridge: verify redirect carried error %s: %s", errCode, params.Get("error_description"))
		}
		return nil, fmt.Errorf("bridge: redirect fragment carried no access token")
	}

	expiresIn := parseInt64(params.Get("expires_in"), 3600)
	expiresAt := parseInt64(params.Get("expires_at"), time.Now().Unix()+expiresIn)

	tokenType := params.Get("token_type")
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &backend.Session{
		AccessToken:  accessToken,
		RefreshToken: params.Get("refresh_token"),
		ExpiresIn:    expiresIn,
		ExpiresAt:    expiresAt,
		TokenType:    tokenType,
	}, nil
}

func parseInt64(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
