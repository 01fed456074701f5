package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"bookshell/internal/backend"
	"bookshell/internal/bridge"
	"bookshell/internal/provider"
)

type sessionBackendStub struct {
	getUserFn   func(ctx context.Context, accessToken string) (*backend.User, error)
	signOutFn   func(ctx context.Context, accessToken, scope string) error
	signOutSeen bool
}

func (s *sessionBackendStub) GetUser(ctx context.Context, accessToken string) (*backend.User, error) {
	if s.getUserFn != nil {
		return s.getUserFn(ctx, accessToken)
	}
	return nil, errors.New("no user configured")
}

func (s *sessionBackendStub) RefreshSession(context.Context, string) (*backend.Session, error) {
	return nil, errors.New("refresh not supported in stub")
}

func (s *sessionBackendStub) SignOut(ctx context.Context, accessToken, scope string) error {
	s.signOutSeen = true
	if s.signOutFn != nil {
		return s.signOutFn(ctx, accessToken, scope)
	}
	return nil
}

type recordingConnector struct {
	name       string
	signOuts   int
	revokes    int
	lastTokens provider.Tokens
	err        error
}

func (c *recordingConnector) Name() string { return c.name }

func (c *recordingConnector) SignOut(_ context.Context, tokens provider.Tokens) error {
	c.signOuts++
	c.lastTokens = tokens
	return c.err
}

func (c *recordingConnector) Revoke(_ context.Context, tokens provider.Tokens) error {
	c.revokes++
	c.lastTokens = tokens
	return c.err
}

func naverUser(id string) *backend.User {
	return &backend.User{
		ID:           id,
		Email:        "naver_123@naver.placeholder",
		UserMetadata: map[string]any{"naver_id": "123"},
		AppMetadata:  backend.AppMetadata{Provider: "naver"},
	}
}

func TestSessionStatus_ReturnsUserForValidToken(t *testing.T) {
	stub := &sessionBackendStub{
		getUserFn: func(_ context.Context, token string) (*backend.User, error) {
			if token != "valid-token" {
				return nil, &backend.APIError{Status: 401, Code: "bad_jwt"}
			}
			return naverUser(uuid.NewString()), nil
		},
	}
	handler := NewSessionHandler(stub, provider.NewRegistry(), nil, discardLogger())

	req := httptest.NewRequest("GET", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Authenticated bool         `json:"authenticated"`
		User          backend.User `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Authenticated || resp.User.AppMetadata.Provider != "naver" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSessionStatus_MissingBearerIsUnauthorized(t *testing.T) {
	handler := NewSessionHandler(&sessionBackendStub{}, provider.NewRegistry(), nil, discardLogger())

	req := httptest.NewRequest("GET", "/auth/session", nil)
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Fatal("expected WWW-Authenticate challenge")
	}
}

func TestSessionSignOut_UsesNaverTokensFromLinkStore(t *testing.T) {
	userID := uuid.New()
	stub := &sessionBackendStub{
		getUserFn: func(context.Context, string) (*backend.User, error) {
			return naverUser(userID.String()), nil
		},
	}
	links := bridge.NewInMemoryLinkRepository()
	if err := links.Upsert(context.Background(), bridge.Link{
		UserID:      userID,
		NaverID:     "123",
		AccessToken: "stored-naver-token",
	}); err != nil {
		t.Fatalf("seeding link: %v", err)
	}
	connector := &recordingConnector{name: "naver"}
	handler := NewSessionHandler(stub, provider.NewRegistry(connector), links, discardLogger())

	req := httptest.NewRequest("DELETE", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer jwt")
	rec := httptest.NewRecorder()
	handler.SignOut(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !stub.signOutSeen {
		t.Fatal("backend sign-out was not invoked")
	}
	if connector.lastTokens.AccessToken != "stored-naver-token" {
		t.Fatalf("stored naver token not used, got %q", connector.lastTokens.AccessToken)
	}
}

func TestSessionDeleteAccount_RevokesWithClientSuppliedToken(t *testing.T) {
	stub := &sessionBackendStub{
		getUserFn: func(context.Context, string) (*backend.User, error) {
			return &backend.User{
				ID:          uuid.NewString(),
				Email:       "reader@example.com",
				AppMetadata: backend.AppMetadata{Provider: "google"},
			}, nil
		},
	}
	connector := &recordingConnector{name: "google"}
	handler := NewSessionHandler(stub, provider.NewRegistry(connector), nil, discardLogger())

	body := strings.NewReader(`{"providerAccessToken":"google-access-token"}`)
	req := httptest.NewRequest("DELETE", "/auth/account", body)
	req.Header.Set("Authorization", "Bearer jwt")
	rec := httptest.NewRecorder()
	handler.DeleteAccount(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if connector.revokes != 1 {
		t.Fatalf("expected one revoke, got %d", connector.revokes)
	}
	if connector.signOuts != 0 {
		t.Fatalf("account deletion must revoke, not sign out; got %d sign-outs", connector.signOuts)
	}
	if connector.lastTokens.AccessToken != "google-access-token" {
		t.Fatalf("client token not forwarded, got %q", connector.lastTokens.AccessToken)
	}
}

func TestSessionSignOut_ProviderFailureReportedAsWarning(t *testing.T) {
	stub := &sessionBackendStub{
		getUserFn: func(context.Context, string) (*backend.User, error) {
			return &backend.User{
				ID:          uuid.NewString(),
				AppMetadata: backend.AppMetadata{Provider: "kakao"},
			}, nil
		},
	}
	connector := &recordingConnector{name: "kakao", err: errors.New("kakao api unavailable")}
	handler := NewSessionHandler(stub, provider.NewRegistry(connector), nil, discardLogger())

	req := httptest.NewRequest("DELETE", "/auth/session", strings.NewReader(`{"providerAccessToken":"k"}`))
	req.Header.Set("Authorization", "Bearer jwt")
	rec := httptest.NewRecorder()
	handler.SignOut(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("provider failure must not block sign-out, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status   string `json:"status"`
		Warnings []struct {
			Op      string `json:"op"`
			Message string `json:"message"`
		} `json:"warnings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "signed_out" {
		t.Fatalf("unexpected status %q", resp.Status)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Op != "provider_sign_out" {
		t.Fatalf("expected provider_sign_out warning, got %+v", resp.Warnings)
	}
}

func TestSessionSignOut_InvalidSessionIsUnauthorized(t *testing.T) {
	stub := &sessionBackendStub{
		getUserFn: func(context.Context, string) (*backend.User, error) {
			return nil, &backend.APIError{Status: 401, Code: "bad_jwt", Message: "invalid JWT"}
		},
	}
	handler := NewSessionHandler(stub, provider.NewRegistry(), nil, discardLogger())

	req := httptest.NewRequest("DELETE", "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer expired")
	rec := httptest.NewRecorder()
	handler.SignOut(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
