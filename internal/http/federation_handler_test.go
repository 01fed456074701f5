package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookshell/internal/backend"
	"bookshell/internal/metrics"
	"bookshell/internal/provider"
)

type signInStub struct {
	signInFn    func(ctx context.Context, providerName, idToken, accessToken string) (*backend.Session, error)
	gotProvider string
	gotIDToken  string
}

func (s *signInStub) SignInWithIDToken(ctx context.Context, providerName, idToken, accessToken string) (*backend.Session, error) {
	s.gotProvider = providerName
	s.gotIDToken = idToken
	return s.signInFn(ctx, providerName, idToken, accessToken)
}

type verifierStub struct {
	err    error
	called bool
}

func (v *verifierStub) VerifyIDToken(context.Context, string) (*provider.GoogleClaims, error) {
	v.called = true
	if v.err != nil {
		return nil, v.err
	}
	return &provider.GoogleClaims{}, nil
}

func newFederationHandler(stub *signInStub, google googleVerifier) *FederationHandler {
	return NewFederationHandler(stub, google, metrics.NewCollector(), discardLogger())
}

func TestFederationSignIn_ForwardsProviderAndToken(t *testing.T) {
	stub := &signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			return &backend.Session{AccessToken: "jwt", TokenType: "bearer"}, nil
		},
	}
	handler := newFederationHandler(stub, nil)

	body := `{"provider":"kakao","idToken":"kakao-id-token"}`
	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.gotProvider != "kakao" || stub.gotIDToken != "kakao-id-token" {
		t.Fatalf("request not forwarded: provider=%q idToken=%q", stub.gotProvider, stub.gotIDToken)
	}

	var session backend.Session
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decoding session: %v", err)
	}
	if session.AccessToken != "jwt" {
		t.Fatalf("unexpected session %+v", session)
	}
}

func TestFederationSignIn_NaverIsRedirectedToBridge(t *testing.T) {
	stub := &signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			t.Fatal("backend should not be called for naver")
			return nil, nil
		},
	}
	handler := newFederationHandler(stub, nil)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"naver","idToken":"x"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bridge") {
		t.Fatalf("expected bridge hint in body: %s", rec.Body.String())
	}
}

func TestFederationSignIn_UnknownProviderRejected(t *testing.T) {
	handler := newFederationHandler(&signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			return nil, nil
		},
	}, nil)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"github","idToken":"x"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFederationSignIn_MissingIDTokenRejected(t *testing.T) {
	handler := newFederationHandler(&signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			return nil, nil
		},
	}, nil)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"google"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestFederationSignIn_GoogleTokenVerifiedWhenConfigured(t *testing.T) {
	verifier := &verifierStub{err: errors.New("audience mismatch")}
	stub := &signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			t.Fatal("backend should not see a rejected token")
			return nil, nil
		},
	}
	handler := newFederationHandler(stub, verifier)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"google","idToken":"bad"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if !verifier.called {
		t.Fatal("verifier was not consulted")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "invalid_id_token" {
		t.Fatalf("expected invalid_id_token, got %q", resp["error"])
	}
}

func TestFederationSignIn_CancellationIsNotAnError(t *testing.T) {
	stub := &signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			return nil, errors.New("sign_in_cancelled")
		},
	}
	handler := newFederationHandler(stub, nil)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"google","idToken":"x"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp["error"] != "user_cancelled" {
		t.Fatalf("expected user_cancelled, got %q", resp["error"])
	}
}

func TestFederationSignIn_BackendRejectionIsUnauthorized(t *testing.T) {
	stub := &signInStub{
		signInFn: func(context.Context, string, string, string) (*backend.Session, error) {
			return nil, &backend.APIError{Status: 400, Code: "bad_id_token", Message: "unable to verify"}
		},
	}
	handler := newFederationHandler(stub, nil)

	req := httptest.NewRequest("POST", "/auth/token", strings.NewReader(`{"provider":"kakao","idToken":"x"}`))
	rec := httptest.NewRecorder()
	handler.SignIn(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
