package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeConnector struct {
	name        string
	signOutErr  error
	revokeErr   error
	signOutHits int
	revokeHits  int
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) SignOut(ctx context.Context, tokens Tokens) error {
	f.signOutHits++
	return f.signOutErr
}

func (f *fakeConnector) Revoke(ctx context.Context, tokens Tokens) error {
	f.revokeHits++
	return f.revokeErr
}

func TestRegistryLookup(t *testing.T) {
	kakao := &fakeConnector{name: "kakao"}
	registry := NewRegistry(&fakeConnector{name: "google"}, kakao)

	c, err := registry.Get("KAKAO")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if c.Name() != "kakao" {
		t.Fatalf("expected kakao connector, got %q", c.Name())
	}

	if _, err := registry.Get("apple"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestIsUserCancellation(t *testing.T) {
	cases := []struct {
		message string
		want    bool
	}{
		{"SIGN_IN_CANCELLED", true},
		{"The user canceled the sign-in flow", true},
		{"user_cancel: naver login aborted", true},
		{"status code 12501", true},
		{"network unreachable", false},
		{"invalid_grant", false},
	}

	for _, tc := range cases {
		if got := IsUserCancellation(tc.message); got != tc.want {
			t.Fatalf("IsUserCancellation(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestKakaoSignOutWithAccessToken(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"id":12345}`))
	}))
	defer srv.Close()

	kakao := NewKakao("admin-key", WithKakaoAPIURL(srv.URL))
	if err := kakao.SignOut(context.Background(), Tokens{AccessToken: "user-token"}); err != nil {
		t.Fatalf("SignOut returned error: %v", err)
	}
	if gotPath != "/v1/user/logout" {
		t.Fatalf("expected logout path, got %q", gotPath)
	}
	if gotAuth != "Bearer user-token" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
}

func TestKakaoRevokeWithAdminKey(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("target_id") != "98765" {
			t.Fatalf("expected target_id 98765, got %q", r.PostForm.Get("target_id"))
		}
		_, _ = w.Write([]byte(`{"id":98765}`))
	}))
	defer srv.Close()

	kakao := NewKakao("admin-key", WithKakaoAPIURL(srv.URL))
	if err := kakao.Revoke(context.Background(), Tokens{ProviderUserID: "98765"}); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	if gotPath != "/v1/user/unlink" {
		t.Fatalf("expected unlink path, got %q", gotPath)
	}
	if gotAuth != "KakaoAK admin-key" {
		t.Fatalf("expected admin key auth, got %q", gotAuth)
	}
}

func TestKakaoRequiresCredentials(t *testing.T) {
	kakao := NewKakao("")
	if err := kakao.SignOut(context.Background(), Tokens{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestGoogleRevokeRequiresToken(t *testing.T) {
	g := &Google{revokeURL: googleRevokeURL, httpClient: http.DefaultClient}
	if err := g.Revoke(context.Background(), Tokens{}); err == nil {
		t.Fatal("expected error without provider token")
	}
}

func TestGoogleRevokePostsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("token") != "provider-token" {
			t.Fatalf("expected token in form, got %q", r.PostForm.Get("token"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := &Google{revokeURL: srv.URL, httpClient: srv.Client()}
	if err := g.Revoke(context.Background(), Tokens{AccessToken: "provider-token"}); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
}
