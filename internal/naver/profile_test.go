package naver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchProfileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer provider-token" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		_, _ = w.Write([]byte(`{
			"resultcode": "00",
			"message": "success",
			"response": {
				"id": "naver-123",
				"email": "reader@naver.com",
				"nickname": "bookworm",
				"profile_image": "https://img.test/p.png",
				"name": "Hong Gildong"
			}
		}`))
	}))
	defer srv.Close()

	client := NewProfileClient(WithProfileURL(srv.URL))
	profile, err := client.Fetch(context.Background(), "provider-token")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if profile.ID != "naver-123" || profile.Email != "reader@naver.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if profile.DisplayName() != "bookworm" {
		t.Fatalf("expected nickname as display name, got %q", profile.DisplayName())
	}
}

func TestFetchProfileRejectsNonSuccessResultCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"resultcode":"024","message":"Authentication failed"}`))
	}))
	defer srv.Close()

	client := NewProfileClient(WithProfileURL(srv.URL))
	_, err := client.Fetch(context.Background(), "bad-token")
	if err == nil {
		t.Fatal("expected error for non-success resultcode")
	}

	var profileErr *ProfileError
	if !errors.As(err, &profileErr) {
		t.Fatalf("expected *ProfileError, got %T: %v", err, err)
	}
	if profileErr.ResultCode != "024" {
		t.Fatalf("expected resultcode 024, got %q", profileErr.ResultCode)
	}
}

func TestDisplayNameFallsBackToName(t *testing.T) {
	p := Profile{Name: "Hong Gildong"}
	if p.DisplayName() != "Hong Gildong" {
		t.Fatalf("expected fallback to name, got %q", p.DisplayName())
	}
}

func TestRevokeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("grant_type") != "delete" {
			t.Fatalf("expected grant_type delete, got %q", q.Get("grant_type"))
		}
		if q.Get("access_token") != "provider-token" {
			t.Fatalf("expected access token in query, got %q", q.Get("access_token"))
		}
		_, _ = w.Write([]byte(`{"access_token":"provider-token","result":"success"}`))
	}))
	defer srv.Close()

	client := NewTokenClient("client-id", "client-secret", WithTokenURL(srv.URL))
	if err := client.Revoke(context.Background(), "provider-token"); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
}

func TestRevokeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"no valid data in session"}`))
	}))
	defer srv.Close()

	client := NewTokenClient("client-id", "client-secret", WithTokenURL(srv.URL))
	if err := client.Revoke(context.Background(), "stale"); err == nil {
		t.Fatal("expected error for rejected revoke")
	}
}
