package bridge

import (
	"testing"
)

func TestExtractLinkToken(t *testing.T) {
	token, linkType, err := extractLinkToken("https://backend.test/auth/v1/verify?token=abc&type=magiclink&redirect_to=https://app.test")
	if err != nil {
		t.Fatalf("extractLinkToken returned error: %v", err)
	}
	if token != "abc" || linkType != "magiclink" {
		t.Fatalf("unexpected token/type: %q / %q", token, linkType)
	}
}

func TestExtractLinkTokenMissingParams(t *testing.T) {
	if _, _, err := extractLinkToken("https://backend.test/auth/v1/verify?redirect_to=x"); err == nil {
		t.Fatal("expected error for link without token")
	}
}

func TestSessionFromFragment(t *testing.T) {
	session, err := sessionFromFragment("https://app.test/#access_token=at&refresh_token=rt&expires_in=7200&expires_at=1900000000&token_type=bearer")
	if err != nil {
		t.Fatalf("sessionFromFragment returned error: %v", err)
	}
	if session.AccessToken != "at" || session.RefreshToken != "rt" {
		t.Fatalf("unexpected tokens: %+v", session)
	}
	if session.ExpiresIn != 7200 || session.ExpiresAt != 1900000000 {
		t.Fatalf("unexpected expiry: %+v", session)
	}
}

func TestSessionFromFragmentDefaults(t *testing.T) {
	session, err := sessionFromFragment("https://app.test/#access_token=at")
	if err != nil {
		t.Fatalf("sessionFromFragment returned error: %v", err)
	}
	if session.ExpiresIn != 3600 || session.TokenType != "bearer" {
		t.Fatalf("expected defaults, got %+v", session)
	}
}

func TestSessionFromFragmentErrorRedirect(t *testing.T) {
	_, err := sessionFromFragment("https://app.test/#error_code=otp_expired&error_description=Email+link+is+invalid")
	if err == nil {
		t.Fatal("expected error for error redirect")
	}
}

func TestSessionFromFragmentEmpty(t *testing.T) {
	if _, err := sessionFromFragment("https://app.test/"); err == nil {
		t.Fatal("expected error for redirect without fragment")
	}
}
