package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultKakaoAPIURL = "https://kapi.kakao.com"

// Kakao ends sessions and unlinks accounts through the Kakao REST API. The
// admin key allows acting on a user by their Kakao user ID, which the app
// stores in the backend user's metadata at federation time.
type Kakao struct {
	httpClient *http.Client
	apiURL     string
	adminKey   string
}

// KakaoOption configures a Kakao connector during construction.
type KakaoOption func(*Kakao)

// WithKakaoAPIURL overrides the API base URL, for tests.
func WithKakaoAPIURL(u string) KakaoOption {
	return func(k *Kakao) {
		k.apiURL = strings.TrimRight(u, "/")
	}
}

// WithKakaoHTTPClient overrides the underlying HTTP client.
func WithKakaoHTTPClient(hc *http.Client) KakaoOption {
	return func(k *Kakao) {
		if hc != nil {
			k.httpClient = hc
		}
	}
}

// NewKakao creates a Kakao connector using the app's admin key.
func NewKakao(adminKey string, opts ...KakaoOption) *Kakao {
	k := &Kakao{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     defaultKakaoAPIURL,
		adminKey:   adminKey,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Name implements Connector.
func (k *Kakao) Name() string { return "kakao" }

// SignOut implements Connector by expiring the user's Kakao tokens.
func (k *Kakao) SignOut(ctx context.Context, tokens Tokens) error {
	return k.call(ctx, "/v1/user/logout", tokens)
}

// Revoke implements Connector by unlinking the Kakao account from the app.
func (k *Kakao) Revoke(ctx context.Context, tokens Tokens) error {
	return k.call(ctx, "/v1/user/unlink", tokens)
}

func (k *Kakao) call(ctx context.Context, path string, tokens Tokens) error {
	var req *http.Request
	var err error

	switch {
	case tokens.AccessToken != "":
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, k.apiURL+path, nil)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
		}
	case tokens.ProviderUserID != "" && k.adminKey != "":
		form := url.Values{
			"target_id_type": {"user_id"},
			"target_id":      {tokens.ProviderUserID},
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, k.apiURL+path, strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Authorization", "KakaoAK "+k.adminKey)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return fmt.Errorf("kakao: no credentials for %s", path)
	}
	if err != nil {
		return fmt.Errorf("kakao: build request: %w", err)
	}

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("kakao: %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		var kakaoErr struct {
			Msg  string `json:"msg"`
			Code int    `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&kakaoErr)
		return fmt.Errorf("kakao: %s failed with status %d (code %d): %s", path, resp.StatusCode, kakaoErr.Code, kakaoErr.Msg)
	}
	return nil
}
