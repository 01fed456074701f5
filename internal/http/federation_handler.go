package http

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"bookshell/internal/backend"
	"bookshell/internal/metrics"
	"bookshell/internal/provider"
)

type idTokenSignIn interface {
	SignInWithIDToken(ctx context.Context, providerName, idToken, accessToken string) (*backend.Session, error)
}

type googleVerifier interface {
	VerifyIDToken(ctx context.Context, rawIDToken string) (*provider.GoogleClaims, error)
}

// FederationHandler signs users in through the backend's native ID-token
// federation. Google and Kakao are first-class backend providers; no bridge
// is involved.
type FederationHandler struct {
	backend   idTokenSignIn
	google    googleVerifier // nil when Google credentials are not configured
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewFederationHandler creates a FederationHandler.
func NewFederationHandler(backendClient idTokenSignIn, google googleVerifier, collector *metrics.Collector, logger *slog.Logger) *FederationHandler {
	return &FederationHandler{backend: backendClient, google: google, collector: collector, logger: logger}
}

// SignIn handles POST /auth/token.
func (h *FederationHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Provider    string `json:"provider"`
		IDToken     string `json:"idToken"`
		AccessToken string `json:"accessToken,omitempty"`
	}
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	providerName := strings.ToLower(strings.TrimSpace(payload.Provider))
	switch providerName {
	case "google", "kakao":
	case "naver":
		writeError(w, http.StatusBadRequest, "invalid_request", "naver uses the /auth/naver bridge")
		return
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unsupported provider")
		return
	}

	if payload.IDToken == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "idToken is required")
		return
	}

	if providerName == "google" && h.google != nil {
		if _, err := h.google.VerifyIDToken(r.Context(), payload.IDToken); err != nil {
			h.collector.RecordLogin(providerName, "error")
			h.logger.Warn("google id token rejected", "error", err)
			writeError(w, http.StatusUnauthorized, "invalid_id_token", "the provider token could not be verified")
			return
		}
	}

	session, err := h.backend.SignInWithIDToken(r.Context(), providerName, payload.IDToken, payload.AccessToken)
	if err != nil {
		if provider.IsUserCancellation(err.Error()) {
			// The user backed out mid-flow; not alert-worthy.
			h.collector.RecordLogin(providerName, "cancelled")
			h.logger.Debug("sign-in cancelled by user", "provider", providerName)
			writeError(w, http.StatusBadRequest, "user_cancelled", "sign-in was cancelled")
			return
		}

		h.collector.RecordLogin(providerName, "error")
		h.logger.Error("federation sign-in failed", "provider", providerName, "error", err)
		writeError(w, http.StatusUnauthorized, "sign_in_failed", "the backend rejected the provider token")
		return
	}

	h.collector.RecordLogin(providerName, "success")
	writeJSON(w, http.StatusOK, session)
}
