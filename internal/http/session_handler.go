package http

import (
	"context"
	"net/http"

	"log/slog"

	"github.com/google/uuid"

	"bookshell/internal/backend"
	"bookshell/internal/bridge"
	"bookshell/internal/provider"
	"bookshell/internal/session"
)

// SessionHandler serves session inspection, sign-out, and account deletion.
// Each request builds a short-lived session manager seeded from the bearer
// token, so the fan-out logic stays in one place.
type SessionHandler struct {
	backend   session.BackendAuth
	providers *provider.Registry
	links     bridge.LinkRepository
	logger    *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(backendClient session.BackendAuth, providers *provider.Registry, links bridge.LinkRepository, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{backend: backendClient, providers: providers, links: links, logger: logger}
}

// Status handles GET /auth/session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		unauthorized(w)
		return
	}

	user, err := h.backend.GetUser(r.Context(), token)
	if err != nil {
		unauthorized(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user":          user,
	})
}

// SignOut handles DELETE /auth/session.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.teardown(w, r, false)
}

// DeleteAccount handles DELETE /auth/account.
func (h *SessionHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	h.teardown(w, r, true)
}

func (h *SessionHandler) teardown(w http.ResponseWriter, r *http.Request, revoke bool) {
	token := bearerToken(r)
	if token == "" {
		unauthorized(w)
		return
	}

	// The client may hand over its provider-held tokens for revocation; they
	// never exist server-side for Google and Kakao.
	var payload struct {
		ProviderAccessToken string `json:"providerAccessToken,omitempty"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := decodeJSON(w, r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
			return
		}
	}

	manager := session.NewManager(h.backend, h.providers, h.logger,
		session.WithTokenLookup(h.tokenLookup(payload.ProviderAccessToken)))
	if err := manager.SetSession(r.Context(), &backend.Session{AccessToken: token}); err != nil {
		unauthorized(w)
		return
	}

	var result session.Result
	var err error
	if revoke {
		result, err = manager.DeleteAccount(r.Context())
	} else {
		result, err = manager.SignOut(r.Context())
	}
	if err != nil {
		h.logger.Error("session teardown failed", "revoke", revoke, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "sign-out could not be completed")
		return
	}

	warnings := make([]map[string]string, 0, len(result.Warnings))
	for _, warning := range result.Warnings {
		warnings = append(warnings, map[string]string{
			"op":      warning.Op,
			"message": warning.Err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "signed_out",
		"warnings": warnings,
	})
}

// tokenLookup resolves provider tokens: Naver tokens come from the link
// table, everything else from what the client supplied.
func (h *SessionHandler) tokenLookup(clientToken string) session.TokenLookup {
	return func(ctx context.Context, user *backend.User) (provider.Tokens, error) {
		tokens := provider.Tokens{AccessToken: clientToken}

		if user == nil {
			return tokens, nil
		}
		if id, ok := user.UserMetadata["provider_id"].(string); ok {
			tokens.ProviderUserID = id
		} else if sub, ok := user.UserMetadata["sub"].(string); ok {
			tokens.ProviderUserID = sub
		}

		if user.Provider() != "naver" || h.links == nil {
			return tokens, nil
		}

		parsed, err := uuid.Parse(user.ID)
		if err != nil {
			return tokens, nil
		}
		link, err := h.links.FindByUserID(ctx, parsed)
		if err != nil || link == nil {
			return tokens, err
		}
		tokens.AccessToken = link.AccessToken
		tokens.RefreshToken = link.RefreshToken
		tokens.ProviderUserID = link.NaverID
		return tokens, nil
	}
}
