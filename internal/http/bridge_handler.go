package http

import (
	"context"
	"errors"
	"net/http"

	"log/slog"

	"bookshell/internal/backend"
	"bookshell/internal/bridge"
	"bookshell/internal/metrics"
	"bookshell/internal/naver"
)

type bridgeExchanger interface {
	Exchange(ctx context.Context, req bridge.ExchangeRequest) (*bridge.ExchangeResult, error)
}

// BridgeHandler exposes the Naver identity bridge endpoint.
type BridgeHandler struct {
	svc       bridgeExchanger
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewBridgeHandler creates a BridgeHandler.
func NewBridgeHandler(svc bridgeExchanger, collector *metrics.Collector, logger *slog.Logger) *BridgeHandler {
	return &BridgeHandler{svc: svc, collector: collector, logger: logger}
}

type bridgeResponse struct {
	Session sessionBody       `json:"session"`
	User    bridge.BridgeUser `json:"user"`
}

// sessionBody mirrors the session wire shape without the embedded user.
type sessionBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
}

// Exchange handles POST /auth/naver.
func (h *BridgeHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	var req bridge.ExchangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	result, err := h.svc.Exchange(r.Context(), req)
	if err != nil {
		h.respondError(w, err)
		return
	}

	for _, warning := range result.Warnings {
		h.collector.RecordBridgeWarning(warning.Op)
	}
	h.collector.RecordLogin("naver", "success")
	h.logger.Info("naver login bridged", "user_id", result.User.ID, "new_user", result.User.IsNewUser, "warnings", len(result.Warnings))

	writeJSON(w, http.StatusOK, bridgeResponse{
		Session: sessionBody{
			AccessToken:  result.Session.AccessToken,
			RefreshToken: result.Session.RefreshToken,
			ExpiresIn:    result.Session.ExpiresIn,
			ExpiresAt:    result.Session.ExpiresAt,
			TokenType:    result.Session.TokenType,
		},
		User: result.User,
	})
}

func (h *BridgeHandler) respondError(w http.ResponseWriter, err error) {
	h.collector.RecordLogin("naver", "error")

	if errors.Is(err, bridge.ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var profileErr *naver.ProfileError
	if errors.As(err, &profileErr) {
		writeError(w, http.StatusBadRequest, "provider_profile_error", profileErr.Message)
		return
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		h.logger.Error("bridge exchange failed against backend", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "login could not be completed")
		return
	}

	h.logger.Error("bridge exchange failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal_error", "login could not be completed")
}
