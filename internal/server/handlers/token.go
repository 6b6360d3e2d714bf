package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/realsync/internal/server/auth"
	"github.com/iudanet/realsync/pkg/api"
)

// TokenHandler issues connection tokens for the realtime API
type TokenHandler struct {
	logger    *slog.Logger
	jwtConfig auth.JWTConfig
}

// NewTokenHandler creates a new token handler
func NewTokenHandler(logger *slog.Logger, jwtConfig auth.JWTConfig) *TokenHandler {
	return &TokenHandler{
		logger:    logger,
		jwtConfig: jwtConfig,
	}
}

// Token handles POST /api/v1/auth/token
func (h *TokenHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode token request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ClientID == "" || req.Username == "" {
		http.Error(w, "client_id and username are required", http.StatusBadRequest)
		return
	}

	token, expiresIn, err := auth.GenerateAccessToken(h.jwtConfig, req.ClientID, req.Username)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Token issued", "client_id", req.ClientID, "username", req.Username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}
