package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"otakuwave/core/auth"
	"otakuwave/logger"
)

type contextKey string

const (
	adminIDKey  contextKey = "adminID"
	usernameKey contextKey = "username"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// LoginHandler verifies admin credentials and issues a bearer token.
// URL: POST /api/admin/login
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("[Login] Invalid request body", logger.ErrorField(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	admin, err := h.admins.GetByUsername(r.Context(), req.Username)
	if err != nil {
		logger.Error("[Login] Failed to look up admin", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if admin == nil || !auth.CheckPasswordHash(req.Password, admin.PasswordHash) {
		logger.Warn("[Login] Rejected credentials", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	token, err := h.tokens.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		logger.Error("[Login] Failed to generate token", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logger.Info("[Login] Admin logged in", logger.String("username", admin.Username))
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: admin.Username})
}

// AuthMiddleware rejects requests without a valid admin bearer token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		claims, err := h.tokens.ParseToken(parts[1])
		if err != nil {
			logger.Debug("Rejected token", logger.ErrorField(err))
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), adminIDKey, claims.AdminID)
		ctx = context.WithValue(ctx, usernameKey, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetAdminIDFromContext extracts the admin ID set by AuthMiddleware.
func GetAdminIDFromContext(ctx context.Context) (int64, error) {
	id, ok := ctx.Value(adminIDKey).(int64)
	if !ok {
		return 0, fmt.Errorf("admin ID not found in context")
	}
	return id, nil
}

// GetUsernameFromContext extracts the username set by AuthMiddleware.
func GetUsernameFromContext(ctx context.Context) (string, error) {
	username, ok := ctx.Value(usernameKey).(string)
	if !ok {
		return "", fmt.Errorf("username not found in context")
	}
	return username, nil
}
