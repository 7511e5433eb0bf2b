package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/example/commerce-hub/internal/auth"
)

// AdminCredentials is the single admin identity the API authenticates
// against, configured from the environment.
type AdminCredentials struct {
	UserID       string
	Email        string
	PasswordHash string
}

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	jwtService *auth.JWTService
	admin      AdminCredentials
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(jwtService *auth.JWTService, admin AdminCredentials) *AuthHandlers {
	return &AuthHandlers{
		jwtService: jwtService,
		admin:      admin,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response body
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates the admin and issues an access token
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Email != h.admin.Email || !auth.CheckPassword(req.Password, h.admin.PasswordHash) {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(h.admin.UserID, h.admin.Email, "admin")
	if err != nil {
		respondJSONError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}
