package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"civiclens/auth"
	"civiclens/models"
)

// UserDirectory is the identity surface the auth handler needs. Implemented
// by db.FirestoreDB and the in-memory directory used in memory mode.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetPasswordHash(ctx context.Context, userID string) (string, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

type AuthHandler struct {
	users UserDirectory
	jwt   *auth.JWTManager
}

func NewAuthHandler(users UserDirectory, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwtManager,
	}
}

// Login authenticates a user and returns access and refresh tokens
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	hash, err := h.users.GetPasswordHash(r.Context(), user.UserID)
	if err != nil {
		log.Printf("❌ Failed to get password hash for %s: %v", user.Username, err)
		writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := auth.CheckPassword(req.Password, hash); err != nil {
		writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	user.LastLogin = time.Now()
	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		log.Printf("⚠️  Failed to update last login for %s: %v", user.Username, err)
	}

	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		log.Printf("❌ Failed to generate token: %v", err)
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwt.GenerateRefreshToken(user)
	if err != nil {
		log.Printf("❌ Failed to generate refresh token: %v", err)
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.Printf("✅ User logged in: %s (role: %s)", user.Username, user.Role)

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a valid refresh token for fresh tokens
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	claims, err := h.jwt.ValidateToken(req.RefreshToken)
	if err != nil {
		writeError(w, "Invalid or expired refresh token", http.StatusUnauthorized)
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, "User not found", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(user)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	refreshToken, err := h.jwt.GenerateRefreshToken(user)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         *user,
	})
}
