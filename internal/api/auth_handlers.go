package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
)

// AuthHandlers handles authentication-related HTTP requests. Registration is
// invite-only: the route sits behind the users.manage permission, so only
// admins mint accounts.
type AuthHandlers struct {
	store      store.UserStore
	jwtService *auth.JWTService
}

func NewAuthHandlers(st store.UserStore, jwtService *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{store: st, jwtService: jwtService}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

// UserResponse represents user data in responses
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func userResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Register creates a new operator account.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Name == "" {
		respondJSONError(w, "email and name are required", http.StatusBadRequest)
		return
	}
	role := req.Role
	if role == "" {
		role = auth.RoleStaff
	}
	if _, ok := auth.KnownRole(role); !ok {
		respondJSONError(w, "unknown role", http.StatusBadRequest)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			respondJSONError(w, "password must be at least 8 characters", http.StatusBadRequest)
			return
		}
		respondJSONError(w, "could not hash password", http.StatusInternalServerError)
		return
	}

	u := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         role,
		IsActive:     true,
	}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondJSONError(w, "email already registered", http.StatusConflict)
			return
		}
		respondJSONError(w, "could not create user", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{
		User:    userResponse(u),
		Message: "registration successful",
	})
}

// Login verifies credentials and sets the auth cookies.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondJSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}
	if !u.IsActive {
		respondJSONError(w, "account is deactivated", http.StatusForbidden)
		return
	}
	if !auth.CheckPassword(req.Password, u.PasswordHash) {
		respondJSONError(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	h.setAuthCookies(w, u, r)
	respondJSON(w, http.StatusOK, AuthResponse{
		User:    userResponse(u),
		Message: "login successful",
	})
}

// Logout clears the auth cookies.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

// Refresh rotates the access token off a valid refresh token.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshCookie, err := r.Cookie("refresh_token")
	if err != nil {
		respondJSONError(w, "no refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwtService.ValidateRefreshToken(refreshCookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	u, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "user not found", http.StatusUnauthorized)
		return
	}
	if !u.IsActive {
		h.clearAuthCookies(w)
		respondJSONError(w, "account is deactivated", http.StatusForbidden)
		return
	}

	h.setAuthCookies(w, u, r)
	respondJSON(w, http.StatusOK, map[string]string{"message": "token refreshed"})
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.store.GetUser(r.Context(), claims.UserID)
	if err != nil {
		respondJSONError(w, "user not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, userResponse(u))
}

// Helper methods

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, u *model.User, r *http.Request) {
	accessToken, accessExpiry, _ := h.jwtService.GenerateAccessToken(u.ID, u.Email, u.Name, u.Role)
	refreshToken, refreshExpiry, _ := h.jwtService.GenerateRefreshToken(u.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/auth/refresh",
		Expires:  refreshExpiry,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Path:     "/auth/refresh",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
