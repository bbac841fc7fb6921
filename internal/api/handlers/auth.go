package handlers

import (
	"net/http"
	"time"

	"github.com/dom/doctree/internal/api/middleware"
	"github.com/dom/doctree/internal/api/response"
	"github.com/dom/doctree/internal/config"
	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

type LoginRequest struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(w, r, &req); err != nil {
		response.Error(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    result.Credential,
		Path:     "/",
		Expires:  result.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	response.JSON(w, http.StatusOK, LoginResponse{
		User:      principalResponse(result.Principal),
		Token:     result.Credential,
		ExpiresAt: result.ExpiresAt,
	})
}

// Session reports who the caller is. It never fails; an anonymous caller
// simply gets authenticated=false.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	result := h.authService.Authorize(r.Context(), middleware.Credential(r))
	if result.Outcome != domain.Authorized {
		response.JSON(w, http.StatusOK, SessionResponse{})
		return
	}
	user := principalResponse(result.Principal)
	response.JSON(w, http.StatusOK, SessionResponse{Authenticated: true, User: &user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), middleware.Credential(r)); err != nil {
		response.Error(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func principalResponse(p domain.Principal) UserResponse {
	return UserResponse{ID: p.UserID, Name: p.Name, Roles: p.Roles}
}
