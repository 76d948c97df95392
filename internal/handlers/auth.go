package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/todo-api/apiserver/internal/services"
)

const (
	tokenType                = "Bearer"
	detailInvalidCredentials = "Could not validate credentials"
	detailNotAuthenticated   = "Not authenticated"
	detailIncorrectLogin     = "Incorrect username or password"
)

// AuthHandler provides the token endpoints.
type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService) {
	handler := NewAuthHandler(authService)

	r.Post("/login", handler.Login)
	r.With(RequireAuth(authService)).Post("/refresh_token", handler.RefreshToken)
}

// RequireAuth resolves the bearer token to a user and stores it in the
// request context. Each request is verified afresh.
func RequireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeUnauthorized(w, detailNotAuthenticated)
				return
			}

			user, err := authService.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, services.ErrInvalidCredentials) {
					writeUnauthorized(w, detailInvalidCredentials)
					return
				}
				writeServerError(w, r, "failed to authenticate", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// LoginForm is the form-encoded credential pair accepted by Login.
type LoginForm struct {
	Username string `form:"username" validate:"required"`
	Password string `form:"password" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login exchanges a username and password for an access token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	form := LoginForm{
		Username: strings.TrimSpace(r.PostForm.Get("username")),
		Password: r.PostForm.Get("password"),
	}
	if !validRequest(w, form) {
		return
	}

	token, err := h.authService.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, services.ErrIncorrectLogin) {
			writeError(w, http.StatusUnauthorized, detailIncorrectLogin)
			return
		}
		writeServerError(w, r, "failed to authenticate", err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: tokenType})
}

// RefreshToken issues a new token for the authenticated caller.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	token, err := h.authService.Refresh(user)
	if err != nil {
		writeServerError(w, r, "failed to create token", err)
		return
	}

	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: tokenType})
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", tokenType)
	writeError(w, http.StatusUnauthorized, detail)
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	scheme, token, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, tokenType) {
		return "", errors.New("invalid authorization")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
