package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/todo-api/apiserver/internal/services"
	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/types"
)

const (
	detailUserNotFound     = "User not found"
	detailUserConflict     = "Username or Email already exists"
	detailNoPermission     = "Not enough permissions"
	detailWeakPassword     = "Weak password"
	detailPasswordMismatch = "The passwords must be the same"
)

// UserHandler provides HTTP handlers for user accounts.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Post("/", handler.CreateUser)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", handler.ListUsers)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", handler.GetUser)
			r.Put("/", handler.UpdateUser)
			r.Delete("/", handler.DeleteUser)
		})
	})
}

// UserRequest is the account payload for create and update.
type UserRequest struct {
	Username        string  `json:"username" validate:"required"`
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required"`
	ConfirmPassword *string `json:"confirm_password,omitempty"`
}

func (req UserRequest) input() services.UserInput {
	return services.UserInput{
		Username:        strings.TrimSpace(req.Username),
		Email:           strings.TrimSpace(req.Email),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}
}

// UserListResponse is the list payload.
type UserListResponse struct {
	Users []types.UserPublic `json:"users"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req.input())
	if err != nil {
		h.writeUserError(w, r, err, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, user.Public())
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if !validRequest(w, page) {
		return
	}

	users, err := h.userService.List(r.Context(), page.Offset, page.Limit)
	if err != nil {
		writeServerError(w, r, "failed to list users", err)
		return
	}

	resp := UserListResponse{Users: make([]types.UserPublic, 0, len(users))}
	for _, user := range users {
		resp.Users = append(resp.Users, user.Public())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid user id")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, detailUserNotFound)
			return
		}
		writeServerError(w, r, "failed to fetch user", err)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req UserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), actor, id, req.input())
	if err != nil {
		h.writeUserError(w, r, err, "failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), actor, id); err != nil {
		h.writeUserError(w, r, err, "failed to delete user")
		return
	}

	writeJSON(w, http.StatusOK, Message{Message: "User deleted"})
}

// actorAndTarget resolves the caller and the path id, rejecting a request
// on someone else's account before the body is read.
func (h *UserHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (types.User, int, bool) {
	actor, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return types.User{}, 0, false
	}
	id, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid user id")
		return types.User{}, 0, false
	}
	if actor.ID != id {
		writeError(w, http.StatusForbidden, detailNoPermission)
		return types.User{}, 0, false
	}
	return actor, id, true
}

func (h *UserHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrWeakPassword):
		writeError(w, http.StatusUnprocessableEntity, detailWeakPassword)
	case errors.Is(err, services.ErrPasswordMismatch):
		writeError(w, http.StatusUnprocessableEntity, detailPasswordMismatch)
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, detailUserConflict)
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, detailNoPermission)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, detailUserNotFound)
	default:
		writeServerError(w, r, fallback, err)
	}
}
