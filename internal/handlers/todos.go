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
	detailTodoNotFound = "Task not found"
)

// TodoHandler provides HTTP handlers for the caller's todos.
type TodoHandler struct {
	todoService *services.TodoService
}

func NewTodoHandler(todoService *services.TodoService) *TodoHandler {
	return &TodoHandler{todoService: todoService}
}

// TodoRouter registers todo routes; every route requires authentication.
func TodoRouter(r chi.Router, todoService *services.TodoService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTodoHandler(todoService)

	r.Use(authMiddleware)
	r.Post("/", handler.CreateTodo)
	r.Get("/", handler.ListTodos)
	r.Route("/{todoID}", func(r chi.Router) {
		r.Patch("/", handler.UpdateTodo)
		r.Delete("/", handler.DeleteTodo)
	})
}

// TodoRequest is the create payload. State defaults to "todo".
type TodoRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	State       string `json:"state" validate:"omitempty,oneof=draft todo doing done trash"`
}

// TodoUpdateRequest is the partial update payload; absent fields are kept.
type TodoUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	State       *string `json:"state" validate:"omitempty,oneof=draft todo doing done trash"`
}

// TodoFilterQuery holds the list query parameters.
type TodoFilterQuery struct {
	Title       string `json:"title" validate:"omitempty,min=3,max=30"`
	Description string `json:"description" validate:"omitempty,min=3"`
	State       string `json:"state" validate:"omitempty,oneof=draft todo doing done trash"`
	PageQuery
}

// TodoListResponse is the list payload.
type TodoListResponse struct {
	Todos []types.Todo `json:"todos"`
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	owner, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	var req TodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := h.todoService.Create(r.Context(), owner, types.Todo{
		Title:       req.Title,
		Description: req.Description,
		State:       types.TodoState(req.State),
	})
	if err != nil {
		h.writeTodoError(w, r, err, "failed to create todo")
		return
	}

	writeJSON(w, http.StatusCreated, todo)
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	owner, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}

	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	query := TodoFilterQuery{
		Title:       strings.TrimSpace(r.URL.Query().Get("title")),
		Description: strings.TrimSpace(r.URL.Query().Get("description")),
		State:       strings.TrimSpace(r.URL.Query().Get("state")),
		PageQuery:   page,
	}
	if !validRequest(w, query) {
		return
	}

	todos, err := h.todoService.List(r.Context(), owner, types.TodoFilter{
		Title:       query.Title,
		Description: query.Description,
		State:       types.TodoState(query.State),
		Offset:      query.Offset,
		Limit:       query.Limit,
	})
	if err != nil {
		h.writeTodoError(w, r, err, "failed to list todos")
		return
	}

	writeJSON(w, http.StatusOK, TodoListResponse{Todos: todos})
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	owner, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}
	id, err := parseID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid todo id")
		return
	}

	var req TodoUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := types.TodoPatch{Title: req.Title, Description: req.Description}
	if req.State != nil {
		state := types.TodoState(*req.State)
		patch.State = &state
	}

	todo, err := h.todoService.Update(r.Context(), owner, id, patch)
	if err != nil {
		h.writeTodoError(w, r, err, "failed to update todo")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	owner, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, detailInvalidCredentials)
		return
	}
	id, err := parseID(r, "todoID")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid todo id")
		return
	}

	if err := h.todoService.Delete(r.Context(), owner, id); err != nil {
		h.writeTodoError(w, r, err, "failed to delete todo")
		return
	}

	writeJSON(w, http.StatusOK, Message{Message: "Task has been deleted successfully"})
}

func (h *TodoHandler) writeTodoError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, detailTodoNotFound)
	case errors.Is(err, services.ErrInvalidState):
		writeError(w, http.StatusUnprocessableEntity, "state: should be one of draft, todo, doing, done, trash")
	default:
		writeServerError(w, r, fallback, err)
	}
}
