package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/todo-api/apiserver/internal/services"
	"github.com/todo-api/apiserver/types"
)

type contextKey string

const contextUserKey contextKey = "user"

const (
	defaultOffset = 0
	defaultLimit  = services.DefaultPageLimit
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return field.Name
	})
	return v
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Message is a plain confirmation payload.
type Message struct {
	Message string `json:"message"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

// writeServerError logs err and replies 500 without exposing it.
func writeServerError(w http.ResponseWriter, r *http.Request, detail string, err error) {
	slog.ErrorContext(r.Context(), detail,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
	)
	writeError(w, http.StatusInternalServerError, detail)
}

// decodeJSON decodes the body into dst and validates it. On failure it
// writes a 422 reply and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return false
	}
	return validRequest(w, dst)
}

func validRequest(w http.ResponseWriter, value any) bool {
	if err := validate.Struct(value); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: field required", fe.Field())
	case "email":
		return fmt.Sprintf("%s: value is not a valid email address", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s: should have at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s: should be greater than or equal to %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: should have at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: should be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s: failed %s validation", fe.Field(), fe.Tag())
	}
}

func parseID(r *http.Request, param string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// parseIntQuery reads an optional integer query parameter.
func parseIntQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: value is not a valid integer", key)
	}
	return value, nil
}

// PageQuery is the offset/limit pair shared by list endpoints.
type PageQuery struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=0"`
}

func parsePage(r *http.Request) (PageQuery, error) {
	offset, err := parseIntQuery(r, "offset", defaultOffset)
	if err != nil {
		return PageQuery{}, err
	}
	limit, err := parseIntQuery(r, "limit", defaultLimit)
	if err != nil {
		return PageQuery{}, err
	}
	return PageQuery{Offset: offset, Limit: limit}, nil
}
