package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/todo-api/apiserver/internal/auth"
	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/types"
)

// AuthService logs users in and resolves bearer tokens to users.
type AuthService struct {
	users  UserRepository
	hasher *auth.Hasher
	tokens *auth.Tokens
}

func NewAuthService(users UserRepository, hasher *auth.Hasher, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Login checks the credentials and returns a token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrIncorrectLogin
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return "", ErrIncorrectLogin
	}

	return s.tokens.IssueFor(user.Username)
}

// Refresh issues a fresh token for an already authenticated user.
func (s *AuthService) Refresh(user types.User) (string, error) {
	return s.tokens.IssueFor(user.Username)
}

// Authenticate verifies token and returns the user named by its subject.
// Every verification failure is reported as ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, token string) (types.User, error) {
	subject, err := s.tokens.Subject(token)
	if err != nil {
		return types.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrInvalidCredentials
		}
		return types.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
