package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/todo-api/apiserver/internal/auth"
	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.User, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByUsername(ctx context.Context, username string) (types.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// UserInput is the account data accepted on registration and update.
// ConfirmPassword is optional.
type UserInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword *string
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo   UserRepository
	hasher *auth.Hasher
	policy PasswordPolicy
	events *Events
}

func NewUserService(repo UserRepository, hasher *auth.Hasher, policy PasswordPolicy, events *Events) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		policy: policy,
		events: events,
	}
}

// Register creates a new account. A username or email already in use
// yields store.ErrConflict whichever field collides.
func (s *UserService) Register(ctx context.Context, input UserInput) (types.User, error) {
	if err := s.policy.checkPassword(input.Password, input.ConfirmPassword); err != nil {
		return types.User{}, err
	}

	if _, err := s.repo.FindByUsernameOrEmail(ctx, input.Username, input.Email); err == nil {
		return types.User{}, store.ErrConflict
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check existing user: %w", err)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return types.User{}, err
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: digest,
	})
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, types.EventUserCreated, user.ID, 0)
	return user, nil
}

// List returns a page of users ordered by id. The limit is capped at
// MaxPageLimit.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, error) {
	return s.repo.List(ctx, max(offset, 0), min(limit, MaxPageLimit))
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (types.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Update replaces the account fields of user id on behalf of actor.
func (s *UserService) Update(ctx context.Context, actor types.User, id int, input UserInput) (types.User, error) {
	if actor.ID != id {
		return types.User{}, ErrForbidden
	}
	if err := s.policy.checkPassword(input.Password, input.ConfirmPassword); err != nil {
		return types.User{}, err
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return types.User{}, err
	}

	actor.Username = input.Username
	actor.Email = input.Email
	actor.PasswordHash = digest

	updated, err := s.repo.Update(ctx, actor)
	if err != nil {
		return types.User{}, err
	}

	s.events.Publish(ctx, types.EventUserUpdated, updated.ID, 0)
	return updated, nil
}

// Delete removes user id and its todos on behalf of actor.
func (s *UserService) Delete(ctx context.Context, actor types.User, id int) error {
	if actor.ID != id {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.events.Publish(ctx, types.EventUserDeleted, id, 0)
	return nil
}
