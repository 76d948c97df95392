package services

import (
	"context"

	"github.com/todo-api/apiserver/types"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// TodoRepository defines persistence operations for todos.
type TodoRepository interface {
	List(ctx context.Context, filter types.TodoFilter) ([]types.Todo, error)
	GetOwned(ctx context.Context, userID, id int) (types.Todo, error)
	Create(ctx context.Context, todo types.Todo) (types.Todo, error)
	Update(ctx context.Context, todo types.Todo) (types.Todo, error)
	DeleteOwned(ctx context.Context, userID, id int) error
}

// TodoService encapsulates todo use-cases. Every operation is scoped to the
// owning user; another user's todo is indistinguishable from a missing one.
type TodoService struct {
	repo   TodoRepository
	events *Events
}

func NewTodoService(repo TodoRepository, events *Events) *TodoService {
	return &TodoService{repo: repo, events: events}
}

func (s *TodoService) Create(ctx context.Context, owner types.User, todo types.Todo) (types.Todo, error) {
	if todo.State == "" {
		todo.State = types.TodoStateTodo
	}
	if !todo.State.Valid() {
		return types.Todo{}, ErrInvalidState
	}
	todo.ID = 0
	todo.UserID = owner.ID

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}

	s.events.Publish(ctx, types.EventTodoCreated, owner.ID, created.ID)
	return created, nil
}

// List returns owner's todos matching filter. The limit is capped at
// MaxPageLimit.
func (s *TodoService) List(ctx context.Context, owner types.User, filter types.TodoFilter) ([]types.Todo, error) {
	if filter.State != "" && !filter.State.Valid() {
		return nil, ErrInvalidState
	}
	filter.UserID = owner.ID
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit > MaxPageLimit {
		filter.Limit = MaxPageLimit
	}
	return s.repo.List(ctx, filter)
}

// Update applies the non-nil fields of patch to owner's todo id.
func (s *TodoService) Update(ctx context.Context, owner types.User, id int, patch types.TodoPatch) (types.Todo, error) {
	todo, err := s.repo.GetOwned(ctx, owner.ID, id)
	if err != nil {
		return types.Todo{}, err
	}

	if patch.Title != nil {
		todo.Title = *patch.Title
	}
	if patch.Description != nil {
		todo.Description = *patch.Description
	}
	if patch.State != nil {
		if !patch.State.Valid() {
			return types.Todo{}, ErrInvalidState
		}
		todo.State = *patch.State
	}

	updated, err := s.repo.Update(ctx, todo)
	if err != nil {
		return types.Todo{}, err
	}

	s.events.Publish(ctx, types.EventTodoUpdated, owner.ID, updated.ID)
	return updated, nil
}

func (s *TodoService) Delete(ctx context.Context, owner types.User, id int) error {
	if err := s.repo.DeleteOwned(ctx, owner.ID, id); err != nil {
		return err
	}

	s.events.Publish(ctx, types.EventTodoDeleted, owner.ID, id)
	return nil
}
