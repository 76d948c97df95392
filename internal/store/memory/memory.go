// Package memory keeps users and todos in process memory. It implements the
// same repository contracts as the SQL store and is used for local runs and
// tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/types"
)

// Store holds all records behind a single lock so that the user delete
// cascade and the uniqueness checks are atomic.
type Store struct {
	mu         sync.RWMutex
	users      []types.User
	todos      []types.Todo
	nextUserID int
	nextTodoID int
	now        func() time.Time
}

func New() *Store {
	return &Store{
		nextUserID: 1,
		nextTodoID: 1,
		now:        time.Now,
	}
}

// Users returns a view of the store satisfying the user repository contract.
func (s *Store) Users() *UserRepository {
	return &UserRepository{s: s}
}

// Todos returns a view of the store satisfying the todo repository contract.
func (s *Store) Todos() *TodoRepository {
	return &TodoRepository{s: s}
}

type UserRepository struct {
	s *Store
}

func (r *UserRepository) List(_ context.Context, offset, limit int) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return page(r.s.users, offset, limit), nil
}

func (r *UserRepository) GetByID(_ context.Context, id int) (types.User, error) {
	return r.find(func(u types.User) bool { return u.ID == id })
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username })
}

func (r *UserRepository) FindByUsernameOrEmail(_ context.Context, username, email string) (types.User, error) {
	return r.find(func(u types.User) bool { return u.Username == username || u.Email == email })
}

func (r *UserRepository) Create(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.collides(user, 0) {
		return types.User{}, store.ErrConflict
	}

	now := r.s.now()
	user.ID = r.s.nextUserID
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.nextUserID++
	r.s.users = append(r.s.users, user)
	return user, nil
}

func (r *UserRepository) Update(_ context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := slices.IndexFunc(r.s.users, func(u types.User) bool { return u.ID == user.ID })
	if idx < 0 {
		return types.User{}, store.ErrNotFound
	}
	if r.s.collides(user, user.ID) {
		return types.User{}, store.ErrConflict
	}

	user.CreatedAt = r.s.users[idx].CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[idx] = user
	return user, nil
}

// Delete removes the user and every todo it owns.
func (r *UserRepository) Delete(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := slices.IndexFunc(r.s.users, func(u types.User) bool { return u.ID == id })
	if idx < 0 {
		return store.ErrNotFound
	}
	r.s.users = slices.Delete(r.s.users, idx, idx+1)
	r.s.todos = slices.DeleteFunc(r.s.todos, func(t types.Todo) bool { return t.UserID == id })
	return nil
}

func (r *UserRepository) find(match func(types.User) bool) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx := slices.IndexFunc(r.s.users, match)
	if idx < 0 {
		return types.User{}, store.ErrNotFound
	}
	return r.s.users[idx], nil
}

// collides reports whether another user (other than exceptID) already holds
// the username or email. Callers must hold the write lock.
func (s *Store) collides(user types.User, exceptID int) bool {
	return slices.ContainsFunc(s.users, func(u types.User) bool {
		return u.ID != exceptID && (u.Username == user.Username || u.Email == user.Email)
	})
}

type TodoRepository struct {
	s *Store
}

func (r *TodoRepository) List(_ context.Context, filter types.TodoFilter) ([]types.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]types.Todo, 0)
	for _, todo := range r.s.todos {
		if todo.UserID != filter.UserID {
			continue
		}
		if filter.Title != "" && !strings.Contains(todo.Title, filter.Title) {
			continue
		}
		if filter.Description != "" && !strings.Contains(todo.Description, filter.Description) {
			continue
		}
		if filter.State != "" && todo.State != filter.State {
			continue
		}
		matched = append(matched, todo)
	}
	return page(matched, filter.Offset, filter.Limit), nil
}

func (r *TodoRepository) GetOwned(_ context.Context, userID, id int) (types.Todo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	idx := r.s.todoIndex(userID, id)
	if idx < 0 {
		return types.Todo{}, store.ErrNotFound
	}
	return r.s.todos[idx], nil
}

func (r *TodoRepository) Create(_ context.Context, todo types.Todo) (types.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Mirrors the foreign key on todos.user_id.
	if !slices.ContainsFunc(r.s.users, func(u types.User) bool { return u.ID == todo.UserID }) {
		return types.Todo{}, store.ErrNotFound
	}

	now := r.s.now()
	todo.ID = r.s.nextTodoID
	todo.CreatedAt = now
	todo.UpdatedAt = now
	r.s.nextTodoID++
	r.s.todos = append(r.s.todos, todo)
	return todo, nil
}

func (r *TodoRepository) Update(_ context.Context, todo types.Todo) (types.Todo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := r.s.todoIndex(todo.UserID, todo.ID)
	if idx < 0 {
		return types.Todo{}, store.ErrNotFound
	}
	todo.CreatedAt = r.s.todos[idx].CreatedAt
	todo.UpdatedAt = r.s.now()
	r.s.todos[idx] = todo
	return todo, nil
}

func (r *TodoRepository) DeleteOwned(_ context.Context, userID, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	idx := r.s.todoIndex(userID, id)
	if idx < 0 {
		return store.ErrNotFound
	}
	r.s.todos = slices.Delete(r.s.todos, idx, idx+1)
	return nil
}

func (s *Store) todoIndex(userID, id int) int {
	return slices.IndexFunc(s.todos, func(t types.Todo) bool {
		return t.ID == id && t.UserID == userID
	})
}

// page copies the window [offset, offset+limit) out of items.
func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + min(limit, len(items)-offset)
	return slices.Clone(items[offset:end])
}
