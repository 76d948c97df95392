package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/todo-api/apiserver/internal/auth"
	"github.com/todo-api/apiserver/internal/mq"
	"github.com/todo-api/apiserver/internal/store"
	"github.com/todo-api/apiserver/internal/store/memory"
	"github.com/todo-api/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users *UserService
	todos *TodoService
	auth  *AuthService
	token *auth.Tokens
}

func newFixture(t *testing.T, policyName string, events *Events) fixture {
	t.Helper()

	db := memory.New()
	hasher := auth.NewHasher(bcrypt.MinCost)
	tokens, err := auth.NewTokens("test-secret", "HS256", 30*time.Minute)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	policy, err := NewPasswordPolicy(policyName)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	return fixture{
		users: NewUserService(db.Users(), hasher, policy, events),
		todos: NewTodoService(db.Todos(), events),
		auth:  NewAuthService(db.Users(), hasher, tokens),
		token: tokens,
	}
}

func strPtr(s string) *string { return &s }

func TestPasswordPolicy(t *testing.T) {
	basic, _ := NewPasswordPolicy(PolicyBasic)
	strict, _ := NewPasswordPolicy(PolicyStrict)

	cases := []struct {
		password string
		basic    bool
		strict   bool
	}{
		{"alice123", true, false},
		{"123bob", true, false},
		{"abc", false, false},
		{"Alice@123", true, true},
		{"Sofia123@", true, true},
		{"ALICE@123", true, false},
		{"Alice1234", true, false},
		{"Al@1", false, false},
	}
	for _, tc := range cases {
		if got := basic.Check(tc.password) == nil; got != tc.basic {
			t.Errorf("basic(%q) = %v, want %v", tc.password, got, tc.basic)
		}
		if got := strict.Check(tc.password) == nil; got != tc.strict {
			t.Errorf("strict(%q) = %v, want %v", tc.password, got, tc.strict)
		}
	}

	if _, err := NewPasswordPolicy("paranoid"); err == nil {
		t.Fatalf("expected unknown policy to be rejected")
	}
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyStrict, nil)

	if _, err := f.users.Register(ctx, UserInput{Username: "bob", Email: "bob@example.com", Password: "123bob"}); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if _, err := f.users.Register(ctx, UserInput{
		Username:        "cj",
		Email:           "cj@email.com",
		Password:        "CJ@12345cj",
		ConfirmPassword: strPtr("CJ@12345"),
	}); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}

	user, err := f.users.Register(ctx, UserInput{
		Username:        "alice",
		Email:           "alice@example.com",
		Password:        "Alice@123",
		ConfirmPassword: strPtr("Alice@123"),
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID != 1 || user.PasswordHash == "Alice@123" || user.PasswordHash == "" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestRegisterConflictOnEitherField(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	if _, err := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for name, input := range map[string]UserInput{
		"username": {Username: "alice", Email: "new@example.com", Password: "alice123"},
		"email":    {Username: "newbie", Email: "alice@example.com", Password: "alice123"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := f.users.Register(ctx, input); !errors.Is(err, store.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})
	}
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	bob, _ := f.users.Register(ctx, UserInput{Username: "bob", Email: "bob@example.com", Password: "bob12345"})

	if _, err := f.users.Update(ctx, alice, bob.ID, UserInput{Username: "x", Email: "x@example.com", Password: "secret1"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on update, got %v", err)
	}
	if err := f.users.Delete(ctx, alice, bob.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden on delete, got %v", err)
	}

	if _, err := f.users.Update(ctx, alice, alice.ID, UserInput{Username: "bob", Email: "alice@example.com", Password: "secret1"}); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict when taking bob's username, got %v", err)
	}

	updated, err := f.users.Update(ctx, alice, alice.ID, UserInput{Username: "sofia", Email: "sofia@example.com", Password: "sofia123"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "sofia" {
		t.Fatalf("expected username to change, got %q", updated.Username)
	}
	if _, err := f.auth.Login(ctx, "sofia", "sofia123"); err != nil {
		t.Fatalf("expected new password to log in: %v", err)
	}
}

func TestDeleteUserRemovesTodos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	for range 3 {
		if _, err := f.todos.Create(ctx, alice, types.Todo{Title: "task"}); err != nil {
			t.Fatalf("create todo: %v", err)
		}
	}

	if err := f.users.Delete(ctx, alice, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	todos, err := f.todos.List(ctx, alice, types.TodoFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != 0 {
		t.Fatalf("expected todos to be deleted with their owner, got %d", len(todos))
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})

	if _, err := f.auth.Login(ctx, "wrong_username", "alice123"); !errors.Is(err, ErrIncorrectLogin) {
		t.Fatalf("expected ErrIncorrectLogin for unknown user, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "alice", "wrong_password"); !errors.Is(err, ErrIncorrectLogin) {
		t.Fatalf("expected ErrIncorrectLogin for bad password, got %v", err)
	}

	token, err := f.auth.Login(ctx, "alice", "alice123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	user, err := f.auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != alice.ID {
		t.Fatalf("expected alice, got %+v", user)
	}

	refreshed, err := f.auth.Refresh(user)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := f.auth.Authenticate(ctx, refreshed); err != nil {
		t.Fatalf("authenticate refreshed: %v", err)
	}
}

func TestAuthenticateFailuresAreGeneric(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	valid, _ := f.auth.Refresh(alice)

	unknown, err := f.token.IssueFor("invalid-user")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	issuedAt := time.Date(2025, 5, 8, 12, 0, 0, 0, time.UTC)
	f.token.SetClock(func() time.Time { return issuedAt })
	expiring, err := f.token.IssueFor("alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	f.token.SetClock(func() time.Time { return issuedAt.Add(30*time.Minute + time.Second) })

	for name, token := range map[string]string{
		"malformed":    "token-invalido",
		"unknown user": unknown,
		"expired":      expiring,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := f.auth.Authenticate(ctx, token); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	f.token.SetClock(time.Now)
	if _, err := f.auth.Authenticate(ctx, valid); err != nil {
		t.Fatalf("expected valid token to authenticate: %v", err)
	}
}

func TestTodoLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	bob, _ := f.users.Register(ctx, UserInput{Username: "bob", Email: "bob@example.com", Password: "bob12345"})

	todo, err := f.todos.Create(ctx, alice, types.Todo{Title: "test", Description: "test description"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if todo.State != types.TodoStateTodo {
		t.Fatalf("expected default state todo, got %q", todo.State)
	}
	if _, err := f.todos.Create(ctx, alice, types.Todo{Title: "bad", State: "archived"}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	done := types.TodoStateDone
	if _, err := f.todos.Update(ctx, bob, todo.ID, types.TodoPatch{State: &done}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign todo, got %v", err)
	}

	updated, err := f.todos.Update(ctx, alice, todo.ID, types.TodoPatch{Title: strPtr("renamed"), State: &done})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "renamed" || updated.State != done || updated.Description != "test description" {
		t.Fatalf("unexpected patch result %+v", updated)
	}

	invalid := types.TodoState("archived")
	if _, err := f.todos.Update(ctx, alice, todo.ID, types.TodoPatch{State: &invalid}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	if err := f.todos.Delete(ctx, bob, todo.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := f.todos.Delete(ctx, alice, todo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestTodoListCapsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	alice, _ := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	for range MaxPageLimit + 5 {
		if _, err := f.todos.Create(ctx, alice, types.Todo{Title: "task"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	todos, err := f.todos.List(ctx, alice, types.TodoFilter{Limit: 1000})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(todos) != MaxPageLimit {
		t.Fatalf("expected %d todos, got %d", MaxPageLimit, len(todos))
	}
}

func TestUserListCapsLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, PolicyBasic, nil)

	for i := range MaxPageLimit + 2 {
		name := fmt.Sprintf("user%d", i)
		if _, err := f.users.Register(ctx, UserInput{Username: name, Email: name + "@example.com", Password: "secret1"}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	users, err := f.users.List(ctx, -1, math.MaxInt)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != MaxPageLimit || users[0].Username != "user0" {
		t.Fatalf("expected first %d users, got %d", MaxPageLimit, len(users))
	}
}

func TestEventsArePublished(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	backend := mq.NewLocalBackend()
	queue := mq.New(backend)
	defer queue.Close()

	received := make(chan types.Event, 8)
	go func() {
		_ = Watch(ctx, queue, "todo-events", func(_ context.Context, event types.Event) error {
			received <- event
			return nil
		})
	}()
	for backend.Subscribers("todo-events") == 0 {
		select {
		case <-ctx.Done():
			t.Fatalf("subscriber never registered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	f := newFixture(t, PolicyBasic, NewEvents(queue, "todo-events", nil))
	alice, err := f.users.Register(ctx, UserInput{Username: "alice", Email: "alice@example.com", Password: "alice123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	todo, err := f.todos.Create(ctx, alice, types.Todo{Title: "task"})
	if err != nil {
		t.Fatalf("create todo: %v", err)
	}

	want := []types.Event{
		{Type: types.EventUserCreated, UserID: alice.ID},
		{Type: types.EventTodoCreated, UserID: alice.ID, TodoID: todo.ID},
	}
	for _, w := range want {
		select {
		case got := <-received:
			if got.Type != w.Type || got.UserID != w.UserID || got.TodoID != w.TodoID || got.ID == "" {
				t.Fatalf("unexpected event %+v, want %+v", got, w)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for %s", w.Type)
		}
	}
}

func TestNilEventsIsNoop(t *testing.T) {
	var events *Events
	events.Publish(context.Background(), types.EventUserCreated, 1, 0)

	if NewEvents(nil, "topic", nil) != nil {
		t.Fatalf("expected nil Events without a queue")
	}
}

func TestWatchSkipsUndecodablePayloads(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	backend := mq.NewLocalBackend()
	queue := mq.New(backend)
	defer queue.Close()

	received := make(chan types.Event, 1)
	go func() {
		_ = Watch(ctx, queue, "todo-events", func(_ context.Context, event types.Event) error {
			received <- event
			return nil
		})
	}()
	for backend.Subscribers("todo-events") == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := queue.Publish(ctx, "todo-events", []byte("not json"), nil); err != nil {
		t.Fatalf("publish: %v", err)
	}
	payload, _ := json.Marshal(types.Event{ID: "1", Type: types.EventTodoDeleted, UserID: 3, TodoID: 9})
	if _, err := queue.Publish(ctx, "todo-events", payload, nil); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-received:
		if got.Type != types.EventTodoDeleted || got.TodoID != 9 {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-ctx.Done():
		t.Fatalf("timed out")
	}
}
