package types

import "time"

// TodoState is the lifecycle state of a todo.
type TodoState string

const (
	TodoStateDraft TodoState = "draft"
	TodoStateTodo  TodoState = "todo"
	TodoStateDoing TodoState = "doing"
	TodoStateDone  TodoState = "done"
	TodoStateTrash TodoState = "trash"
)

// TodoStates lists every valid state in declaration order.
var TodoStates = []TodoState{
	TodoStateDraft,
	TodoStateTodo,
	TodoStateDoing,
	TodoStateDone,
	TodoStateTrash,
}

// Valid reports whether s is one of the known states.
func (s TodoState) Valid() bool {
	for _, state := range TodoStates {
		if s == state {
			return true
		}
	}
	return false
}

// Todo is a task owned by a single user.
type Todo struct {
	// ID is the unique identifier of the todo.
	ID int `json:"id" db:"id"`

	// Title is a short summary of the task.
	Title string `json:"title" db:"title"`

	// Description holds the task details.
	Description string `json:"description" db:"description"`

	// State is the current lifecycle state.
	State TodoState `json:"state" db:"state"`

	// UserID references the owning user. Todos are removed with their owner.
	UserID int `json:"-" db:"user_id"`

	// CreatedAt is the timestamp when the todo was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the todo.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TodoFilter narrows a todo listing. Empty fields do not filter.
type TodoFilter struct {
	UserID      int
	Title       string
	Description string
	State       TodoState
	Offset      int
	Limit       int
}

// TodoPatch carries the fields of a partial todo update.
// Nil fields are left unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	State       *TodoState
}
