package types

import "time"

// EventType names a lifecycle change published to the events channel.
type EventType string

const (
	EventUserCreated EventType = "user.created"
	EventUserUpdated EventType = "user.updated"
	EventUserDeleted EventType = "user.deleted"
	EventTodoCreated EventType = "todo.created"
	EventTodoUpdated EventType = "todo.updated"
	EventTodoDeleted EventType = "todo.deleted"
)

// Event is the JSON payload published for each lifecycle change.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	UserID     int       `json:"user_id"`
	TodoID     int       `json:"todo_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
