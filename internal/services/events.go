package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/todo-api/apiserver/internal/mq"
	"github.com/todo-api/apiserver/types"
)

// Events publishes lifecycle events. A nil *Events drops everything, which
// is how publishing is disabled.
type Events struct {
	queue *mq.MQ
	topic string
	log   *slog.Logger
	now   func() time.Time
}

func NewEvents(queue *mq.MQ, topic string, log *slog.Logger) *Events {
	if queue == nil {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	return &Events{queue: queue, topic: topic, log: log, now: time.Now}
}

// Publish sends an event. Failures are logged and never returned: a broker
// outage must not fail the request that caused the event.
func (e *Events) Publish(ctx context.Context, eventType types.EventType, userID, todoID int) {
	if e == nil {
		return
	}

	event := types.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     userID,
		TodoID:     todoID,
		OccurredAt: e.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		e.log.Error("marshal event", "type", eventType, "error", err)
		return
	}

	attrs := map[string]string{"type": string(eventType)}
	if _, err := e.queue.Publish(ctx, e.topic, data, attrs); err != nil {
		e.log.Warn("publish event failed", "type", eventType, "topic", e.topic, "error", err)
	}
}

// Watch delivers decoded events from the topic to handle until ctx ends.
func Watch(ctx context.Context, queue *mq.MQ, topic string, handle func(context.Context, types.Event) error) error {
	return queue.Subscribe(ctx, topic, func(ctx context.Context, msg mq.Message) error {
		var event types.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			// A payload that never decodes would be redelivered forever.
			return nil
		}
		return handle(ctx, event)
	})
}
