package mq

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// LocalBackend delivers messages between goroutines of one process. It is
// selected by EVENTS_BACKEND=local and backs the service tests. Each
// subscriber of a channel receives messages published after it subscribed.
// A subscriber whose buffer is full misses messages, and failed handlers are
// not retried.
type LocalBackend struct {
	mu     sync.Mutex
	subs   map[string][]chan Message
	closed bool
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{subs: make(map[string][]chan Message)}
}

func (l *LocalBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return "", errors.New("local backend closed")
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, sub := range l.subs[channel] {
		select {
		case sub <- msg:
		default:
		}
	}
	return msg.ID, nil
}

func (l *LocalBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch := make(chan Message, 16)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("local backend closed")
	}
	l.subs[channel] = append(l.subs[channel], ch)
	l.mu.Unlock()

	defer l.unsubscribe(channel, ch)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			_ = handler(ctx, msg)
		}
	}
}

// Subscribers returns the number of active subscribers on channel.
func (l *LocalBackend) Subscribers(channel string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs[channel])
}

func (l *LocalBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	for _, subs := range l.subs {
		for _, ch := range subs {
			close(ch)
		}
	}
	l.subs = make(map[string][]chan Message)
	return nil
}

func (l *LocalBackend) unsubscribe(channel string, ch chan Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.subs[channel]
	for i, sub := range subs {
		if sub == ch {
			l.subs[channel] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
