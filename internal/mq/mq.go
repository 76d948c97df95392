// Package mq hides the event broker behind a small publish/subscribe API.
package mq

import (
	"context"
	"fmt"

	"github.com/todo-api/apiserver/config"
)

// Message is a payload as seen by subscribers, independent of the broker.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error asks the broker to
// redeliver it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by each supported broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects to the broker named by cfg.Backend. It returns a nil *MQ
// and no error when no backend is configured.
func Open(ctx context.Context, cfg config.EventsConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case config.EventsRabbitMQ:
		backend, err = NewRabbitMQClient(cfg.RabbitMQ)
	case config.EventsPubSub:
		backend, err = NewPubSubClient(ctx, cfg.PubSub)
	case config.EventsLocal:
		backend = NewLocalBackend()
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	return New(backend), nil
}

func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe blocks, delivering messages from channel until ctx is done or
// the backend fails.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	if m == nil {
		return nil
	}
	return m.backend.Close()
}
