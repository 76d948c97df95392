package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("SERVER_PORT", "")
	cfg := LoadConfig()

	// An empty SERVER_PORT does not parse and falls back to the default.
	if cfg.ServerPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.Auth.TokenExpireMinute != 30 {
		t.Fatalf("expected 30 minute token ttl, got %d", cfg.Auth.TokenExpireMinute)
	}
	if cfg.Auth.JWTAlgorithm != "HS256" {
		t.Fatalf("expected HS256, got %q", cfg.Auth.JWTAlgorithm)
	}
	if cfg.Events.Topic != "todo-events" {
		t.Fatalf("unexpected events topic %q", cfg.Events.Topic)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("DB_USE_SSL", "true")
	t.Setenv("JWT_SECRET", "  s3cret  ")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("EVENTS_BACKEND", "RabbitMQ")
	t.Setenv("RABBITMQ_QUEUE_DURABLE", "no")

	cfg := LoadConfig()

	if cfg.ServerPort != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.ServerPort)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Fatalf("expected memory backend, got %q", cfg.StoreBackend)
	}
	if !cfg.Database.UseSSL {
		t.Fatalf("expected DB_USE_SSL to be parsed")
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("expected trimmed secret, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenExpireMinute != 5 {
		t.Fatalf("expected 5 minute ttl, got %d", cfg.Auth.TokenExpireMinute)
	}
	if cfg.Events.Backend != EventsRabbitMQ {
		t.Fatalf("expected rabbitmq backend, got %q", cfg.Events.Backend)
	}
	if cfg.Events.RabbitMQ.QueueDurable {
		t.Fatalf("expected durable queue to be disabled")
	}
}

func TestGetEnvBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_FLAG", "maybe")
	if !getEnvBool("SOME_FLAG", true) {
		t.Fatalf("expected fallback to default")
	}
}
