package db

import (
	"net/url"
	"testing"

	"github.com/todo-api/apiserver/config"
)

func TestPostgresURL(t *testing.T) {
	raw := PostgresURL(config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "todo",
		Password: "p@ss word",
		DBName:   "todos",
		UseSSL:   true,
	})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	if u.Scheme != "postgres" || u.Host != "db.internal:5433" || u.Path != "/todos" {
		t.Fatalf("unexpected url %q", raw)
	}
	if pw, _ := u.User.Password(); pw != "p@ss word" {
		t.Fatalf("password did not round-trip: %q", pw)
	}
	if got := u.Query().Get("sslmode"); got != "require" {
		t.Fatalf("expected sslmode=require, got %q", got)
	}
}
