package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestConnect_Validation(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}

	if _, err := Connect(context.Background(), "invalid-dsn"); err == nil {
		t.Fatalf("expected error for invalid dsn")
	}
}

type recordingExecer struct {
	statements []string
	failOn     int
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	if r.failOn > 0 && len(r.statements) == r.failOn {
		return pgconn.CommandTag{}, errors.New("permission denied")
	}
	return pgconn.CommandTag{}, nil
}

func TestEnsureSchema(t *testing.T) {
	db := &recordingExecer{}
	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(db.statements) != len(schema) {
		t.Fatalf("expected %d statements, got %d", len(schema), len(db.statements))
	}
	if !strings.Contains(db.statements[1], "venues") {
		t.Fatalf("expected venues table second, got %s", db.statements[1])
	}

	failing := &recordingExecer{failOn: 2}
	if err := EnsureSchema(context.Background(), failing); err == nil {
		t.Fatalf("expected error")
	}
	if len(failing.statements) != 2 {
		t.Fatalf("expected to stop after failure, got %d statements", len(failing.statements))
	}
}

func TestConnectRedis_Validation(t *testing.T) {
	if _, err := ConnectRedis(context.Background(), "", ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
	if _, err := ConnectRedis(context.Background(), "http://not-redis", ""); err == nil {
		t.Fatalf("expected error for invalid scheme")
	}
}
