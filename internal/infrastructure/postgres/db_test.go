package postgres

import (
	"context"
	"testing"
	"time"
)

func TestNewPoolWithConfigInvalidURL(t *testing.T) {
	ctx := context.Background()

	if _, err := NewPoolWithConfig(ctx, PoolConfig{DatabaseURL: "not-a-url"}); err == nil {
		t.Fatalf("expected error when parsing invalid URL")
	}
}

func TestNewPoolWithConfigPingFailure(t *testing.T) {
	ctx := context.Background()
	cfg := PoolConfig{
		DatabaseURL:    "postgres://ledger@127.0.0.1:1/ledger?sslmode=disable",
		MaxConns:       1,
		ConnectTimeout: 200 * time.Millisecond,
	}

	if _, err := NewPoolWithConfig(ctx, cfg); err == nil {
		t.Fatalf("expected error when pool cannot connect")
	}
}
