package infra

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()
}

func TestNewRedisClientAppliesTimeouts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0?read_timeout=5s")
	if err != nil {
		t.Fatalf("new redis client: %v", err)
	}
	defer client.Close()

	opt := client.Options()
	if opt.ReadTimeout != 5*time.Second {
		t.Fatalf("expected url read timeout to win, got %s", opt.ReadTimeout)
	}
	if opt.DialTimeout != 2*time.Second || opt.WriteTimeout != time.Second {
		t.Fatalf("unexpected defaults dial=%s write=%s", opt.DialTimeout, opt.WriteTimeout)
	}
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(context.Background(), "redis://"+addr+"/0"); err == nil {
		t.Fatal("expected ping failure against a stopped server")
	}
}

func TestNewRedisClientRequiresURL(t *testing.T) {
	if _, err := NewRedisClient(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestNewPostgresPoolRequiresURL(t *testing.T) {
	if _, err := NewPostgresPool(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}
