package redis

import (
	"context"
	"testing"
)

func TestConnect_InvalidURL(t *testing.T) {
	if _, err := Connect(context.Background(), "http://not-redis"); err == nil {
		t.Fatalf("expected error for a non-redis url")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	rdb, err := Connect(context.Background(), "redis://127.0.0.1:1/0?dial_timeout=100ms&max_retries=-1")
	if err == nil {
		t.Fatalf("expected ping failure")
	}
	if rdb == nil {
		t.Fatalf("expected client to be returned for cleanup")
	}
	_ = rdb.Close()
}
