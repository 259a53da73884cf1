package option

import (
	"context"
	"testing"

	"github.com/edgeflowers/newsletter/internal/database/databasetest"
)

func TestStore_IntRoundTrip(t *testing.T) {
	s := NewStore(databasetest.Open(t))
	ctx := context.Background()

	n, err := s.GetInt(ctx, "digest_index", 0)
	if err != nil || n != 0 {
		t.Fatalf("expected default 0, got %d (%v)", n, err)
	}
	if err := s.SetInt(ctx, "digest_index", 4); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := s.SetInt(ctx, "digest_index", 5); err != nil {
		t.Fatalf("SetInt overwrite: %v", err)
	}
	n, err = s.GetInt(ctx, "digest_index", 0)
	if err != nil || n != 5 {
		t.Fatalf("expected 5, got %d (%v)", n, err)
	}
}

func TestStore_GetIntRejectsGarbage(t *testing.T) {
	s := NewStore(databasetest.Open(t))
	ctx := context.Background()
	if err := s.Set(ctx, "digest_index", "seven"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if n, err := s.GetInt(ctx, "digest_index", 3); err == nil || n != 3 {
		t.Fatalf("expected error and default, got %d (%v)", n, err)
	}
}
