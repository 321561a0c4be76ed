package memory

import (
	"context"
	"errors"
	"testing"
)

func TestStoreWriteAndRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	rows := [][]any{{"Date", "Amount"}, {"2024-01-01", "10.00"}}
	if err := s.WriteSheet(ctx, "user-1", rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows[1][1] = "changed"

	got, err := s.ReadSheet(ctx, "user-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[1][1] != "10.00" {
		t.Fatalf("stored rows alias the caller's slice: %v", got)
	}
	if _, err := s.ReadSheet(ctx, "user-2"); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestStoreFailWith(t *testing.T) {
	s := New()
	boom := errors.New("quota exceeded")
	s.FailWith(boom)
	if err := s.WriteSheet(context.Background(), "user-1", nil); !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}
	s.FailWith(nil)
	if err := s.WriteSheet(context.Background(), "user-1", nil); err != nil {
		t.Fatalf("write after reset: %v", err)
	}
	if s.Writes() != 1 || len(s.Titles()) != 1 {
		t.Fatalf("unexpected state writes=%d titles=%v", s.Writes(), s.Titles())
	}
}
