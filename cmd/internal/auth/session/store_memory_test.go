package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func TestMemoryStore_Suite(t *testing.T) {
	runStoreSuite(t, storeHarness{
		newStore:    func(*testing.T) rowGetter { return NewMemoryStore() },
		newEmployee: func(*testing.T) string { return ulid.Make().String() },
	})
}

func TestMemoryStore_RejectsDuplicateTokenHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	in := CreateInput{EmployeeID: "emp-1", TokenHash: newTokenHash(), Now: t0, TTL: time.Hour}
	if _, err := s.Create(ctx, in); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, in); !errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("expected ErrDuplicateToken, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	row, err := s.Create(ctx, CreateInput{EmployeeID: "emp-1", TokenHash: newTokenHash(), Now: t0, TTL: time.Hour})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	row.IsActive = false
	row.ExpiresAt = t0

	got, err := s.FindActiveByToken(ctx, row.TokenHash)
	if err != nil {
		t.Fatalf("caller mutation leaked into store: %v", err)
	}
	if !got.ExpiresAt.Equal(t0.Add(time.Hour)) {
		t.Fatalf("caller mutation leaked into store: %+v", got)
	}
}

func TestMemoryStore_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemoryStore()
	if _, err := s.Create(ctx, CreateInput{EmployeeID: "emp-1", TokenHash: newTokenHash(), Now: t0, TTL: time.Hour}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if n, err := s.DeactivateAllExpired(context.Background(), t0); err != nil || n != 0 {
		t.Fatalf("cancelled create must not leave a row: n=%d err=%v", n, err)
	}
}
