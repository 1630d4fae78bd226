package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedEmployee(t *testing.T, s *MemoryStore, email string, status Status) Employee {
	t.Helper()
	e, err := s.CreateEmployee(context.Background(), CreateEmployeeInput{
		Code:      "emp-" + email[:3],
		Email:     email,
		FirstName: "Anong",
		LastName:  "Srisuk",
		Status:    status,
		Password:  "correct-password",
		Now:       time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateEmployee: %v", err)
	}
	return e
}

func TestAuthenticator(t *testing.T) {
	ctx := context.Background()
	h := testHasher()
	store := NewMemoryStore(h)
	auth := NewAuthenticator(store, h)

	active := seedEmployee(t, store, "anong@wise.test", StatusActive)
	seedEmployee(t, store, "gone@wise.test", StatusResigned)

	t.Run("valid credentials", func(t *testing.T) {
		e, err := auth.Authenticate(ctx, "  ANONG@wise.test ", "correct-password")
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if e.ID != active.ID || e.Code != "EMP-ANO" {
			t.Fatalf("unexpected employee: %+v", e)
		}
	})

	cases := []struct {
		name     string
		email    string
		password string
		kind     error
	}{
		{"wrong password", "anong@wise.test", "nope-password", ErrInvalidCredentials},
		{"unknown email", "nobody@wise.test", "correct-password", ErrInvalidCredentials},
		{"blank email", " ", "correct-password", ErrInvalidCredentials},
		{"resigned employee", "gone@wise.test", "correct-password", ErrNotActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.Authenticate(ctx, tc.email, tc.password)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
}

func TestMemoryStore_CreateAndStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(testHasher())

	e := seedEmployee(t, store, "kit@wise.test", "")
	if e.Status != StatusActive {
		t.Fatalf("expected default status active, got %q", e.Status)
	}

	_, err := store.CreateEmployee(ctx, CreateEmployeeInput{Code: "EMP-2", Email: "KIT@wise.test", Password: "correct-password"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict on duplicate email, got %v", err)
	}

	if err := store.SetStatus(ctx, e.ID, StatusSuspended, time.Now()); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	got, err := store.GetEmployee(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEmployee: %v", err)
	}
	if got.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %q", got.Status)
	}

	if err := store.SetStatus(ctx, e.ID, "fired", time.Now()); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input for unknown status, got %v", err)
	}
	if _, err := store.GetEmployee(ctx, "missing"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
