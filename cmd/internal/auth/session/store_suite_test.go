package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/security/token"
)

// rowGetter is implemented by every Store in this package.
type rowGetter interface {
	Store
	GetByID(ctx context.Context, sessionID string) (Session, error)
}

type storeHarness struct {
	newStore    func(t *testing.T) rowGetter
	newEmployee func(t *testing.T) string
}

func newTokenHash() string { return token.HashSHA256Hex(ulid.Make().String()) }

func mustCreate(ctx context.Context, t *testing.T, s Store, employeeID string, now time.Time, ttl time.Duration) Session {
	t.Helper()
	row, err := s.Create(ctx, CreateInput{EmployeeID: employeeID, TokenHash: newTokenHash(), Now: now, TTL: ttl})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return row
}

func mustGet(ctx context.Context, t *testing.T, s rowGetter, id string) Session {
	t.Helper()
	row, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID(%s): %v", id, err)
	}
	return row
}

func runStoreSuite(t *testing.T, h storeHarness) {
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		s := h.newStore(t)
		emp := h.newEmployee(t)

		row := mustCreate(ctx, t, s, emp, t0, time.Hour)
		if row.ID == "" || !row.IsActive {
			t.Fatalf("unexpected row: %+v", row)
		}
		if !row.ExpiresAt.Equal(t0.Add(time.Hour)) || !row.LastActivity.Equal(t0) {
			t.Fatalf("unexpected times: %+v", row)
		}

		got, err := s.FindActiveByToken(ctx, row.TokenHash)
		if err != nil {
			t.Fatalf("FindActiveByToken: %v", err)
		}
		if got.ID != row.ID || got.EmployeeID != emp || !got.CreatedAt.Equal(t0) {
			t.Fatalf("round trip mismatch: %+v", got)
		}

		if _, err := s.FindActiveByToken(ctx, newTokenHash()); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound for unknown hash, got %v", err)
		}
	})

	t.Run("multiple sessions per employee", func(t *testing.T) {
		s := h.newStore(t)
		emp := h.newEmployee(t)

		a := mustCreate(ctx, t, s, emp, t0, time.Hour)
		b := mustCreate(ctx, t, s, emp, t0.Add(time.Minute), 30*24*time.Hour)

		for _, r := range []Session{a, b} {
			if _, err := s.FindActiveByToken(ctx, r.TokenHash); err != nil {
				t.Fatalf("session %s should stay active: %v", r.ID, err)
			}
		}
	})

	t.Run("extend is monotonic", func(t *testing.T) {
		s := h.newStore(t)
		row := mustCreate(ctx, t, s, h.newEmployee(t), t0, time.Hour)

		later := t0.Add(2 * time.Hour)
		exp, err := s.Extend(ctx, t0.Add(50*time.Minute), row.ID, later)
		if err != nil {
			t.Fatalf("Extend: %v", err)
		}
		if !exp.Equal(later) {
			t.Fatalf("expected %v, got %v", later, exp)
		}

		exp, err = s.Extend(ctx, t0.Add(51*time.Minute), row.ID, t0.Add(90*time.Minute))
		if err != nil {
			t.Fatalf("Extend (earlier): %v", err)
		}
		if !exp.Equal(later) {
			t.Fatalf("extend must not shorten: got %v", exp)
		}

		got := mustGet(ctx, t, s, row.ID)
		if !got.ExpiresAt.Equal(later) || !got.LastActivity.Equal(t0.Add(51*time.Minute)) {
			t.Fatalf("unexpected row after extend: %+v", got)
		}
	})

	t.Run("touch updates last activity only", func(t *testing.T) {
		s := h.newStore(t)
		row := mustCreate(ctx, t, s, h.newEmployee(t), t0, time.Hour)

		if err := s.TouchActivity(ctx, row.ID, t0.Add(6*time.Minute)); err != nil {
			t.Fatalf("TouchActivity: %v", err)
		}
		got := mustGet(ctx, t, s, row.ID)
		if !got.LastActivity.Equal(t0.Add(6*time.Minute)) || !got.ExpiresAt.Equal(row.ExpiresAt) {
			t.Fatalf("unexpected row after touch: %+v", got)
		}
	})

	t.Run("writes never resurrect an inactive row", func(t *testing.T) {
		s := h.newStore(t)
		row := mustCreate(ctx, t, s, h.newEmployee(t), t0, time.Hour)

		if err := s.Deactivate(ctx, t0.Add(time.Minute), row.ID, ReasonLogout); err != nil {
			t.Fatalf("Deactivate: %v", err)
		}
		if _, err := s.Extend(ctx, t0.Add(2*time.Minute), row.ID, t0.Add(10*time.Hour)); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("Extend on inactive: expected ErrSessionNotFound, got %v", err)
		}
		if err := s.TouchActivity(ctx, row.ID, t0.Add(3*time.Minute)); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("TouchActivity on inactive: expected ErrSessionNotFound, got %v", err)
		}

		got := mustGet(ctx, t, s, row.ID)
		if got.IsActive || !got.ExpiresAt.Equal(row.ExpiresAt) {
			t.Fatalf("inactive row changed: %+v", got)
		}
		if _, err := s.FindActiveByToken(ctx, row.TokenHash); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("inactive row must not be found, got %v", err)
		}
	})

	t.Run("deactivate is idempotent", func(t *testing.T) {
		s := h.newStore(t)
		row := mustCreate(ctx, t, s, h.newEmployee(t), t0, time.Hour)

		if err := s.Deactivate(ctx, t0.Add(time.Minute), row.ID, ReasonLogout); err != nil {
			t.Fatalf("Deactivate #1: %v", err)
		}
		if err := s.Deactivate(ctx, t0.Add(2*time.Minute), row.ID, ReasonExpired); err != nil {
			t.Fatalf("Deactivate #2: %v", err)
		}
		if err := s.Deactivate(ctx, t0, "01JNOTAREALSESSIONID000000", ReasonLogout); err != nil {
			t.Fatalf("Deactivate unknown id: %v", err)
		}

		got := mustGet(ctx, t, s, row.ID)
		if got.DeactivatedAt == nil || !got.DeactivatedAt.Equal(t0.Add(time.Minute)) {
			t.Fatalf("first deactivation time must win: %+v", got.DeactivatedAt)
		}
		if got.DeactivationReason == nil || *got.DeactivationReason != ReasonLogout {
			t.Fatalf("first reason must win: %+v", got.DeactivationReason)
		}
	})

	t.Run("deactivate all expired", func(t *testing.T) {
		s := h.newStore(t)
		emp := h.newEmployee(t)

		expired := mustCreate(ctx, t, s, emp, t0, time.Hour)
		boundary := mustCreate(ctx, t, s, emp, t0.Add(time.Hour), time.Hour)
		live := mustCreate(ctx, t, s, emp, t0.Add(90*time.Minute), time.Hour)

		now := t0.Add(2 * time.Hour)
		n, err := s.DeactivateAllExpired(ctx, now)
		if err != nil {
			t.Fatalf("DeactivateAllExpired: %v", err)
		}
		// Shared databases may hold other expired rows.
		if n < 1 {
			t.Fatalf("expected at least 1 row swept, got %d", n)
		}
		if mustGet(ctx, t, s, expired.ID).IsActive {
			t.Fatalf("expired row should be inactive")
		}
		if !mustGet(ctx, t, s, boundary.ID).IsActive {
			t.Fatalf("row expiring exactly at now is left for the validator")
		}
		if !mustGet(ctx, t, s, live.ID).IsActive {
			t.Fatalf("live row should stay active")
		}

		if _, err := s.DeactivateAllExpired(ctx, now); err != nil {
			t.Fatalf("second sweep: %v", err)
		}
		if got := mustGet(ctx, t, s, expired.ID); got.DeactivationReason == nil || *got.DeactivationReason != ReasonCleanup {
			t.Fatalf("expected cleanup reason, got %+v", got.DeactivationReason)
		}
	})
}
