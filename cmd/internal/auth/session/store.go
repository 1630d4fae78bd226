package session

import (
	"context"
	"time"
)

// Session mirrors one wise.sessions row.
type Session struct {
	ID           string
	EmployeeID   string
	TokenHash    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
	IsActive     bool

	DeactivatedAt      *time.Time
	DeactivationReason *Reason
}

// Reason records why a session stopped being active.
type Reason string

const (
	ReasonLogout           Reason = "logout"
	ReasonExpired          Reason = "expired"
	ReasonEmployeeInactive Reason = "employee_inactive"
	ReasonCleanup          Reason = "cleanup"
)

// CreateInput describes a new session row.
type CreateInput struct {
	EmployeeID string
	TokenHash  string
	Now        time.Time
	TTL        time.Duration
}

// Store abstracts persistence for session rows.
//
// Every mutation is a single atomic statement. Extend and TouchActivity only
// apply to rows that are still active at write time, so a concurrent
// Deactivate is never undone.
type Store interface {
	// Create inserts a new active row. Other sessions of the employee are untouched.
	Create(ctx context.Context, in CreateInput) (Session, error)

	// FindActiveByToken returns the active row for tokenHash or ErrSessionNotFound.
	FindActiveByToken(ctx context.Context, tokenHash string) (Session, error)

	// Extend sets expires_at to max(expires_at, newExpiresAt) and last_activity to now.
	// Returns ErrSessionNotFound if the row is missing or inactive.
	Extend(ctx context.Context, now time.Time, sessionID string, newExpiresAt time.Time) (time.Time, error)

	// TouchActivity sets last_activity. Returns ErrSessionNotFound if the row is missing or inactive.
	TouchActivity(ctx context.Context, sessionID string, at time.Time) error

	// Deactivate marks a row inactive (idempotent; the first reason wins).
	Deactivate(ctx context.Context, now time.Time, sessionID string, reason Reason) error

	// DeactivateAllExpired deactivates every active row with expires_at < before.
	DeactivateAllExpired(ctx context.Context, before time.Time) (int64, error)
}
