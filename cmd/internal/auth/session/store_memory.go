package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// ErrDuplicateToken is returned by MemoryStore when a token hash is reused.
var ErrDuplicateToken = errors.New("duplicate token hash")

// MemoryStore is a dev-only fallback when no database is configured.
// Rows are copied in and out; callers never alias stored state.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*Session
	byToken map[string]string // token_hash -> id
}

// NewMemoryStore constructs an in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, in CreateInput) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byToken[in.TokenHash]; dup {
		return Session{}, ErrDuplicateToken
	}
	row := &Session{
		ID:           id,
		EmployeeID:   in.EmployeeID,
		TokenHash:    in.TokenHash,
		CreatedAt:    in.Now,
		ExpiresAt:    in.Now.Add(in.TTL),
		LastActivity: in.Now,
		IsActive:     true,
	}
	s.byID[id] = row
	s.byToken[in.TokenHash] = id
	return cloneSession(row), nil
}

func (s *MemoryStore) FindActiveByToken(ctx context.Context, tokenHash string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byID[s.byToken[tokenHash]]
	if row == nil || !row.IsActive {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(row), nil
}

// GetByID loads a row regardless of state.
func (s *MemoryStore) GetByID(ctx context.Context, sessionID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byID[sessionID]
	if row == nil {
		return Session{}, ErrSessionNotFound
	}
	return cloneSession(row), nil
}

func (s *MemoryStore) Extend(ctx context.Context, now time.Time, sessionID string, newExpiresAt time.Time) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byID[sessionID]
	if row == nil || !row.IsActive {
		return time.Time{}, ErrSessionNotFound
	}
	if newExpiresAt.After(row.ExpiresAt) {
		row.ExpiresAt = newExpiresAt
	}
	row.LastActivity = now
	return row.ExpiresAt, nil
}

func (s *MemoryStore) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.byID[sessionID]
	if row == nil || !row.IsActive {
		return ErrSessionNotFound
	}
	if at.After(row.LastActivity) {
		row.LastActivity = at
	}
	return nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, now time.Time, sessionID string, reason Reason) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if row := s.byID[sessionID]; row != nil {
		deactivate(row, now, reason)
	}
	return nil
}

func (s *MemoryStore) DeactivateAllExpired(ctx context.Context, before time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, row := range s.byID {
		if row.IsActive && row.ExpiresAt.Before(before) {
			deactivate(row, before, ReasonCleanup)
			n++
		}
	}
	return n, nil
}

func deactivate(row *Session, now time.Time, reason Reason) {
	row.IsActive = false
	if row.DeactivatedAt == nil {
		t := now
		row.DeactivatedAt = &t
	}
	if row.DeactivationReason == nil {
		r := reason
		row.DeactivationReason = &r
	}
}

func cloneSession(row *Session) Session {
	out := *row
	if row.DeactivatedAt != nil {
		t := *row.DeactivatedAt
		out.DeactivatedAt = &t
	}
	if row.DeactivationReason != nil {
		r := *row.DeactivationReason
		out.DeactivationReason = &r
	}
	return out
}
