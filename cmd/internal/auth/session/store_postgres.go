package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// PostgresStore implements Store using PostgreSQL (wise.sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const pgSessionColumns = `
	id, employee_id, token_hash,
	created_at, expires_at, last_activity,
	is_active, deactivated_at, deactivation_reason`

// Create inserts a new active session row with a ULID id.
func (s *PostgresStore) Create(ctx context.Context, in CreateInput) (Session, error) {
	id, err := ids.NewULID(in.Now)
	if err != nil {
		return Session{}, err
	}

	row := Session{
		ID:           id,
		EmployeeID:   in.EmployeeID,
		TokenHash:    in.TokenHash,
		CreatedAt:    in.Now,
		ExpiresAt:    in.Now.Add(in.TTL),
		LastActivity: in.Now,
		IsActive:     true,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO wise.sessions (
			id, employee_id, token_hash,
			created_at, expires_at, last_activity, is_active
		) VALUES (
			$1, $2, $3,
			$4, $5, $4, TRUE
		)
	`, row.ID, row.EmployeeID, row.TokenHash, row.CreatedAt, row.ExpiresAt)
	if err != nil {
		return Session{}, err
	}

	return row, nil
}

// FindActiveByToken loads the active row for tokenHash.
func (s *PostgresStore) FindActiveByToken(ctx context.Context, tokenHash string) (Session, error) {
	row, err := scanPGSession(s.pool.QueryRow(ctx, `
		SELECT`+pgSessionColumns+`
		FROM wise.sessions
		WHERE token_hash = $1 AND is_active
	`, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return row, nil
}

// GetByID loads a row regardless of state. Used by tests and admin tooling.
func (s *PostgresStore) GetByID(ctx context.Context, sessionID string) (Session, error) {
	row, err := scanPGSession(s.pool.QueryRow(ctx, `
		SELECT`+pgSessionColumns+`
		FROM wise.sessions
		WHERE id = $1
	`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return row, nil
}

// Extend moves expires_at forward (never backward) on an active row.
func (s *PostgresStore) Extend(ctx context.Context, now time.Time, sessionID string, newExpiresAt time.Time) (time.Time, error) {
	var expiresAt time.Time
	err := s.pool.QueryRow(ctx, `
		UPDATE wise.sessions
		SET expires_at = GREATEST(expires_at, $2),
		    last_activity = $3
		WHERE id = $1 AND is_active
		RETURNING expires_at
	`, sessionID, newExpiresAt, now).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, ErrSessionNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// TouchActivity updates last_activity on an active row.
func (s *PostgresStore) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wise.sessions
		SET last_activity = GREATEST(last_activity, $2)
		WHERE id = $1 AND is_active
	`, sessionID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Deactivate soft-deletes a session (idempotent).
func (s *PostgresStore) Deactivate(ctx context.Context, now time.Time, sessionID string, reason Reason) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE wise.sessions
		SET is_active = FALSE,
		    deactivated_at = COALESCE(deactivated_at, $2),
		    deactivation_reason = COALESCE(deactivation_reason, $3)
		WHERE id = $1
	`, sessionID, now, string(reason))
	return err
}

// DeactivateAllExpired sweeps every active row past its deadline.
func (s *PostgresStore) DeactivateAllExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE wise.sessions
		SET is_active = FALSE,
		    deactivated_at = COALESCE(deactivated_at, $1),
		    deactivation_reason = COALESCE(deactivation_reason, $2)
		WHERE is_active AND expires_at < $1
	`, before, string(ReasonCleanup))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPGSession(r pgx.Row) (Session, error) {
	var (
		row    Session
		reason *string
	)
	err := r.Scan(
		&row.ID,
		&row.EmployeeID,
		&row.TokenHash,
		&row.CreatedAt,
		&row.ExpiresAt,
		&row.LastActivity,
		&row.IsActive,
		&row.DeactivatedAt,
		&reason,
	)
	if err != nil {
		return Session{}, err
	}
	if reason != nil {
		r := Reason(*reason)
		row.DeactivationReason = &r
	}
	return row, nil
}
