package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// SQLite stores timestamps as Unix nanoseconds (UTC) so comparisons stay integer-only.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                  TEXT PRIMARY KEY,
	employee_id         TEXT NOT NULL,
	token_hash          TEXT NOT NULL UNIQUE,
	created_at          INTEGER NOT NULL,
	expires_at          INTEGER NOT NULL,
	last_activity       INTEGER NOT NULL,
	is_active           INTEGER NOT NULL DEFAULT 1,
	deactivated_at      INTEGER,
	deactivation_reason TEXT,
	CHECK (expires_at > created_at)
);
CREATE INDEX IF NOT EXISTS sessions_employee_idx ON sessions (employee_id);
CREATE INDEX IF NOT EXISTS sessions_active_expiry_idx ON sessions (is_active, expires_at);
`

// SQLiteStore implements Store on a single-file SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
// path may be ":memory:" for tests.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// One writer at a time; this also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// NewSQLiteStore wraps an already-configured handle. The schema must exist.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Ping checks the handle for readiness probes.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Create(ctx context.Context, in CreateInput) (Session, error) {
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

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, employee_id, token_hash, created_at, expires_at, last_activity, is_active)
		VALUES (?, ?, ?, ?, ?, ?, 1)
	`, row.ID, row.EmployeeID, row.TokenHash, unixNano(row.CreatedAt), unixNano(row.ExpiresAt), unixNano(row.LastActivity))
	if err != nil {
		return Session{}, err
	}
	return row, nil
}

func (s *SQLiteStore) FindActiveByToken(ctx context.Context, tokenHash string) (Session, error) {
	return s.queryOne(ctx, `
		SELECT id, employee_id, token_hash, created_at, expires_at, last_activity,
		       is_active, deactivated_at, deactivation_reason
		FROM sessions
		WHERE token_hash = ? AND is_active = 1
	`, tokenHash)
}

// GetByID loads a row regardless of state.
func (s *SQLiteStore) GetByID(ctx context.Context, sessionID string) (Session, error) {
	return s.queryOne(ctx, `
		SELECT id, employee_id, token_hash, created_at, expires_at, last_activity,
		       is_active, deactivated_at, deactivation_reason
		FROM sessions
		WHERE id = ?
	`, sessionID)
}

func (s *SQLiteStore) Extend(ctx context.Context, now time.Time, sessionID string, newExpiresAt time.Time) (time.Time, error) {
	var exp int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE sessions
		SET expires_at = MAX(expires_at, ?),
		    last_activity = ?
		WHERE id = ? AND is_active = 1
		RETURNING expires_at
	`, unixNano(newExpiresAt), unixNano(now), sessionID).Scan(&exp)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrSessionNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return fromUnixNano(exp), nil
}

func (s *SQLiteStore) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET last_activity = MAX(last_activity, ?)
		WHERE id = ? AND is_active = 1
	`, unixNano(at), sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) Deactivate(ctx context.Context, now time.Time, sessionID string, reason Reason) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET is_active = 0,
		    deactivated_at = COALESCE(deactivated_at, ?),
		    deactivation_reason = COALESCE(deactivation_reason, ?)
		WHERE id = ?
	`, unixNano(now), string(reason), sessionID)
	return err
}

func (s *SQLiteStore) DeactivateAllExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET is_active = 0,
		    deactivated_at = COALESCE(deactivated_at, ?),
		    deactivation_reason = COALESCE(deactivation_reason, ?)
		WHERE is_active = 1 AND expires_at < ?
	`, unixNano(before), string(ReasonCleanup), unixNano(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, arg any) (Session, error) {
	var (
		row                          Session
		created, expires, lastActive int64
		active                       int64
		deactivatedAt                sql.NullInt64
		reason                       sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&row.ID, &row.EmployeeID, &row.TokenHash,
		&created, &expires, &lastActive,
		&active, &deactivatedAt, &reason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, err
	}

	row.CreatedAt = fromUnixNano(created)
	row.ExpiresAt = fromUnixNano(expires)
	row.LastActivity = fromUnixNano(lastActive)
	row.IsActive = active != 0
	if deactivatedAt.Valid {
		t := fromUnixNano(deactivatedAt.Int64)
		row.DeactivatedAt = &t
	}
	if reason.Valid {
		r := Reason(reason.String)
		row.DeactivationReason = &r
	}
	return row, nil
}

func unixNano(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }
