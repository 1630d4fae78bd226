package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent is one row of the auth audit trail.
type AuditEvent struct {
	Action     string
	EmployeeID string
	SessionID  string
	IP         net.IP
	UserAgent  string
	RequestID  string
	Detail     map[string]any
	At         time.Time
}

// AuditSink records audit events. Recording is best effort and never fails
// the request.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// NoopAuditSink drops every event. Used when no database is configured.
type NoopAuditSink struct{}

func (NoopAuditSink) Record(context.Context, AuditEvent) {}

// PostgresAuditSink writes events to wise.audit_log.
// The pool is owned by the caller.
type PostgresAuditSink struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresAuditSink returns a sink over pool.
func NewPostgresAuditSink(pool *pgxpool.Pool, log *slog.Logger) *PostgresAuditSink {
	if log == nil {
		log = slog.Default()
	}
	return &PostgresAuditSink{pool: pool, log: log}
}

func (s *PostgresAuditSink) Record(ctx context.Context, ev AuditEvent) {
	if s == nil || s.pool == nil {
		return
	}
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	detail := []byte("{}")
	if len(ev.Detail) > 0 {
		if b, err := json.Marshal(ev.Detail); err == nil {
			detail = b
		}
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wise.audit_log (
			id, occurred_at, action, employee_id, session_id, ip, user_agent, request_id, detail
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
	`, uuid.NewString(), at, action, trimOrNil(ev.EmployeeID), trimOrNil(ev.SessionID),
		ipVal, trimOrNil(ev.UserAgent), trimOrNil(ev.RequestID), string(detail))
	if err != nil {
		s.log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
