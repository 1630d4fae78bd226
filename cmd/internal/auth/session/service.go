package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/security/token"
)

const (
	tracerName = "github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"

	// maxTokenLen bounds presented tokens before hashing.
	maxTokenLen = 4096
)

// TokenSource produces opaque session tokens.
type TokenSource interface {
	Generate() (string, error)
}

// Deps are the collaborators of a Service. Store and Directory are required.
type Deps struct {
	Store     Store
	Directory Directory

	// Tokens defaults to a crypto/rand generator of Config.TokenBytes.
	Tokens TokenSource
	// Hasher defaults to SHA-256 (no key).
	Hasher token.Hasher

	Log     *slog.Logger
	Metrics *Metrics
}

// Service implements the session operations used by the HTTP and WebSocket layers.
type Service struct {
	cfg     Config
	policy  Policy
	store   Store
	dir     Directory
	tokens  TokenSource
	hasher  token.Hasher
	cleaner *Cleaner
	log     *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Issued is the result of creating a session. Token is the only copy of the
// plaintext credential.
type Issued struct {
	SessionID  string
	Token      string
	ExpiresAt  time.Time
	RememberMe bool
}

// Status is a read-only view of a session for expiry prompts.
type Status struct {
	Active     bool
	ExpiresAt  time.Time
	NearExpiry bool
	LongTerm   bool
}

// NewService validates cfg and wires the collaborators.
func NewService(cfg Config, d Deps) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if d.Store == nil || d.Directory == nil {
		return nil, fmt.Errorf("%w: store and directory are required", ErrConfig)
	}
	if d.Tokens == nil {
		g, err := token.NewGenerator(cfg.TokenBytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfig, err)
		}
		d.Tokens = g
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	return &Service{
		cfg:     cfg,
		policy:  NewPolicy(cfg),
		store:   d.Store,
		dir:     d.Directory,
		tokens:  d.Tokens,
		hasher:  d.Hasher,
		cleaner: NewCleaner(d.Store, d.Log, d.Metrics),
		log:     d.Log,
		metrics: d.Metrics,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Policy exposes the lifecycle rules in use.
func (s *Service) Policy() Policy { return s.policy }

// Cleaner returns the sweeper shared with inline validation.
func (s *Service) Cleaner() *Cleaner { return s.cleaner }

// CreateSession issues a new session for employeeID. Existing sessions of the
// employee stay valid.
func (s *Service) CreateSession(ctx context.Context, now time.Time, employeeID string, rememberMe bool) (Issued, error) {
	ctx, span := s.tracer.Start(ctx, "session.create", trace.WithAttributes(
		attribute.Bool("session.remember_me", rememberMe),
	))
	defer span.End()

	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return Issued{}, ErrInvalidEmployeeID
	}

	plain, err := s.tokens.Generate()
	if err != nil {
		recordErr(span, err)
		return Issued{}, err
	}

	row, err := s.store.Create(ctx, CreateInput{
		EmployeeID: employeeID,
		TokenHash:  s.hasher.Hash(plain),
		Now:        now,
		TTL:        s.policy.TTLFor(rememberMe),
	})
	if err != nil {
		err = storageErr("create", err)
		recordErr(span, err)
		return Issued{}, err
	}

	s.metrics.creation(rememberMe)
	s.log.Info("session.create",
		"session_id", row.ID,
		"employee_id", row.EmployeeID,
		"remember_me", rememberMe,
		"expires_at", row.ExpiresAt,
	)

	return Issued{
		SessionID:  row.ID,
		Token:      plain,
		ExpiresAt:  row.ExpiresAt,
		RememberMe: rememberMe,
	}, nil
}

// DeleteSession deactivates the session for tok. Unknown or already inactive
// tokens are not an error.
func (s *Service) DeleteSession(ctx context.Context, now time.Time, tok string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	tok, ok := normalizeToken(tok)
	if !ok {
		return nil
	}

	row, err := s.store.FindActiveByToken(ctx, s.hasher.Hash(tok))
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		err = storageErr("find_active_by_token", err)
		recordErr(span, err)
		return err
	}

	if err := s.deactivate(ctx, now, row, ReasonLogout); err != nil {
		recordErr(span, err)
		return err
	}
	s.log.Info("session.delete", "session_id", row.ID, "employee_id", row.EmployeeID)
	return nil
}

// RefreshSession extends a valid session by its class TTL regardless of how
// much time is left. It applies the same checks as validation and returns
// false when the session is not valid.
func (s *Service) RefreshSession(ctx context.Context, now time.Time, tok string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "session.refresh")
	defer span.End()

	row, _, failure, err := s.resolve(ctx, now, tok)
	if err != nil {
		recordErr(span, err)
		return false, err
	}
	if failure != FailureNone {
		span.SetAttributes(attribute.String("session.failure", failure.String()))
		return false, nil
	}

	exp, err := s.store.Extend(ctx, now, row.ID, now.Add(s.policy.RefreshTTL(row)))
	if errors.Is(err, ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		err = storageErr("extend", err)
		recordErr(span, err)
		return false, err
	}

	s.metrics.refresh("explicit")
	s.log.Info("session.refresh", "session_id", row.ID, "trigger", "explicit", "expires_at", exp)
	return true, nil
}

// Status reports expiry state for tok without writing anything.
func (s *Service) Status(ctx context.Context, now time.Time, tok string) (Status, error) {
	tok, ok := normalizeToken(tok)
	if !ok {
		return Status{}, nil
	}

	row, err := s.store.FindActiveByToken(ctx, s.hasher.Hash(tok))
	if errors.Is(err, ErrSessionNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, storageErr("find_active_by_token", err)
	}
	if s.policy.Expired(row, now) {
		return Status{}, nil
	}

	// Same employee gate as Validate, minus the deactivation write.
	emp, err := s.dir.LookupEmployee(ctx, row.EmployeeID)
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		return Status{ExpiresAt: row.ExpiresAt}, nil
	case err != nil:
		return Status{}, storageErr("lookup_employee", err)
	case emp.Status != EmployeeActive:
		return Status{ExpiresAt: row.ExpiresAt}, nil
	}

	return Status{
		Active:     true,
		ExpiresAt:  row.ExpiresAt,
		NearExpiry: s.policy.NeedsRefresh(row, now),
		LongTerm:   s.policy.IsLongTerm(row),
	}, nil
}

// IsSessionNearExpiry reports whether tok is active with less than the
// near-expiry threshold left. It has no side effects.
func (s *Service) IsSessionNearExpiry(ctx context.Context, now time.Time, tok string) (bool, error) {
	st, err := s.Status(ctx, now, tok)
	if err != nil {
		return false, err
	}
	return st.NearExpiry, nil
}

// CleanupExpiredSessions runs one bulk sweep and returns the number of rows deactivated.
func (s *Service) CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "session.cleanup")
	defer span.End()

	n, err := s.cleaner.Sweep(ctx, now)
	if err != nil {
		recordErr(span, err)
		return 0, err
	}
	span.SetAttributes(attribute.Int64("session.deactivated", n))
	return n, nil
}

func (s *Service) deactivate(ctx context.Context, now time.Time, row Session, reason Reason) error {
	if err := s.store.Deactivate(ctx, now, row.ID, reason); err != nil {
		return storageErr("deactivate", err)
	}
	s.metrics.deactivation(reason)
	return nil
}

func normalizeToken(tok string) (string, bool) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return "", false
	}
	return tok, true
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
