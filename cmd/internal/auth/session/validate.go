package session

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Result is the outcome of a validation. Identity is set only when Failure is FailureNone.
type Result struct {
	Identity *Identity
	Failure  Failure
}

// OK reports whether the token authenticated.
func (r Result) OK() bool { return r.Failure == FailureNone && r.Identity != nil }

// Validate authenticates tok at now.
//
// Order of checks:
//  1. sweep expired rows (inline cleanup mode only);
//  2. find the active row for the token hash;
//  3. deactivate and fail if expired;
//  4. deactivate and fail if the employee is not active;
//  5. slide expiry forward when near expiry, else debounce a last_activity write.
//
// Domain failures are reported in Result. A non-nil error means the store or
// directory failed and the caller must treat the request as unauthenticated.
func (s *Service) Validate(ctx context.Context, now time.Time, tok string) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "session.validate")
	defer span.End()

	fail := func(err error) (Result, error) {
		s.metrics.validation("error")
		s.log.Error("session.validate.fail", "err", err)
		recordErr(span, err)
		return Result{}, err
	}

	if s.cfg.CleanupMode == CleanupInline {
		if _, err := s.cleaner.Sweep(ctx, now); err != nil {
			return fail(err)
		}
	}

	row, emp, failure, err := s.resolve(ctx, now, tok)
	if err != nil {
		return fail(err)
	}
	if failure != FailureNone {
		s.metrics.validation(failure.String())
		span.SetAttributes(attribute.String("session.failure", failure.String()))
		s.log.Debug("session.validate.reject", "failure", failure.String(), "session_id", row.ID)
		return Result{Failure: failure}, nil
	}

	switch {
	case s.policy.NeedsRefresh(row, now):
		exp, err := s.store.Extend(ctx, now, row.ID, now.Add(s.policy.RefreshTTL(row)))
		if errors.Is(err, ErrSessionNotFound) {
			// Deactivated between lookup and write.
			s.metrics.validation(FailureNotFound.String())
			return Result{Failure: FailureNotFound}, nil
		}
		if err != nil {
			return fail(storageErr("extend", err))
		}
		row.ExpiresAt = exp
		row.LastActivity = now
		s.metrics.refresh("sliding")
		s.log.Info("session.refresh", "session_id", row.ID, "trigger", "sliding", "expires_at", exp)

	case s.policy.NeedsTouch(row, now):
		err := s.store.TouchActivity(ctx, row.ID, now)
		if errors.Is(err, ErrSessionNotFound) {
			s.metrics.validation(FailureNotFound.String())
			return Result{Failure: FailureNotFound}, nil
		}
		if err != nil {
			return fail(storageErr("touch_activity", err))
		}
		row.LastActivity = now
	}

	id := newIdentity(row, emp, s.policy.IsLongTerm(row))
	s.metrics.validation(FailureNone.String())
	span.SetAttributes(attribute.String("session.id", row.ID))
	return Result{Identity: &id}, nil
}

// ValidateSession returns the Identity for tok, or nil when the token does not
// authenticate. Storage failures are returned as errors.
func (s *Service) ValidateSession(ctx context.Context, now time.Time, tok string) (*Identity, error) {
	res, err := s.Validate(ctx, now, tok)
	if err != nil {
		return nil, err
	}
	return res.Identity, nil
}

// resolve runs the lookup, expiry and employee checks shared by Validate and
// RefreshSession. It deactivates rows that fail the expiry or employee check.
func (s *Service) resolve(ctx context.Context, now time.Time, tok string) (Session, Employee, Failure, error) {
	tok, ok := normalizeToken(tok)
	if !ok {
		return Session{}, Employee{}, FailureNotFound, nil
	}

	row, err := s.store.FindActiveByToken(ctx, s.hasher.Hash(tok))
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, Employee{}, FailureNotFound, nil
	}
	if err != nil {
		return Session{}, Employee{}, FailureNone, storageErr("find_active_by_token", err)
	}

	if s.policy.Expired(row, now) {
		if err := s.deactivate(ctx, now, row, ReasonExpired); err != nil {
			return Session{}, Employee{}, FailureNone, err
		}
		return row, Employee{}, FailureExpired, nil
	}

	emp, err := s.dir.LookupEmployee(ctx, row.EmployeeID)
	switch {
	case errors.Is(err, ErrEmployeeNotFound):
		// Treated like an inactive employee.
	case err != nil:
		return Session{}, Employee{}, FailureNone, &StorageError{Op: "lookup_employee", Err: err}
	}
	if err != nil || emp.Status != EmployeeActive {
		if err := s.deactivate(ctx, now, row, ReasonEmployeeInactive); err != nil {
			return Session{}, Employee{}, FailureNone, err
		}
		return row, Employee{}, FailureEmployeeInactive, nil
	}

	return row, emp, FailureNone, nil
}
