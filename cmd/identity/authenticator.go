package identity

import (
	"context"
	"errors"
	"sync"
)

// Authenticator verifies email + password logins against a Store.
type Authenticator struct {
	store  Store
	hasher PasswordHasher

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(store Store, hasher PasswordHasher) *Authenticator {
	return &Authenticator{store: store, hasher: hasher}
}

// Authenticate returns the employee for valid credentials.
//
// Unknown email and wrong password both return ErrInvalidCredentials, and an
// unknown email still pays for one Argon2id verification. A correct password
// for a non-active employee returns ErrNotActive.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (Employee, error) {
	const op = "identity.Authenticate"

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Employee{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	e, err := a.store.GetEmployeeByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			_, _ = a.hasher.Verify(a.dummy(), password)
			return Employee{}, OpError{Op: op, Kind: ErrInvalidCredentials}
		}
		return Employee{}, err
	}
	if e.PasswordHash == "" {
		_, _ = a.hasher.Verify(a.dummy(), password)
		return Employee{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}

	ok, err := a.hasher.Verify(e.PasswordHash, password)
	if err != nil && !errors.Is(err, ErrInvalidHash) {
		return Employee{}, err
	}
	if !ok {
		return Employee{}, OpError{Op: op, Kind: ErrInvalidCredentials}
	}
	if e.Status != StatusActive {
		return Employee{}, OpError{Op: op, Kind: ErrNotActive, Msg: string(e.Status)}
	}
	return e, nil
}

func (a *Authenticator) dummy() string {
	a.dummyOnce.Do(func() {
		h, err := a.hasher.Hash("wise-dummy-password-for-timing")
		if err == nil {
			a.dummyHash = h
		}
	})
	return a.dummyHash
}
