package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// MemoryStore is a dev-only directory used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Employee
	byEmail map[string]string
	hasher  PasswordHasher
}

// NewMemoryStore returns an empty directory.
func NewMemoryStore(h PasswordHasher) *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Employee),
		byEmail: make(map[string]string),
		hasher:  h,
	}
}

func (s *MemoryStore) GetEmployee(ctx context.Context, id string) (Employee, error) {
	if err := ctx.Err(); err != nil {
		return Employee{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byID[strings.TrimSpace(id)]
	if !ok {
		return Employee{}, notFound("identity.GetEmployee")
	}
	return e, nil
}

func (s *MemoryStore) GetEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	if err := ctx.Err(); err != nil {
		return Employee{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return Employee{}, notFound("identity.GetEmployeeByEmail")
	}
	return s.byID[id], nil
}

func (s *MemoryStore) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (Employee, error) {
	const op = "identity.CreateEmployee"

	if err := ctx.Err(); err != nil {
		return Employee{}, err
	}
	if err := in.validate(op); err != nil {
		return Employee{}, err
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Employee{}, invalid(op, err.Error())
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Employee{}, err
	}
	e := newEmployee(id, in, hash, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byEmail[e.Email]; dup {
		return Employee{}, ConflictError{Op: op, Field: "email"}
	}
	for _, other := range s.byID {
		if other.Code == e.Code {
			return Employee{}, ConflictError{Op: op, Field: "employee_code"}
		}
	}
	s.byID[e.ID] = e
	s.byEmail[e.Email] = e.ID
	return e, nil
}

func (s *MemoryStore) SetStatus(ctx context.Context, id string, status Status, now time.Time) error {
	const op = "identity.SetStatus"

	if err := ctx.Err(); err != nil {
		return err
	}
	if !status.Valid() {
		return invalid(op, "unknown status")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return notFound(op)
	}
	e.Status = status
	e.UpdatedAt = now
	s.byID[id] = e
	return nil
}
