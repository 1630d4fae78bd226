package session

import (
	"context"
	"strings"
	"time"
)

// EmployeeStatus is the employment status as reported by the directory.
type EmployeeStatus string

// EmployeeActive is the only status that may hold a session.
const EmployeeActive EmployeeStatus = "active"

// Employee is the directory view needed to build an Identity.
type Employee struct {
	ID         string
	Code       string
	Email      string
	FirstName  string
	LastName   string
	Department string
	Position   string
	Status     EmployeeStatus
}

// Directory resolves employees for validation.
type Directory interface {
	// LookupEmployee returns ErrEmployeeNotFound for unknown ids.
	LookupEmployee(ctx context.Context, employeeID string) (Employee, error)
}

// Identity is the authenticated principal handed to the rest of the app.
// It is a snapshot built once per validation and is never written back.
type Identity struct {
	SessionID  string
	EmployeeID string
	Code       string
	Email      string
	FirstName  string
	LastName   string
	Department string
	Position   string

	ExpiresAt time.Time
	LongTerm  bool
}

// FullName joins first and last name.
func (i Identity) FullName() string {
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

func newIdentity(s Session, e Employee, longTerm bool) Identity {
	return Identity{
		SessionID:  s.ID,
		EmployeeID: s.EmployeeID,
		Code:       e.Code,
		Email:      e.Email,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Department: e.Department,
		Position:   e.Position,
		ExpiresAt:  s.ExpiresAt,
		LongTerm:   longTerm,
	}
}
