package identity

import (
	"context"
	"time"
)

// Status is the employment status column.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusResigned  Status = "resigned"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusResigned:
		return true
	}
	return false
}

// Employee is a wise.employees row.
type Employee struct {
	ID         string
	Code       string
	Email      string
	FirstName  string
	LastName   string
	Department string
	Position   string
	Status     Status

	// PasswordHash is a PHC Argon2id string. Never log it.
	PasswordHash string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateEmployeeInput seeds a directory entry. Password is hashed by the store.
type CreateEmployeeInput struct {
	Code       string
	Email      string
	FirstName  string
	LastName   string
	Department string
	Position   string
	Status     Status
	Password   string
	Now        time.Time
}

// Store is the employee persistence boundary.
type Store interface {
	GetEmployee(ctx context.Context, id string) (Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (Employee, error)
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (Employee, error)
	SetStatus(ctx context.Context, id string, status Status, now time.Time) error
}

func (in CreateEmployeeInput) validate(op string) error {
	switch {
	case NormalizeEmail(in.Email) == "":
		return invalid(op, "email is required")
	case NormalizeEmployeeCode(in.Code) == "":
		return invalid(op, "employee code is required")
	case in.Status != "" && !in.Status.Valid():
		return invalid(op, "unknown status")
	case in.Password == "":
		return invalid(op, "password is required")
	}
	return nil
}
