package app

import (
	"context"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
)

// employeeDirectory exposes an identity.Store to the session validator.
type employeeDirectory struct {
	store identity.Store
}

func newEmployeeDirectory(store identity.Store) employeeDirectory {
	return employeeDirectory{store: store}
}

func (d employeeDirectory) LookupEmployee(ctx context.Context, employeeID string) (session.Employee, error) {
	e, err := d.store.GetEmployee(ctx, employeeID)
	if identity.IsNotFound(err) {
		return session.Employee{}, session.ErrEmployeeNotFound
	}
	if err != nil {
		return session.Employee{}, err
	}
	return session.Employee{
		ID:         e.ID,
		Code:       e.Code,
		Email:      e.Email,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		Department: e.Department,
		Position:   e.Position,
		Status:     session.EmployeeStatus(e.Status),
	}, nil
}
