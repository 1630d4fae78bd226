package authapi

import (
	"time"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity"
	"github.com/primo-luminous/wise-attitude-sub000/cmd/internal/auth/session"
)

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

type employeeResponse struct {
	ID         string `json:"id"`
	Code       string `json:"employee_code"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

type sessionResponse struct {
	SessionID  string    `json:"session_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	RememberMe bool      `json:"remember_me"`
}

type loginResponse struct {
	Session  sessionResponse  `json:"session"`
	Employee employeeResponse `json:"employee"`
}

type sessionStatusResponse struct {
	Active     bool       `json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	NearExpiry bool       `json:"near_expiry"`
}

type refreshResponse struct {
	Refreshed bool      `json:"refreshed"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meSessionResponse struct {
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	LongTerm  bool      `json:"long_term"`
}

type meResponse struct {
	Employee employeeResponse  `json:"employee"`
	Session  meSessionResponse `json:"session"`
}

func toEmployeeResponse(e identity.Employee) employeeResponse {
	return employeeResponse{
		ID:         e.ID,
		Code:       e.Code,
		Email:      e.Email,
		FirstName:  e.FirstName,
		LastName:   e.LastName,
		FullName:   joinName(e.FirstName, e.LastName),
		Department: e.Department,
		Position:   e.Position,
	}
}

func toMeResponse(id session.Identity) meResponse {
	return meResponse{
		Employee: employeeResponse{
			ID:         id.EmployeeID,
			Code:       id.Code,
			Email:      id.Email,
			FirstName:  id.FirstName,
			LastName:   id.LastName,
			FullName:   id.FullName(),
			Department: id.Department,
			Position:   id.Position,
		},
		Session: meSessionResponse{
			SessionID: id.SessionID,
			ExpiresAt: id.ExpiresAt,
			LongTerm:  id.LongTerm,
		},
	}
}

func toStatusResponse(st session.Status) sessionStatusResponse {
	if !st.Active {
		return sessionStatusResponse{}
	}
	exp := st.ExpiresAt
	return sessionStatusResponse{Active: true, ExpiresAt: &exp, NearExpiry: st.NearExpiry}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
