// Package identity is the employee directory used for login and session validation.
//
// It owns employee lookup (Postgres or in-memory) and Argon2id credential
// verification. Session state lives in cmd/internal/auth/session.
package identity
