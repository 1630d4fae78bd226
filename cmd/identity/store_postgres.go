package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/primo-luminous/wise-attitude-sub000/cmd/identity/ids"
)

// PostgresStore implements Store over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Schema identifiers are quoted to avoid SQL injection via configuration.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
	hasher PasswordHasher
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema holding the employees table (default "wise").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

// WithPasswordHasher sets the hasher used by CreateEmployee.
func WithPasswordHasher(h PasswordHasher) PostgresOption {
	return func(s *PostgresStore) error {
		s.hasher = h
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "wise",
		hasher: NewPasswordHasher(DefaultArgon2idParams()),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) employees() string {
	return pgx.Identifier{s.schema, "employees"}.Sanitize()
}

const pgEmployeeColumns = `
	id, employee_code, email, first_name, last_name,
	COALESCE(department, ''), COALESCE(position, ''),
	status, COALESCE(password_hash, ''), created_at, updated_at`

// GetEmployee loads an employee by id.
func (s *PostgresStore) GetEmployee(ctx context.Context, id string) (Employee, error) {
	const op = "identity.GetEmployee"

	id = strings.TrimSpace(id)
	if id == "" {
		return Employee{}, invalid(op, "missing id")
	}
	e, err := scanEmployee(s.pool.QueryRow(ctx,
		`SELECT`+pgEmployeeColumns+` FROM `+s.employees()+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, notFound(op)
	}
	return e, err
}

// GetEmployeeByEmail loads an employee by normalized email.
func (s *PostgresStore) GetEmployeeByEmail(ctx context.Context, email string) (Employee, error) {
	const op = "identity.GetEmployeeByEmail"

	email = NormalizeEmail(email)
	if email == "" {
		return Employee{}, invalid(op, "missing email")
	}
	e, err := scanEmployee(s.pool.QueryRow(ctx,
		`SELECT`+pgEmployeeColumns+` FROM `+s.employees()+` WHERE lower(email) = $1`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, notFound(op)
	}
	return e, err
}

// CreateEmployee inserts a directory entry with a hashed password.
func (s *PostgresStore) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (Employee, error) {
	const op = "identity.CreateEmployee"

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
	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+s.employees()+` (
			id, employee_code, email, first_name, last_name,
			department, position, status, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $10)
	`, e.ID, e.Code, e.Email, e.FirstName, e.LastName, e.Department, e.Position, string(e.Status), e.PasswordHash, now)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return Employee{}, ConflictError{Op: op, Field: field}
		}
		return Employee{}, err
	}
	return e, nil
}

// SetStatus changes an employee's status. Sessions of a non-active employee
// are rejected and deactivated on their next validation.
func (s *PostgresStore) SetStatus(ctx context.Context, id string, status Status, now time.Time) error {
	const op = "identity.SetStatus"

	if !status.Valid() {
		return invalid(op, "unknown status")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.employees()+` SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

func scanEmployee(r pgx.Row) (Employee, error) {
	var (
		e      Employee
		status string
	)
	err := r.Scan(
		&e.ID, &e.Code, &e.Email, &e.FirstName, &e.LastName,
		&e.Department, &e.Position,
		&status, &e.PasswordHash, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return Employee{}, err
	}
	e.Status = Status(status)
	return e, nil
}

func newEmployee(id string, in CreateEmployeeInput, hash string, now time.Time) Employee {
	status := in.Status
	if status == "" {
		status = StatusActive
	}
	return Employee{
		ID:           id,
		Code:         NormalizeEmployeeCode(in.Code),
		Email:        NormalizeEmail(in.Email),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Department:   strings.TrimSpace(in.Department),
		Position:     strings.TrimSpace(in.Position),
		Status:       status,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" { // unique_violation
		return "", false
	}
	c := strings.ToLower(pgErr.ConstraintName)
	switch {
	case strings.Contains(c, "email"):
		return "email", true
	case strings.Contains(c, "code"):
		return "employee_code", true
	default:
		return "unique", true
	}
}
