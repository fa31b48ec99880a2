package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// userStore is the store of record for users. Lookups report a missing
// row as ErrUserNotFound.
type userStore interface {
	Insert(ctx context.Context, u User) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindAll(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, u User) error
}

// dbtx is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy it.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	pgUniqueViolation = "23505"

	usernameConstraint = "users_username_key"
	emailConstraint    = "users_email_key"

	userColumns = `id, first_name, last_name, username, email, created_at, updated_at`
)

type postgresStore struct {
	db dbtx
}

func newPostgresStore(db dbtx) *postgresStore {
	return &postgresStore{db: db}
}

// Insert creates a new user in the database
func (s *postgresStore) Insert(ctx context.Context, u User) (User, error) {
	var out User
	err := scanUser(s.db.QueryRowContext(ctx,
		`INSERT INTO users (first_name, last_name, username, email)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		u.FirstName, u.LastName, u.Username, u.Email,
	), &out)
	if err != nil {
		return User{}, mapWriteError(err)
	}
	return out, nil
}

// FindByID gets a user by id from the database
func (s *postgresStore) FindByID(ctx context.Context, id int64) (User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername gets a user by username from the database
func (s *postgresStore) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail gets a user by email from the database
func (s *postgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (s *postgresStore) findOne(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := scanUser(s.db.QueryRowContext(ctx, query, arg), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// FindAll lists all users in the database
func (s *postgresStore) FindAll(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+`
		FROM users
		ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := []User{}

	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return users, nil
}

// Update replaces every mutable column of the user with u.ID
func (s *postgresStore) Update(ctx context.Context, u User) (User, error) {
	query := `
		UPDATE users
		SET
			first_name = $2,
			last_name  = $3,
			username   = $4,
			email      = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userColumns

	var out User
	err := scanUser(s.db.QueryRowContext(ctx, query, u.ID, u.FirstName, u.LastName, u.Username, u.Email), &out)

	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, mapWriteError(err)
	}

	return out, nil
}

// Delete removes the user with u.ID from the database
func (s *postgresStore) Delete(ctx context.Context, u User) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		u.ID,
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, u *User) error {
	return row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.CreatedAt, &u.UpdatedAt)
}

// mapWriteError turns a unique violation into the matching conflict error.
// The constraints are the last line of defence when two requests pass the
// service-level check at the same time.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case usernameConstraint:
			return ErrUsernameExists
		case emailConstraint:
			return ErrEmailExists
		}
	}
	return fmt.Errorf("db error: %w", err)
}
