package userservice

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sushihentaime/blogdesk/internal/common"
)

var (
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
	ErrEditConflict      = errors.New("edit conflict")
)

func newUserModel(db *sql.DB) *UserModel {
	return &UserModel{db: db}
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (m *UserModel) insertUser(ctx context.Context, q dbtx, u *User) error {
	query := `
		INSERT INTO users (username, email, password, activated)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at, version`

	args := []any{
		u.Username,
		u.Email,
		u.Password.hash,
		u.Activated,
	}

	err := q.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case common.UniqueViolation(err, "users_username_key"):
			return ErrDuplicateUsername
		case common.UniqueViolation(err, "users_email_key"):
			return ErrDuplicateEmail
		default:
			return common.StoreError(err)
		}
	}

	return nil
}

func (m *UserModel) getUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, password, activated, created_at, updated_at, version
		FROM users
		WHERE username = $1`

	var u User

	err := m.db.QueryRowContext(ctx, query, username).Scan(&u.ID, &u.Username, &u.Email, &u.Password.hash, &u.Activated, &u.CreatedAt, &u.UpdatedAt, &u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrRecordNotFound
		default:
			return nil, common.StoreError(err)
		}
	}

	return &u, nil
}

// activateUser uses the version as an optimistic lock.
func (m *UserModel) activateUser(ctx context.Context, tx *sql.Tx, u *User) error {
	query := `
		UPDATE users
		SET activated = true, updated_at = now(), version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`

	err := tx.QueryRowContext(ctx, query, u.ID, u.Version).Scan(&u.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return common.StoreError(err)
		}
	}

	u.Activated = true

	return nil
}
