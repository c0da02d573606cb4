package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type Repo struct{ DB *pgxpool.Pool }

const userCols = `id, name, email, password_hash, role, active, password_changed_at, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Active,
		&u.PasswordChangedAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email=$1`, email))
}

func (r *Repo) GetByID(ctx context.Context, id int64) (User, error) {
	return scanUser(r.DB.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

func (r *Repo) Create(ctx context.Context, name, email, passwordHash string, role Role) (User, error) {
	return scanUser(r.DB.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userCols, name, email, passwordHash, role))
}

func (r *Repo) UpdatePassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE users SET password_hash=$2, password_changed_at=$3, updated_at=now()
		WHERE id=$1`, id, passwordHash, changedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
