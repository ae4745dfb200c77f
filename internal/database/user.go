package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/liarspoker/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// CreateUser inserts u, assigning an ID if it has none. u.Password must already be hashed.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		u.ID = id
	}

	q := `INSERT INTO users (id, email, password, username, is_ephemeral, is_admin)
	      VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)`
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, u.ID, u.Email, u.Password, u.Username, u.IsEphemeral, u.IsAdmin)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", translate(err))
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `WHERE email=$1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `WHERE id=$1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var u models.User
	q := `SELECT id, COALESCE(email, ''), password, username, is_ephemeral, is_admin FROM users ` + where
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.Password, &u.Username, &u.IsEphemeral, &u.IsAdmin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ClaimUser turns a guest row into a registered account. u.Password must already be hashed.
func (s *Store) ClaimUser(ctx context.Context, u *models.User) error {
	q := `UPDATE users SET email = $1, password = $2, username = $3, is_ephemeral = FALSE WHERE id = $4`
	var affected int64
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, e := tx.Exec(ctx, q, u.Email, u.Password, u.Username, u.ID)
		affected = tag.RowsAffected()
		return e
	})
	if err != nil {
		return fmt.Errorf("failed to update user credentials: %w", translate(err))
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	u.IsEphemeral = false
	return nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}
