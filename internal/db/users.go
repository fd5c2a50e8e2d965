package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fixpoint/backend/internal/models"
	"github.com/fixpoint/backend/internal/service"
)

func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, role, password_hash, created_at FROM users WHERE id = $1`, id)
	return scanUser(row, id)
}

func (s *Store) GetUserByName(ctx context.Context, name string) (models.User, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, name, role, password_hash, created_at FROM users WHERE name = $1`, name)
	return scanUser(row, name)
}

func scanUser(row pgx.Row, key string) (models.User, error) {
	var (
		u    models.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Name, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, fmt.Errorf("%w: user %s", service.ErrNotFound, key)
		}
		return models.User{}, err
	}
	u.Role = models.Role(role)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, role FROM users ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UserPublic
	for rows.Next() {
		var (
			u    models.UserPublic
			role string
		)
		if err := rows.Scan(&u.ID, &u.Name, &role); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpsertUser inserts a user or refreshes its role and password by name.
func (s *Store) UpsertUser(ctx context.Context, u models.User) (models.User, error) {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO users (id, name, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (name) DO UPDATE SET
			role = EXCLUDED.role,
			password_hash = EXCLUDED.password_hash
		RETURNING id, name, role, password_hash, created_at
	`, u.ID, u.Name, string(u.Role), u.PasswordHash, u.CreatedAt)
	return scanUser(row, u.Name)
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
