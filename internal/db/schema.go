package db

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('dispatcher', 'master')),
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS requests (
		id UUID PRIMARY KEY,
		client_name TEXT NOT NULL,
		phone TEXT NOT NULL,
		address TEXT NOT NULL,
		problem_text TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('new', 'assigned', 'in_progress', 'done', 'canceled')),
		assigned_to UUID REFERENCES users(id),
		taken_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_assigned_to ON requests (assigned_to)`,
	`CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests (created_at DESC)`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
// Statements are idempotent, so running it on every boot is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
