package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixpoint/backend/internal/models"
	"github.com/fixpoint/backend/internal/service"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

const requestColumns = `r.id, r.client_name, r.phone, r.address, r.problem_text, r.status,
	r.assigned_to, r.taken_at, r.created_at, r.updated_at,
	u.id, u.name, u.role`

func scanRequest(row pgx.Row) (models.Request, error) {
	var (
		r          models.Request
		status     string
		masterID   *string
		masterName *string
		masterRole *string
	)
	if err := row.Scan(
		&r.ID, &r.ClientName, &r.Phone, &r.Address, &r.ProblemText, &status,
		&r.AssignedTo, &r.TakenAt, &r.CreatedAt, &r.UpdatedAt,
		&masterID, &masterName, &masterRole,
	); err != nil {
		return models.Request{}, err
	}
	r.Status = models.Status(status)
	if masterID != nil {
		r.Master = &models.UserPublic{ID: *masterID, Name: *masterName, Role: models.Role(*masterRole)}
	}
	return r, nil
}

func (s *Store) InsertRequest(ctx context.Context, r models.Request) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO requests (id, client_name, phone, address, problem_text, status, assigned_to, taken_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, r.ID, r.ClientName, r.Phone, r.Address, r.ProblemText, string(r.Status), r.AssignedTo, r.TakenAt, r.CreatedAt, r.UpdatedAt)
	return err
}

func (s *Store) GetRequest(ctx context.Context, id string) (models.Request, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT `+requestColumns+`
		FROM requests r
		LEFT JOIN users u ON u.id = r.assigned_to
		WHERE r.id = $1
	`, id)
	r, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Request{}, fmt.Errorf("%w: request %s", service.ErrNotFound, id)
		}
		return models.Request{}, err
	}
	return r, nil
}

func (s *Store) ListRequests(ctx context.Context, f service.ListFilter) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM requests r
		LEFT JOIN users u ON u.id = r.assigned_to`
	var args []any
	var wheres []string
	if f.Status != nil {
		args = append(args, string(*f.Status))
		wheres = append(wheres, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if f.AssignedTo != nil {
		args = append(args, *f.AssignedTo)
		wheres = append(wheres, fmt.Sprintf("r.assigned_to = $%d", len(args)))
	}
	if len(wheres) > 0 {
		query += " WHERE " + strings.Join(wheres, " AND ")
	}
	switch f.OrderBy {
	case service.OrderUpdatedDesc:
		query += " ORDER BY r.updated_at DESC"
	default:
		query += " ORDER BY r.created_at DESC"
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRequestIf applies the change only when the stored row still matches
// expect, as a single UPDATE statement. The returned count is the number of
// rows the database reports as affected, 0 or 1.
func (s *Store) UpdateRequestIf(ctx context.Context, id string, expect service.Expect, change service.Change) (int64, error) {
	if len(expect.Statuses) == 0 {
		return 0, errors.New("expect requires at least one status")
	}

	sets := []string{"updated_at = NOW()"}
	var args []any

	args = append(args, string(change.Status))
	sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	if change.AssignedTo != nil {
		args = append(args, *change.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if change.TakenAt != nil {
		args = append(args, *change.TakenAt)
		sets = append(sets, fmt.Sprintf("taken_at = $%d", len(args)))
	}

	args = append(args, id)
	wheres := []string{fmt.Sprintf("id = $%d", len(args))}
	statusArgs := make([]string, 0, len(expect.Statuses))
	for _, st := range expect.Statuses {
		args = append(args, string(st))
		statusArgs = append(statusArgs, fmt.Sprintf("$%d", len(args)))
	}
	wheres = append(wheres, "status IN ("+strings.Join(statusArgs, ", ")+")")
	if expect.AssignedTo != nil {
		args = append(args, *expect.AssignedTo)
		wheres = append(wheres, fmt.Sprintf("assigned_to = $%d", len(args)))
	}

	query := "UPDATE requests SET " + strings.Join(sets, ", ") + " WHERE " + strings.Join(wheres, " AND ")
	tag, err := s.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
