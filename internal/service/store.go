package service

import (
	"context"
	"time"

	"github.com/fixpoint/backend/internal/models"
)

// ListOrder selects the sort column for request listings.
type ListOrder string

const (
	OrderCreatedDesc ListOrder = "created_desc"
	OrderUpdatedDesc ListOrder = "updated_desc"
)

// ListFilter narrows a request listing.
type ListFilter struct {
	Status     *models.Status
	AssignedTo *string
	OrderBy    ListOrder
}

// Expect is the precondition of a conditional request update. A zero-length
// Statuses slice matches nothing and must not be passed.
type Expect struct {
	Statuses   []models.Status
	AssignedTo *string
}

// Change is the mutation applied when the precondition holds. The store also
// bumps updated_at on every applied change.
type Change struct {
	Status     models.Status
	AssignedTo *string
	TakenAt    *time.Time
}

// RequestStore is the durable storage the engine mutates. UpdateRequestIf must
// apply the precondition check and the write as one atomic operation and
// report the affected row count (0 or 1). GetRequest returns ErrNotFound for
// unknown ids.
type RequestStore interface {
	InsertRequest(ctx context.Context, r models.Request) error
	GetRequest(ctx context.Context, id string) (models.Request, error)
	ListRequests(ctx context.Context, f ListFilter) ([]models.Request, error)
	UpdateRequestIf(ctx context.Context, id string, expect Expect, change Change) (int64, error)
}

// UserResolver looks up principals, used to validate assign targets.
// GetUser returns ErrNotFound for unknown ids.
type UserResolver interface {
	GetUser(ctx context.Context, id string) (models.User, error)
}
