package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fixpoint/backend/internal/models"
)

// Requests owns the request lifecycle state machine. It is stateless between
// calls; every mutation is a single conditional store update, so two
// competing transitions on the same request can never both apply.
type Requests struct {
	Store RequestStore
	Users UserResolver
	Now   func() time.Time
	NewID func() string
}

func NewRequests(store RequestStore, users UserResolver) *Requests {
	return &Requests{
		Store: store,
		Users: users,
		Now:   time.Now,
		NewID: uuid.NewString,
	}
}

func (s *Requests) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Requests) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// CreateInput carries the caller-supplied fields of a new request.
type CreateInput struct {
	ClientName  string
	Phone       string
	Address     string
	ProblemText string
}

func (in CreateInput) validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"client_name", in.ClientName},
		{"phone", in.Phone},
		{"address", in.Address},
		{"problem_text", in.ProblemText},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, f.name)
		}
	}
	return nil
}

// Create registers a new request in status new. No authentication required.
func (s *Requests) Create(ctx context.Context, in CreateInput) (models.Request, error) {
	if err := in.validate(); err != nil {
		return models.Request{}, err
	}
	now := s.now().UTC()
	r := models.Request{
		ID:          s.newID(),
		ClientName:  strings.TrimSpace(in.ClientName),
		Phone:       strings.TrimSpace(in.Phone),
		Address:     strings.TrimSpace(in.Address),
		ProblemText: strings.TrimSpace(in.ProblemText),
		Status:      models.StatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.InsertRequest(ctx, r); err != nil {
		return models.Request{}, fmt.Errorf("insert request: %w", err)
	}
	return r, nil
}

// Assign moves a request from new to assigned and pins it to a master.
// Dispatcher only. The target must resolve to a user with the master role.
func (s *Requests) Assign(ctx context.Context, requestID, masterID string, actor models.Principal) (models.Request, error) {
	if err := requireRole(actor, models.RoleDispatcher); err != nil {
		return models.Request{}, err
	}
	master, err := s.Users.GetUser(ctx, masterID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Request{}, fmt.Errorf("%w: master %s not found", ErrInvalidTarget, masterID)
		}
		return models.Request{}, fmt.Errorf("resolve master: %w", err)
	}
	if master.Role != models.RoleMaster {
		return models.Request{}, fmt.Errorf("%w: user %s is not a master", ErrInvalidTarget, masterID)
	}

	n, err := s.Store.UpdateRequestIf(ctx, requestID,
		Expect{Statuses: []models.Status{models.StatusNew}},
		Change{Status: models.StatusAssigned, AssignedTo: &masterID},
	)
	if err != nil {
		return models.Request{}, fmt.Errorf("assign request: %w", err)
	}
	if n == 0 {
		if _, err := s.Store.GetRequest(ctx, requestID); err != nil {
			return models.Request{}, err
		}
		return models.Request{}, fmt.Errorf("%w: request can only be assigned from status new", ErrConflict)
	}
	return s.Store.GetRequest(ctx, requestID)
}

// Cancel terminates a request before work begins. Dispatcher only; allowed
// from new and assigned. There is no reversal operation.
func (s *Requests) Cancel(ctx context.Context, requestID string, actor models.Principal) (models.Request, error) {
	if err := requireRole(actor, models.RoleDispatcher); err != nil {
		return models.Request{}, err
	}
	n, err := s.Store.UpdateRequestIf(ctx, requestID,
		Expect{Statuses: []models.Status{models.StatusNew, models.StatusAssigned}},
		Change{Status: models.StatusCanceled},
	)
	if err != nil {
		return models.Request{}, fmt.Errorf("cancel request: %w", err)
	}
	if n == 0 {
		if _, err := s.Store.GetRequest(ctx, requestID); err != nil {
			return models.Request{}, err
		}
		return models.Request{}, fmt.Errorf("%w: request can only be canceled from status new or assigned", ErrConflict)
	}
	return s.Store.GetRequest(ctx, requestID)
}

// Take moves a request from assigned to in_progress. Master only; the caller
// must be the assigned master. The precondition and the write are issued as
// one conditional mutation, so at most one of N concurrent callers wins; the
// re-read below only classifies a loss and is never retried.
func (s *Requests) Take(ctx context.Context, requestID string, actor models.Principal) (models.Request, error) {
	if err := requireRole(actor, models.RoleMaster); err != nil {
		return models.Request{}, err
	}
	takenAt := s.now().UTC()
	n, err := s.Store.UpdateRequestIf(ctx, requestID,
		Expect{Statuses: []models.Status{models.StatusAssigned}, AssignedTo: &actor.ID},
		Change{Status: models.StatusInProgress, TakenAt: &takenAt},
	)
	if err != nil {
		return models.Request{}, fmt.Errorf("take request: %w", err)
	}
	if n != 1 {
		current, err := s.Store.GetRequest(ctx, requestID)
		if err != nil {
			return models.Request{}, err
		}
		if current.AssignedTo == nil || *current.AssignedTo != actor.ID {
			return models.Request{}, fmt.Errorf("%w: request is assigned to a different master", ErrForbidden)
		}
		return models.Request{}, fmt.Errorf("%w: request already taken", ErrConflict)
	}
	return s.Store.GetRequest(ctx, requestID)
}

// Done moves a request from in_progress to done. Master only; the caller must
// be the assigned master.
func (s *Requests) Done(ctx context.Context, requestID string, actor models.Principal) (models.Request, error) {
	if err := requireRole(actor, models.RoleMaster); err != nil {
		return models.Request{}, err
	}
	n, err := s.Store.UpdateRequestIf(ctx, requestID,
		Expect{Statuses: []models.Status{models.StatusInProgress}, AssignedTo: &actor.ID},
		Change{Status: models.StatusDone},
	)
	if err != nil {
		return models.Request{}, fmt.Errorf("complete request: %w", err)
	}
	if n == 0 {
		current, err := s.Store.GetRequest(ctx, requestID)
		if err != nil {
			return models.Request{}, err
		}
		if current.AssignedTo == nil || *current.AssignedTo != actor.ID {
			return models.Request{}, fmt.Errorf("%w: request is assigned to a different master", ErrForbidden)
		}
		return models.Request{}, fmt.Errorf("%w: request can only be completed from status in_progress", ErrConflict)
	}
	return s.Store.GetRequest(ctx, requestID)
}

// ListAll returns every request, newest first, optionally filtered by status.
// Dispatcher only.
func (s *Requests) ListAll(ctx context.Context, actor models.Principal, status *models.Status) ([]models.Request, error) {
	if err := requireRole(actor, models.RoleDispatcher); err != nil {
		return nil, err
	}
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *status)
	}
	return s.Store.ListRequests(ctx, ListFilter{Status: status, OrderBy: OrderCreatedDesc})
}

// ListForMaster returns the requests assigned to masterID, most recently
// updated first. Masters may only query their own assignments, and the status
// filter excludes new because unassigned requests are never visible to them.
func (s *Requests) ListForMaster(ctx context.Context, actor models.Principal, masterID string, status *models.Status) ([]models.Request, error) {
	if err := requireRole(actor, models.RoleMaster); err != nil {
		return nil, err
	}
	if actor.ID != masterID {
		return nil, fmt.Errorf("%w: masters may only list their own requests", ErrForbidden)
	}
	if status != nil && (!status.Valid() || *status == models.StatusNew) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *status)
	}
	return s.Store.ListRequests(ctx, ListFilter{AssignedTo: &masterID, Status: status, OrderBy: OrderUpdatedDesc})
}

func requireRole(actor models.Principal, role models.Role) error {
	if actor.Role != role {
		return fmt.Errorf("%w: %s role required", ErrForbidden, role)
	}
	return nil
}
