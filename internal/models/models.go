package models

import "time"

type Role string

const (
	RoleDispatcher Role = "dispatcher"
	RoleMaster     Role = "master"
)

// Status is the lifecycle state of a repair request.
type Status string

const (
	StatusNew        Status = "new"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCanceled   Status = "canceled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAssigned, StatusInProgress, StatusDone, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusCanceled
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserPublic is the identity shape exposed to other callers.
type UserPublic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID, Name: u.Name, Role: u.Role}
}

// Principal is an authenticated caller for the duration of one operation.
type Principal struct {
	ID   string
	Name string
	Role Role
}

type Request struct {
	ID          string      `json:"id"`
	ClientName  string      `json:"client_name"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	ProblemText string      `json:"problem_text"`
	Status      Status      `json:"status"`
	AssignedTo  *string     `json:"assigned_to"`
	Master      *UserPublic `json:"master,omitempty"`
	TakenAt     *time.Time  `json:"taken_at"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
