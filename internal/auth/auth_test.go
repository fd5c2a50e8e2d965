package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fixpoint/backend/internal/models"
)

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) GetUserByName(_ context.Context, name string) (models.User, error) {
	u, ok := m.users[name]
	if !ok {
		return models.User{}, fmt.Errorf("user %s not found", name)
	}
	return u, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("master123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &memUsers{users: map[string]models.User{
		"master1": {ID: "u-master1", Name: "master1", Role: models.RoleMaster, PasswordHash: hash},
	}}
	return New(users, "test-secret", time.Hour)
}

func TestLoginRoundTrip(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.Login(context.Background(), "master1", "master123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.User.ID != "u-master1" || result.User.Role != models.RoleMaster {
		t.Fatalf("unexpected user: %+v", result.User)
	}

	p, err := svc.Parse(result.AccessToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.ID != "u-master1" || p.Name != "master1" || p.Role != models.RoleMaster {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Login(context.Background(), "master1", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "master123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestParseRejectsForeignToken(t *testing.T) {
	svc := newTestService(t)
	other := New(svc.Users, "other-secret", time.Hour)

	result, err := other.Login(context.Background(), "master1", "master123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Parse(result.AccessToken); err == nil {
		t.Fatalf("expected error parsing token signed with a different secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	svc := newTestService(t)
	svc.Now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	result, err := svc.Login(context.Background(), "master1", "master123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Parse(result.AccessToken); err == nil {
		t.Fatalf("expected error parsing expired token")
	}
}
