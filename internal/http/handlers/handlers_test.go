package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fixpoint/backend/internal/auth"
	"github.com/fixpoint/backend/internal/http/middleware"
	"github.com/fixpoint/backend/internal/models"
	"github.com/fixpoint/backend/internal/service"
)

type memStore struct {
	mu       sync.Mutex
	requests map[string]models.Request
}

func (m *memStore) InsertRequest(_ context.Context, r models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *memStore) GetRequest(_ context.Context, id string) (models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return models.Request{}, fmt.Errorf("%w: request %s", service.ErrNotFound, id)
	}
	return r, nil
}

func (m *memStore) ListRequests(_ context.Context, f service.ListFilter) ([]models.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Request
	for _, r := range m.requests {
		if f.Status != nil && r.Status != *f.Status {
			continue
		}
		if f.AssignedTo != nil && (r.AssignedTo == nil || *r.AssignedTo != *f.AssignedTo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) UpdateRequestIf(_ context.Context, id string, expect service.Expect, change service.Change) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return 0, nil
	}
	matched := false
	for _, st := range expect.Statuses {
		if r.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return 0, nil
	}
	if expect.AssignedTo != nil && (r.AssignedTo == nil || *r.AssignedTo != *expect.AssignedTo) {
		return 0, nil
	}
	r.Status = change.Status
	if change.AssignedTo != nil {
		r.AssignedTo = change.AssignedTo
	}
	if change.TakenAt != nil {
		r.TakenAt = change.TakenAt
	}
	r.UpdatedAt = r.UpdatedAt.Add(time.Second)
	m.requests[id] = r
	return 1, nil
}

type memUsers struct {
	users map[string]models.User
}

func (m *memUsers) GetUser(_ context.Context, id string) (models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user %s", service.ErrNotFound, id)
	}
	return u, nil
}

func (m *memUsers) GetUserByName(_ context.Context, name string) (models.User, error) {
	for _, u := range m.users {
		if u.Name == name {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: user %s", service.ErrNotFound, name)
}

type testEnv struct {
	router *gin.Engine
	store  *memStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	users := &memUsers{users: map[string]models.User{
		"u-dispatcher": {ID: "u-dispatcher", Name: "dispatcher", Role: models.RoleDispatcher, PasswordHash: hash},
		"u-master1":    {ID: "u-master1", Name: "master1", Role: models.RoleMaster, PasswordHash: hash},
		"u-master2":    {ID: "u-master2", Name: "master2", Role: models.RoleMaster, PasswordHash: hash},
	}}
	store := &memStore{requests: map[string]models.Request{}}
	authSvc := auth.New(users, "test-secret", time.Hour)

	h := &Handler{
		Requests:  service.NewRequests(store, users),
		Auth:      authSvc,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
	}

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/requests", h.RequestCreate)
	authed := r.Group("")
	authed.Use(middleware.Auth(authSvc))
	{
		authed.GET("/requests", h.RequestsList)
		authed.POST("/requests/:id/assign", h.RequestAssign)
		authed.POST("/requests/:id/cancel", h.RequestCancel)
		authed.POST("/requests/:id/take", h.RequestTake)
		authed.POST("/requests/:id/done", h.RequestDone)
		authed.GET("/me/requests", h.MyRequests)
	}

	return &testEnv{router: r, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, name string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", "", gin.H{"name": name, "password": "secret123"})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", name, w.Code, w.Body.String())
	}
	var result auth.LoginResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return result.AccessToken
}

func (e *testEnv) createRequest(t *testing.T) models.Request {
	t.Helper()
	w := e.do(t, http.MethodPost, "/requests", "", gin.H{
		"client_name":  "Ivan",
		"phone":        "+70000000001",
		"address":      "Lenina st. 1",
		"problem_text": "Socket does not work",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create request: expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	var r models.Request
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/requests", "", gin.H{"client_name": "Ivan"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", code)
	}
}

func TestUnauthenticatedListRejected(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/requests", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/auth/login", "", gin.H{"name": "master1", "password": "nope"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	dispatcherToken := env.login(t, "dispatcher")
	masterToken := env.login(t, "master1")

	r := env.createRequest(t)

	w := env.do(t, http.MethodPost, "/requests/"+r.ID+"/assign", dispatcherToken, gin.H{"master_id": "u-master1"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/take", masterToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("take: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// second take loses the precondition and maps to 409
	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/take", masterToken, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second take: expected 409, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %s", code)
	}

	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/done", masterToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("done: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var final models.Request
	if err := json.Unmarshal(w.Body.Bytes(), &final); err != nil {
		t.Fatalf("decode final: %v", err)
	}
	if final.Status != models.StatusDone || final.TakenAt == nil {
		t.Fatalf("unexpected final request: %+v", final)
	}

	stored, err := env.store.GetRequest(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("get stored: %v", err)
	}
	if stored.Status != models.StatusDone {
		t.Fatalf("expected stored status done, got %s", stored.Status)
	}
}

func TestRoleMapping(t *testing.T) {
	env := newTestEnv(t)
	dispatcherToken := env.login(t, "dispatcher")
	masterToken := env.login(t, "master2")

	r := env.createRequest(t)

	// master may not assign
	w := env.do(t, http.MethodPost, "/requests/"+r.ID+"/assign", masterToken, gin.H{"master_id": "u-master2"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("master assign: expected 403, got %d", w.Code)
	}

	// unknown target maps to 400
	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/assign", dispatcherToken, gin.H{"master_id": "u-ghost"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("ghost target: expected 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "INVALID_TARGET" {
		t.Fatalf("expected INVALID_TARGET, got %s", code)
	}

	// wrong master on someone else's request maps to 403
	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/assign", dispatcherToken, gin.H{"master_id": "u-master1"})
	if w.Code != http.StatusOK {
		t.Fatalf("assign: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodPost, "/requests/"+r.ID+"/take", masterToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("wrong master take: expected 403, got %d", w.Code)
	}

	// unknown request maps to 404
	w = env.do(t, http.MethodPost, "/requests/r-ghost/cancel", dispatcherToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing request: expected 404, got %d", w.Code)
	}
}

func TestMyRequestsExcludesNewFilter(t *testing.T) {
	env := newTestEnv(t)
	masterToken := env.login(t, "master1")

	w := env.do(t, http.MethodGet, "/me/requests?status=new", masterToken, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/me/requests?status=assigned", masterToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
}
