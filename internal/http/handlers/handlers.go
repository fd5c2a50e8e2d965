package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/fixpoint/backend/internal/auth"
	"github.com/fixpoint/backend/internal/db"
	"github.com/fixpoint/backend/internal/http/middleware"
	"github.com/fixpoint/backend/internal/metrics"
	"github.com/fixpoint/backend/internal/models"
	"github.com/fixpoint/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Requests  *service.Requests
	Auth      *auth.Service
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type LoginInput struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// @Summary Log in
// @Description Exchange name and password for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginInput true "credentials"
// @Success 200 {object} auth.LoginResult
// @Failure 401 {object} map[string]any
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	result, err := h.Auth.Login(c.Request.Context(), in.Name, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid name or password", nil)
			return
		}
		h.Logger.Error().Err(err).Msg("login failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Login failed", nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) UsersList(c *gin.Context) {
	users, err := h.Store.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list users", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": users})
}

type CreateRequestInput struct {
	ClientName  string `json:"client_name" validate:"required"`
	Phone       string `json:"phone" validate:"required"`
	Address     string `json:"address" validate:"required"`
	ProblemText string `json:"problem_text" validate:"required"`
}

// @Summary Create repair request
// @Description Register a new repair request in status new; no authentication required
// @Tags requests
// @Accept json
// @Produce json
// @Param body body CreateRequestInput true "request fields"
// @Success 201 {object} models.Request
// @Failure 400 {object} map[string]any
// @Router /requests [post]
func (h *Handler) RequestCreate(c *gin.Context) {
	var in CreateRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		metrics.ObserveTransition("create", metrics.OutcomeValidation)
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	r, err := h.Requests.Create(c.Request.Context(), service.CreateInput{
		ClientName:  in.ClientName,
		Phone:       in.Phone,
		Address:     in.Address,
		ProblemText: in.ProblemText,
	})
	if err != nil {
		h.writeServiceError(c, "create", err)
		return
	}
	metrics.ObserveTransition("create", metrics.OutcomeOK)
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) RequestsList(c *gin.Context) {
	actor, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	items, err := h.Requests.ListAll(c.Request.Context(), actor, statusFilter(c))
	if err != nil {
		h.writeServiceError(c, "list_all", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) MyRequests(c *gin.Context) {
	actor, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	items, err := h.Requests.ListForMaster(c.Request.Context(), actor, actor.ID, statusFilter(c))
	if err != nil {
		h.writeServiceError(c, "list_for_master", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type AssignRequestInput struct {
	MasterID string `json:"master_id" validate:"required"`
}

// @Summary Assign request to a master
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param body body AssignRequestInput true "assign target"
// @Success 200 {object} models.Request
// @Failure 409 {object} map[string]any
// @Router /requests/{id}/assign [post]
func (h *Handler) RequestAssign(c *gin.Context) {
	actor, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	var in AssignRequestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(in); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	r, err := h.Requests.Assign(c.Request.Context(), c.Param("id"), in.MasterID, actor)
	if err != nil {
		h.writeServiceError(c, "assign", err)
		return
	}
	metrics.ObserveTransition("assign", metrics.OutcomeOK)
	c.JSON(http.StatusOK, r)
}

func (h *Handler) RequestCancel(c *gin.Context) {
	h.transition(c, "cancel", h.Requests.Cancel)
}

func (h *Handler) RequestTake(c *gin.Context) {
	h.transition(c, "take", h.Requests.Take)
}

func (h *Handler) RequestDone(c *gin.Context) {
	h.transition(c, "done", h.Requests.Done)
}

func (h *Handler) transition(c *gin.Context, operation string, fn func(context.Context, string, models.Principal) (models.Request, error)) {
	actor, ok := middleware.PrincipalFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
		return
	}
	r, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		h.writeServiceError(c, operation, err)
		return
	}
	metrics.ObserveTransition(operation, metrics.OutcomeOK)
	c.JSON(http.StatusOK, r)
}

// statusFilter passes the raw query value through; the engine validates it.
func statusFilter(c *gin.Context) *models.Status {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	st := models.Status(raw)
	return &st
}

func (h *Handler) writeServiceError(c *gin.Context, operation string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		metrics.ObserveTransition(operation, metrics.OutcomeValidation)
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, service.ErrInvalidTarget):
		metrics.ObserveTransition(operation, metrics.OutcomeInvalidTarget)
		writeError(c, http.StatusBadRequest, "INVALID_TARGET", err.Error(), nil)
	case errors.Is(err, service.ErrForbidden):
		metrics.ObserveTransition(operation, metrics.OutcomeForbidden)
		writeError(c, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, service.ErrNotFound):
		metrics.ObserveTransition(operation, metrics.OutcomeNotFound)
		writeError(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrConflict):
		metrics.ObserveTransition(operation, metrics.OutcomeConflict)
		writeError(c, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		metrics.ObserveTransition(operation, metrics.OutcomeError)
		h.Logger.Error().Err(err).Str("operation", operation).Msg("request operation failed")
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Operation failed", nil)
	}
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
