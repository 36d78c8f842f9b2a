package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oksasatya/go-user-service/internal/application"
	"github.com/oksasatya/go-user-service/internal/domain/entity"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/response"
	"github.com/oksasatya/go-user-service/pkg/validation"
)

// UserService is the account lifecycle the handler drives.
type UserService interface {
	ListPaged(ctx context.Context, pageNumber, pageSize int) (application.Result[entity.PagedResult[entity.User]], error)
	ListAll(ctx context.Context) (application.Result[[]entity.User], error)
	Get(ctx context.Context, id string) (application.Result[*entity.User], error)
	Create(ctx context.Context, in application.UserInput) (application.Result[*entity.User], error)
	Signup(ctx context.Context, in application.UserInput) (application.Result[*entity.User], error)
	Update(ctx context.Context, id string, in application.UserInput) (application.Result[bool], error)
	Delete(ctx context.Context, id string) (application.Result[bool], error)
	RequestPasswordReset(ctx context.Context, userID string) (application.Result[bool], error)
}

// Searcher queries the user search projection.
type Searcher interface {
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

type UserHandler struct {
	Svc    UserService
	Search Searcher
}

// NewUserHandler builds the handler. search may be nil when the projection is disabled.
func NewUserHandler(svc UserService, search Searcher) *UserHandler {
	return &UserHandler{Svc: svc, Search: search}
}

type userRequest struct {
	UserName    string     `json:"userName" binding:"required,email"`
	Password    string     `json:"password" binding:"required,pwd"`
	Email       string     `json:"email" binding:"omitempty,email"`
	Phone       string     `json:"phone" binding:"omitempty,phone"`
	Role        string     `json:"role" binding:"omitempty,max=50"`
	FirstName   string     `json:"firstName" binding:"omitempty,max=100"`
	LastName    string     `json:"lastName" binding:"omitempty,max=100"`
	DateOfBirth *time.Time `json:"dateOfBirth" binding:"omitempty,pastdate"`
	IsActive    bool       `json:"isActive"`
}

func (r userRequest) input() application.UserInput {
	return application.UserInput{
		UserName:    r.UserName,
		Password:    r.Password,
		Email:       r.Email,
		Phone:       r.Phone,
		Role:        r.Role,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		IsActive:    r.IsActive,
	}
}

const msgValidationFailed = "Validation failed"

func bindUser(c *gin.Context) (userRequest, bool) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, validation.ToDetails(err))
		return req, false
	}
	return req, true
}

// pathID reads a non-nil UUID from the :id segment.
func pathID(c *gin.Context) (string, bool) {
	return requireID(c, "id", c.Param("id"))
}

func requireID(c *gin.Context, field, raw string) (string, bool) {
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{field: "must be a valid UUID"})
		return "", false
	}
	return id.String(), true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{key: "must be an integer"})
		return 0, false
	}
	return n, true
}

// respondError maps hard failures to a status. Store details never reach the client.
func respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, application.ErrInvalidPage):
		response.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"page": err.Error()})
	case errors.Is(err, application.ErrUserNotFound):
		response.Error(c, http.StatusNotFound, application.MsgUserNotFound, nil)
	case errors.Is(err, context.Canceled):
		helpers.LogInfo(ctx, "request cancelled", nil)
		response.Error(c, 499, "request cancelled", nil)
	default:
		helpers.LogError(ctx, "request failed", err, nil)
		response.Error(c, http.StatusInternalServerError, "internal server error", nil)
	}
}

// writeResult sends a service result; a NotFound outcome keeps its envelope but
// travels as HTTP 404.
func writeResult[T any](c *gin.Context, okStatus int, res application.Result[T]) {
	status := okStatus
	if res.Outcome == application.OutcomeNotFound {
		status = http.StatusNotFound
	}
	response.Write(c, status, res.Envelope)
}

func (h *UserHandler) List(c *gin.Context) {
	page, ok := queryInt(c, "pageNumber", 1)
	if !ok {
		return
	}
	size, ok := queryInt(c, "pageSize", 10)
	if !ok {
		return
	}
	res, err := h.Svc.ListPaged(c.Request.Context(), page, size)
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) ListAll(c *gin.Context) {
	res, err := h.Svc.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=30")
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) Create(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		return
	}
	res, err := h.Svc.Create(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusCreated, res)
}

func (h *UserHandler) Signup(c *gin.Context) {
	req, ok := bindUser(c)
	if !ok {
		return
	}
	res, err := h.Svc.Signup(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	req, ok := bindUser(c)
	if !ok {
		return
	}
	res, err := h.Svc.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.Svc.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *UserHandler) RequestPasswordReset(c *gin.Context) {
	id, ok := requireID(c, "userId", c.Query("userId"))
	if !ok {
		return
	}
	res, err := h.Svc.RequestPasswordReset(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// SearchUsers queries the projection; with search disabled it returns an empty list.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, msgValidationFailed, map[string]string{"q": "is required"})
		return
	}
	size, ok := queryInt(c, "size", 10)
	if !ok {
		return
	}
	if h.Search == nil {
		response.Write(c, http.StatusOK, response.Success("Search results", []map[string]any{}))
		return
	}
	hits, err := h.Search.Search(c.Request.Context(), q, size)
	if err != nil {
		helpers.LogError(c.Request.Context(), "user search failed", err, map[string]any{"q": q})
		response.Error(c, http.StatusBadGateway, "search unavailable", nil)
		return
	}
	response.Write(c, http.StatusOK, response.Success("Search results", hits))
}
