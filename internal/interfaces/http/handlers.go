package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/delegate-desk/internal/application/port"
	"github.com/garyjia/delegate-desk/internal/application/service"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/lifecycle"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	requestService service.RequestService
	draftService   *service.DraftService
	language       string
	version        string
	logger         Logger
	now            func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	requestService service.RequestService,
	draftService *service.DraftService,
	language string,
	version string,
	logger Logger,
) *Handlers {
	if language == "" {
		language = "en"
	}
	return &Handlers{
		requestService: requestService,
		draftService:   draftService,
		language:       language,
		version:        version,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// ListRequestsQuery holds the query parameters of GET /requests
type ListRequestsQuery struct {
	Type       string `form:"type"`
	Status     string `form:"status"`
	Holder     string `form:"holder"`
	DelegateID int64  `form:"delegate_id"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ActorQuery identifies the caller of inbox and actions queries
type ActorQuery struct {
	Role       string `form:"role"`
	DelegateID int64  `form:"delegate_id"`
}

// ViewRequest is the body of POST /requests/:id/view
type ViewRequest struct {
	DelegateID int64 `json:"delegate_id" binding:"required"`
}

// DraftResponse carries a suggested directive text
type DraftResponse struct {
	Text string `json:"text"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: h.now().Format(time.RFC3339),
			Version:   h.version,
		},
	})
}

// CreateInternal handles POST /api/v1/requests/internal
func (h *Handlers) CreateInternal(c *gin.Context) {
	var in service.CreateInternalInput
	if !h.bind(c, &in) {
		return
	}
	req, err := h.requestService.CreateInternal(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, req, err)
}

// CreateEmployee handles POST /api/v1/requests/employee
func (h *Handlers) CreateEmployee(c *gin.Context) {
	var in service.CreateEmployeeInput
	if !h.bind(c, &in) {
		return
	}
	req, err := h.requestService.CreateEmployee(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, req, err)
}

// CreateDirective handles POST /api/v1/requests/directives
func (h *Handlers) CreateDirective(c *gin.Context) {
	var in service.CreateDirectiveInput
	if !h.bind(c, &in) {
		return
	}
	req, err := h.requestService.CreateDirective(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, req, err)
}

// ListRequests handles GET /api/v1/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var q ListRequestsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, fmt.Errorf("%w: invalid query parameters: %v", workflow.ErrValidation, err))
		return
	}

	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	filter := port.RequestFilter{
		Type:   workflow.RequestType(q.Type),
		Status: workflow.State(q.Status),
		Holder: workflow.Role(q.Holder),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.DelegateID > 0 {
		filter.ToDelegateID = &q.DelegateID
	}

	requests, err := h.requestService.List(c.Request.Context(), filter)
	h.respond(c, http.StatusOK, nonNil(requests), err)
}

// GetRequest handles GET /api/v1/requests/:id, where :id is an id or a request number
func (h *Handlers) GetRequest(c *gin.Context) {
	req, err := h.load(c)
	h.respond(c, http.StatusOK, req, err)
}

// GetProgress handles GET /api/v1/requests/:id/progress
func (h *Handlers) GetProgress(c *gin.Context) {
	id, err := h.resolveID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	progress, err := h.requestService.Progress(c.Request.Context(), id)
	h.respond(c, http.StatusOK, progress, err)
}

// GetHistory handles GET /api/v1/requests/:id/history?lang=
func (h *Handlers) GetHistory(c *gin.Context) {
	id, err := h.resolveID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	lines, err := h.requestService.History(c.Request.Context(), id, c.DefaultQuery("lang", h.language))
	h.respond(c, http.StatusOK, lines, err)
}

// AvailableActions handles GET /api/v1/requests/:id/actions?role=|delegate_id=
func (h *Handlers) AvailableActions(c *gin.Context) {
	actor, err := actorFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	req, err := h.load(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, lifecycle.AvailableTriggers(req, actor, h.now()), nil)
}

// Act handles POST /api/v1/requests/:id/actions
func (h *Handlers) Act(c *gin.Context) {
	id, err := h.resolveID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var in service.ActionInput
	if !h.bind(c, &in) {
		return
	}

	result, err := h.requestService.Act(c.Request.Context(), id, in)
	h.respond(c, http.StatusOK, result, err)
}

// MarkViewed handles POST /api/v1/requests/:id/view
func (h *Handlers) MarkViewed(c *gin.Context) {
	id, err := h.resolveID(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	var in ViewRequest
	if !h.bind(c, &in) {
		return
	}

	req, err := h.requestService.MarkDirectiveViewed(c.Request.Context(), id, in.DelegateID)
	h.respond(c, http.StatusOK, req, err)
}

// Inbox handles GET /api/v1/inbox?role=|delegate_id=
func (h *Handlers) Inbox(c *gin.Context) {
	actor, err := actorFromQuery(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	requests, err := h.requestService.Inbox(c.Request.Context(), actor)
	h.respond(c, http.StatusOK, nonNil(requests), err)
}

// ExpiredDirectives handles GET /api/v1/directives/expired
func (h *Handlers) ExpiredDirectives(c *gin.Context) {
	requests, err := h.requestService.ExpiredDirectives(c.Request.Context())
	h.respond(c, http.StatusOK, nonNil(requests), err)
}

// DraftDirective handles POST /api/v1/directives/draft
func (h *Handlers) DraftDirective(c *gin.Context) {
	var in service.DraftRequest
	if !h.bind(c, &in) {
		return
	}
	if in.Language == "" {
		in.Language = h.language
	}

	text, err := h.draftService.Draft(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, DraftResponse{Text: text}, nil)
}

// load fetches the request named by the :id path parameter
func (h *Handlers) load(c *gin.Context) (*entity.Request, error) {
	param := c.Param("id")
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		return h.requestService.Get(c.Request.Context(), id)
	}
	return h.requestService.GetByNumber(c.Request.Context(), param)
}

// resolveID turns the :id path parameter into a request id; request numbers are looked up
func (h *Handlers) resolveID(c *gin.Context) (int64, error) {
	param := c.Param("id")
	if id, err := strconv.ParseInt(param, 10, 64); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("%w: invalid request id %d", workflow.ErrValidation, id)
		}
		return id, nil
	}
	req, err := h.requestService.GetByNumber(c.Request.Context(), param)
	if err != nil {
		return 0, err
	}
	return req.ID, nil
}

func actorFromQuery(c *gin.Context) (entity.Actor, error) {
	var q ActorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return entity.Actor{}, fmt.Errorf("%w: invalid query parameters: %v", workflow.ErrValidation, err)
	}

	switch {
	case q.Role != "" && q.DelegateID != 0:
		return entity.Actor{}, fmt.Errorf("%w: pass either role or delegate_id", workflow.ErrValidation)
	case q.Role != "":
		actor := entity.RoleActor(workflow.Role(q.Role))
		return actor, actor.Validate()
	case q.DelegateID != 0:
		actor := entity.DelegateActor(q.DelegateID)
		return actor, actor.Validate()
	default:
		return entity.Actor{}, fmt.Errorf("%w: role or delegate_id is required", workflow.ErrValidation)
	}
}

func (h *Handlers) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, fmt.Errorf("%w: invalid request body: %v", workflow.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handlers) respond(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(status, Response{Success: true, Data: data})
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		if !errors.Is(err, service.ErrDraftingDisabled) {
			message = "internal error"
		}
	}
	c.JSON(status, Response{Success: false, Error: message})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, service.ErrDraftingDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(requests []*entity.Request) []*entity.Request {
	if requests == nil {
		return []*entity.Request{}
	}
	return requests
}
