package task

import (
	"net/http"
	"strconv"

	"github.com/toolsascode/restorm/internal/api/http/response"
	"github.com/toolsascode/restorm/internal/api/http/validation"
	"github.com/toolsascode/restorm/internal/apperrors"
	"github.com/toolsascode/restorm/internal/config"
	"github.com/toolsascode/restorm/internal/logger"

	"github.com/gin-gonic/gin"
)

// Handler serves the task endpoints
type Handler struct {
	service        *Service
	selectLimit    int
	selectMaxLimit int
	isDesc         bool
}

// NewHandler creates a task handler using the select settings of cfg
func NewHandler(service *Service, cfg config.DBConfig) *Handler {
	if err := validation.Register(); err != nil {
		logger.Warnf("Failed to register validators: %v", err)
	}
	return &Handler{
		service:        service,
		selectLimit:    cfg.SelectLimit,
		selectMaxLimit: cfg.SelectMaxLimit,
		isDesc:         cfg.SelectIsDesc,
	}
}

// RegisterRoutes registers the task routes under group
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	tasks := group.Group("/tasks")
	{
		tasks.GET("", h.list)
		tasks.POST("", h.create)
		tasks.GET("/:task_id", h.get)
		tasks.PUT("/:task_id", h.update)
		tasks.DELETE("/:task_id", h.delete)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(response.RequestIDKey)
}

// list handles GET /tasks with skip/limit pagination
func (h *Handler) list(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, validation.NewError(validation.LocQuery, err))
		return
	}

	limit := query.Limit
	if limit == 0 {
		limit = h.selectLimit
	}
	if h.selectMaxLimit > 0 && limit > h.selectMaxLimit {
		maxLimit := strconv.Itoa(h.selectMaxLimit)
		response.Error(c, apperrors.Newf(apperrors.UnprocessableEntity, validation.Message).
			WithDescription("limit must be less than or equal to "+maxLimit).
			WithDetail([]validation.FieldError{{
				Loc:  []string{validation.LocQuery, "limit"},
				Msg:  "Ensure this value is less than or equal to " + maxLimit + ".",
				Type: "value_error.max",
				Ctx:  map[string]string{"constraint": maxLimit},
			}}))
		return
	}
	isDesc := h.isDesc
	if query.IsDesc != nil {
		isDesc = *query.IsDesc
	}

	// one extra row tells whether a next page exists
	tasks, total, err := h.service.List(c.Request.Context(), requestID(c), Filter{
		Name:   query.Name,
		Point:  query.Point,
		Skip:   query.Skip,
		Limit:  limit + 1,
		IsDesc: isDesc,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	hasNext := len(tasks) > limit
	if hasNext {
		tasks = tasks[:limit]
	}

	items := make([]ListItem, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, ListItem{Task: t, Links: response.Links{Self: c.Request.URL.Path + "/" + t.ID}})
	}

	message := "Not found any task!"
	if len(items) > 0 {
		message = "Successfully retrieved task list."
	}

	listCount := len(items)
	response.Write(c, response.Response{
		Status:     http.StatusOK,
		Message:    message,
		Data:       items,
		Links:      response.PageLinks(c, query.Skip, limit, hasNext, total),
		ListCount:  &listCount,
		TotalCount: &total,
	})
}

// create handles POST /tasks
func (h *Handler) create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.NewError(validation.LocBody, err))
		return
	}

	task, err := h.service.Create(c.Request.Context(), requestID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Successfully created task.", task)
}

func (h *Handler) bindPath(c *gin.Context) (string, bool) {
	var params PathParams
	if err := c.ShouldBindUri(&params); err != nil {
		response.Error(c, validation.NewError(validation.LocPath, err))
		return "", false
	}
	return params.TaskID, true
}

// get handles GET /tasks/:task_id
func (h *Handler) get(c *gin.Context) {
	id, ok := h.bindPath(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), requestID(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Successfully retrieved task info.", task)
}

// update handles PUT /tasks/:task_id, only the fields present in the body change
func (h *Handler) update(c *gin.Context) {
	id, ok := h.bindPath(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.NewError(validation.LocBody, err))
		return
	}

	task, err := h.service.Update(c.Request.Context(), requestID(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Successfully updated task.", task)
}

// delete handles DELETE /tasks/:task_id
func (h *Handler) delete(c *gin.Context) {
	id, ok := h.bindPath(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), requestID(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
