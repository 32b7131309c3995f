package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campusworks/timesheet-approval/internal/application/port"
	"github.com/campusworks/timesheet-approval/internal/application/service"
	"github.com/campusworks/timesheet-approval/internal/domain/validation"
	"github.com/campusworks/timesheet-approval/internal/domain/workflow"
)

const actorKey = "actor_id"

// Handlers contains all HTTP request handlers
type Handlers struct {
	timesheetService service.TimesheetService
	approvalService  service.ApprovalService
	payrollService   service.PayrollService
	bounds           validation.Bounds
	logger           Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	timesheetService service.TimesheetService,
	approvalService service.ApprovalService,
	payrollService service.PayrollService,
	bounds validation.Bounds,
	logger Logger,
) *Handlers {
	return &Handlers{
		timesheetService: timesheetService,
		approvalService:  approvalService,
		payrollService:   payrollService,
		bounds:           bounds,
		logger:           logger,
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

// CreateTimesheetRequest is the payload for POST /api/timesheets
type CreateTimesheetRequest struct {
	TutorID     int64  `json:"tutor_id" binding:"required"`
	CourseID    int64  `json:"course_id" binding:"required"`
	WeekStart   string `json:"week_start" binding:"required"`
	Hours       string `json:"hours" binding:"required"`
	HourlyRate  string `json:"hourly_rate" binding:"required"`
	Description string `json:"description"`
}

// UpdateTimesheetRequest is the payload for PUT /api/timesheets/:id
type UpdateTimesheetRequest struct {
	Hours       string `json:"hours" binding:"required"`
	HourlyRate  string `json:"hourly_rate" binding:"required"`
	Description string `json:"description"`
}

// ActionRequest is the payload for POST /api/timesheets/:id/actions
type ActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Comment string `json:"comment"`
}

// requireIdentity extracts the caller identity from the X-User-Id header
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader("X-User-Id"), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{
				Success: false,
				Error:   "missing or invalid X-User-Id header",
			})
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64(actorKey)
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// CreateTimesheet handles POST /api/timesheets
func (h *Handlers) CreateTimesheet(c *gin.Context) {
	var req CreateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		h.badRequest(c, "week_start must be an ISO date (YYYY-MM-DD)")
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		h.badRequest(c, "hours must be a decimal number")
		return
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil {
		h.badRequest(c, "hourly_rate must be a decimal number")
		return
	}

	result, err := h.timesheetService.Create(c.Request.Context(), service.CreateTimesheetInput{
		ActorID:     actorID(c),
		TutorID:     req.TutorID,
		CourseID:    req.CourseID,
		WeekStart:   weekStart,
		Hours:       hours,
		HourlyRate:  rate,
		Description: req.Description,
	})
	if err != nil {
		h.serviceError(c, "Failed to create timesheet", err)
		return
	}

	status := http.StatusCreated
	if result.Timesheet == nil {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, Response{Success: result.Timesheet != nil, Data: result})
}

// GetTimesheet handles GET /api/timesheets/:id
func (h *Handlers) GetTimesheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ts, err := h.timesheetService.Get(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.serviceError(c, "Failed to get timesheet", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ts})
}

// ListTimesheets handles GET /api/timesheets?tutor_id=|course_id=
func (h *Handlers) ListTimesheets(c *gin.Context) {
	if tutorStr := c.Query("tutor_id"); tutorStr != "" {
		tutorID, err := strconv.ParseInt(tutorStr, 10, 64)
		if err != nil {
			h.badRequest(c, "tutor_id must be an integer")
			return
		}
		list, err := h.timesheetService.ListByTutor(c.Request.Context(), actorID(c), tutorID)
		if err != nil {
			h.serviceError(c, "Failed to list timesheets", err)
			return
		}
		c.JSON(http.StatusOK, Response{Success: true, Data: list})
		return
	}

	courseStr := c.Query("course_id")
	if courseStr == "" {
		h.badRequest(c, "either tutor_id or course_id is required")
		return
	}
	courseID, err := strconv.ParseInt(courseStr, 10, 64)
	if err != nil {
		h.badRequest(c, "course_id must be an integer")
		return
	}
	list, err := h.timesheetService.ListByCourse(c.Request.Context(), actorID(c), courseID)
	if err != nil {
		h.serviceError(c, "Failed to list timesheets", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: list})
}

// UpdateTimesheet handles PUT /api/timesheets/:id
func (h *Handlers) UpdateTimesheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateTimesheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		h.badRequest(c, "hours must be a decimal number")
		return
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil {
		h.badRequest(c, "hourly_rate must be a decimal number")
		return
	}

	result, err := h.timesheetService.Update(c.Request.Context(), service.UpdateTimesheetInput{
		ActorID:     actorID(c),
		TimesheetID: id,
		Hours:       hours,
		HourlyRate:  rate,
		Description: req.Description,
	})
	if err != nil {
		h.serviceError(c, "Failed to update timesheet", err)
		return
	}

	status := http.StatusOK
	if result.Timesheet == nil {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, Response{Success: result.Timesheet != nil, Data: result})
}

// DeleteTimesheet handles DELETE /api/timesheets/:id
func (h *Handlers) DeleteTimesheet(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.timesheetService.Delete(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.serviceError(c, "Failed to delete timesheet", err)
		return
	}

	if !result.Decision.Approved() {
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Data: result})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// PerformAction handles POST /api/timesheets/:id/actions
func (h *Handlers) PerformAction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body")
		return
	}

	action := workflow.Action(req.Action)
	if !action.IsValid() || !action.IsTransition() {
		h.badRequest(c, "unknown action: "+req.Action)
		return
	}

	result, err := h.approvalService.PerformAction(c.Request.Context(), id, actorID(c), action, req.Comment)
	if err != nil {
		h.serviceError(c, "Failed to perform action", err)
		return
	}

	if !result.Decision.Approved() {
		c.JSON(http.StatusUnprocessableEntity, Response{Success: false, Data: result})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ValidActions handles GET /api/timesheets/:id/actions
func (h *Handlers) ValidActions(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	actions, err := h.approvalService.ValidActions(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.serviceError(c, "Failed to list valid actions", err)
		return
	}
	if actions == nil {
		actions = []workflow.Action{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: actions})
}

// History handles GET /api/timesheets/:id/history
func (h *Handlers) History(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	records, err := h.approvalService.History(c.Request.Context(), id, actorID(c))
	if err != nil {
		h.serviceError(c, "Failed to get history", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: records})
}

// DashboardSummary handles GET /api/dashboard/summary
func (h *Handlers) DashboardSummary(c *gin.Context) {
	summary, err := h.timesheetService.Summary(c.Request.Context(), actorID(c))
	if err != nil {
		h.serviceError(c, "Failed to build summary", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: summary})
}

// PayrollExport handles GET /api/payroll/export?week_start=YYYY-MM-DD
func (h *Handlers) PayrollExport(c *gin.Context) {
	weekStart, err := time.Parse("2006-01-02", c.Query("week_start"))
	if err != nil {
		h.badRequest(c, "week_start must be an ISO date (YYYY-MM-DD)")
		return
	}

	filename, data, err := h.payrollService.Export(c.Request.Context(), actorID(c), weekStart)
	if err != nil {
		h.serviceError(c, "Failed to export payroll", err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ValidationBounds handles GET /api/config/validation
func (h *Handlers) ValidationBounds(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"min_hours": h.bounds.MinHours.String(),
			"max_hours": h.bounds.MaxHours.String(),
			"min_rate":  h.bounds.MinRate.String(),
			"max_rate":  h.bounds.MaxRate.String(),
		},
	})
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid timesheet id")
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

// serviceError maps application errors to HTTP status codes
func (h *Handlers) serviceError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, port.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "forbidden"})
	case errors.Is(err, port.ErrDuplicateWeek):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	case errors.Is(err, port.ErrStatusConflict):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error(msg, "error", err)
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
