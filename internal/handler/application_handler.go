package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/service"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
	"github.com/edumarket/edumarket-api/pkg/response"
)

// ApplicationHandler wires HTTP endpoints to the application service.
type ApplicationHandler struct {
	service *service.ApplicationService
	metrics *service.MetricsService
}

// NewApplicationHandler creates a new handler.
func NewApplicationHandler(svc *service.ApplicationService, metrics *service.MetricsService) *ApplicationHandler {
	return &ApplicationHandler{service: svc, metrics: metrics}
}

// Submit godoc
// @Summary Submit a tutoring application
// @Description Create a new student application; authentication is optional
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body service.SubmitApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req service.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid application payload"))
		return
	}

	app, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordApplicationTransition(string(app.Status))
	response.Created(c, app)
}

// List godoc
// @Summary List applications
// @Description List applications with status/subject filters (admin)
// @Tags Applications
// @Produce json
// @Param status query string false "Status filter"
// @Param subject_id query string false "Subject filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	filter := applicationFilterFromQuery(c)

	apps, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, apps, pagination)
}

// My godoc
// @Summary List own applications
// @Description List applications submitted by the authenticated student
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /applications/my [get]
func (h *ApplicationHandler) My(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	apps, err := h.service.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, apps, nil)
}

// Open godoc
// @Summary List open applications for the current teacher
// @Description NEW applications whose subject the teacher covers
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /applications/open [get]
func (h *ApplicationHandler) Open(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	apps, err := h.service.OpenForTeacher(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, apps, nil)
}

// Assign godoc
// @Summary Assign a teacher to an application
// @Description Bind a teacher and schedule the lesson; the application must still be open
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body object true "Teacher assignment"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/assign [post]
func (h *ApplicationHandler) Assign(c *gin.Context) {
	var payload struct {
		TeacherID string `json:"teacher_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "teacher_id required"))
		return
	}

	app, err := h.service.Assign(c.Request.Context(), c.Param("id"), payload.TeacherID, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordApplicationTransition(string(app.Status))
	response.JSON(c, http.StatusOK, app, nil)
}

// Complete godoc
// @Summary Complete a scheduled lesson
// @Description Move a SCHEDULED application to COMPLETED
// @Tags Applications
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/complete [post]
func (h *ApplicationHandler) Complete(c *gin.Context) {
	app, err := h.service.Complete(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordApplicationTransition(string(app.Status))
	response.JSON(c, http.StatusOK, app, nil)
}

func applicationFilterFromQuery(c *gin.Context) models.ApplicationFilter {
	filter := models.ApplicationFilter{
		SubjectID: c.Query("subject_id"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if status := c.Query("status"); status != "" {
		s := models.ApplicationStatus(status)
		filter.Status = &s
	}
	return filter
}
