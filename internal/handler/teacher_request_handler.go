package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/service"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
	"github.com/edumarket/edumarket-api/pkg/response"
)

// TeacherRequestHandler wires HTTP endpoints to the vetting service.
type TeacherRequestHandler struct {
	service *service.TeacherRequestService
	roster  *service.RosterService
	metrics *service.MetricsService
}

// NewTeacherRequestHandler creates a new handler. The roster service is used
// to invalidate cached per-subject views after an approval adds a teacher.
func NewTeacherRequestHandler(svc *service.TeacherRequestService, roster *service.RosterService, metrics *service.MetricsService) *TeacherRequestHandler {
	return &TeacherRequestHandler{service: svc, roster: roster, metrics: metrics}
}

// Submit godoc
// @Summary Submit a teacher signup request
// @Description Register a new onboarding request; it stays PENDING until reviewed
// @Tags TeacherRequests
// @Accept json
// @Produce json
// @Param payload body service.SubmitTeacherRequest true "Signup payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teacher-requests [post]
func (h *TeacherRequestHandler) Submit(c *gin.Context) {
	var req service.SubmitTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid signup payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, request)
}

// List godoc
// @Summary List teacher signup requests
// @Description Review queue with optional status filter (admin)
// @Tags TeacherRequests
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /teacher-requests [get]
func (h *TeacherRequestHandler) List(c *gin.Context) {
	filter := models.TeacherRequestFilter{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}
	if status := c.Query("status"); status != "" {
		s := models.TeacherRequestStatus(status)
		filter.Status = &s
	}

	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, pagination)
}

// Approve godoc
// @Summary Approve a teacher signup request
// @Description Accept a PENDING request and add the teacher to the roster
// @Tags TeacherRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher-requests/{id}/approve [post]
func (h *TeacherRequestHandler) Approve(c *gin.Context) {
	teacher, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.roster != nil {
		h.roster.InvalidateEligibleCache(c.Request.Context())
	}

	h.metrics.RecordReview("approved")
	response.JSON(c, http.StatusOK, teacher, nil)
}

// Reject godoc
// @Summary Reject a teacher signup request
// @Description Decline a PENDING request; no roster entry is created
// @Tags TeacherRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /teacher-requests/{id}/reject [post]
func (h *TeacherRequestHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.RecordReview("rejected")
	response.NoContent(c)
}
