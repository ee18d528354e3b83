package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/edumarket-api/internal/models"
	"github.com/edumarket/edumarket-api/internal/service"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
	"github.com/edumarket/edumarket-api/pkg/response"
)

// TeacherHandler wires HTTP endpoints to the roster service.
type TeacherHandler struct {
	service *service.RosterService
}

// NewTeacherHandler creates a new handler.
func NewTeacherHandler(svc *service.RosterService) *TeacherHandler {
	return &TeacherHandler{service: svc}
}

// List godoc
// @Summary List roster teachers
// @Description Public roster listing with subject/search filters
// @Tags Teachers
// @Produce json
// @Param subject_id query string false "Subject filter"
// @Param search query string false "Name search"
// @Param active query bool false "Active filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *TeacherHandler) List(c *gin.Context) {
	filter := models.TeacherFilter{
		SubjectID: c.Query("subject_id"),
		Search:    c.Query("search"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 20),
	}
	if raw := c.Query("active"); raw != "" {
		active := raw == "true"
		filter.Active = &active
	}

	teachers, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teachers, pagination)
}

// Get godoc
// @Summary Get a roster teacher
// @Description Fetch a single roster entry by id
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *TeacherHandler) Get(c *gin.Context) {
	teacher, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teacher, nil)
}

// Eligible godoc
// @Summary List eligible teachers for a subject
// @Description Active teachers covering the subject, roster order preserved
// @Tags Teachers
// @Produce json
// @Param subject_id query string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /teachers/eligible [get]
func (h *TeacherHandler) Eligible(c *gin.Context) {
	teachers, err := h.service.EligibleForSubject(c.Request.Context(), c.Query("subject_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teachers, nil)
}

// Update godoc
// @Summary Update a teacher profile
// @Description Admins may edit anyone; teachers only themselves
// @Tags Teachers
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.UpdateTeacherProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [put]
func (h *TeacherHandler) Update(c *gin.Context) {
	var req service.UpdateTeacherProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	teacher, err := h.service.UpdateProfile(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, teacher, nil)
}

// Deactivate godoc
// @Summary Deactivate a roster teacher
// @Description Removes the teacher from the active roster (admin)
// @Tags Teachers
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /teachers/{id} [delete]
func (h *TeacherHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
