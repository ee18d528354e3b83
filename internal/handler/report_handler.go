package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edumarket/edumarket-api/internal/service"
	"github.com/edumarket/edumarket-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ExportApplications godoc
// @Summary Export applications
// @Description Download the filtered application listing as CSV or PDF (admin)
// @Tags Reports
// @Produce octet-stream
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Param status query string false "Status filter"
// @Param subject_id query string false "Subject filter"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /applications/export [get]
func (h *ReportHandler) ExportApplications(c *gin.Context) {
	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	filter := applicationFilterFromQuery(c)

	file, err := h.service.ExportApplications(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
