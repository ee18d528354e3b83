package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/edumarket/edumarket-api/internal/models"
	appErrors "github.com/edumarket/edumarket-api/pkg/errors"
	"github.com/edumarket/edumarket-api/pkg/export"
)

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportCSV ReportFormat = "csv"
	ReportPDF ReportFormat = "pdf"
)

type reportApplicationRepository interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.StudentApplication, int, error)
}

type reportSubjectRepository interface {
	List(ctx context.Context) ([]models.Subject, error)
}

// ReportFile bundles rendered export bytes with HTTP metadata.
type ReportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ReportService renders application listings into downloadable files for the
// admin panel.
type ReportService struct {
	applications reportApplicationRepository
	subjects     reportSubjectRepository
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(applications reportApplicationRepository, subjects reportSubjectRepository, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		applications: applications,
		subjects:     subjects,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

var applicationReportHeaders = []string{"ID", "Student", "Email", "Subject", "Level", "Status", "Teacher", "Room", "Created"}

// ExportApplications renders the filtered application listing in the requested
// format. The filter's pagination fields are ignored so the export always
// covers the full selection.
func (s *ReportService) ExportApplications(ctx context.Context, filter models.ApplicationFilter, format ReportFormat) (*ReportFile, error) {
	filter.PageSize = 100
	var apps []models.StudentApplication
	for page := 1; ; page++ {
		filter.Page = page
		batch, total, err := s.applications.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications for export")
		}
		apps = append(apps, batch...)
		if len(batch) < filter.PageSize || len(apps) >= total {
			break
		}
	}

	subjectNames := map[string]string{}
	if subjects, err := s.subjects.List(ctx); err == nil {
		for _, subject := range subjects {
			subjectNames[subject.ID] = subject.Name
		}
	} else {
		s.logger.Warn("subject lookup failed, export falls back to raw ids", zap.Error(err))
	}

	data := export.Dataset{Headers: applicationReportHeaders}
	for _, app := range apps {
		subject := subjectNames[app.SubjectID]
		if subject == "" {
			subject = app.SubjectID
		}
		teacher := ""
		if app.AssignedTeacherID != nil {
			teacher = *app.AssignedTeacherID
		}
		room := ""
		if app.LessonRoomID != nil {
			room = *app.LessonRoomID
		}
		data.Rows = append(data.Rows, map[string]string{
			"ID":      app.ID,
			"Student": app.StudentName,
			"Email":   app.Email,
			"Subject": subject,
			"Level":   string(app.Level),
			"Status":  string(app.Status),
			"Teacher": teacher,
			"Room":    room,
			"Created": app.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	switch format {
	case ReportCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ReportFile{Filename: "applications.csv", ContentType: "text/csv", Content: content}, nil
	case ReportPDF:
		content, err := s.pdf.Render(data, "Student Applications")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ReportFile{Filename: "applications.pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+strings.TrimSpace(string(format)))
	}
}
