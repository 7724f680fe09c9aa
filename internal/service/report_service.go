package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
	"github.com/noah-isme/college-staff-api/pkg/export"
	"github.com/noah-isme/college-staff-api/pkg/storage"
)

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type fileStore interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type downloadSigner interface {
	Generate(id, relPath string) (string, time.Time, error)
	Parse(token string) (*storage.DownloadClaims, error)
}

const defaultReportWindowDays = 30

// ReportServiceConfig governs report storage.
type ReportServiceConfig struct {
	// DownloadBaseURL prefixes the signed token in returned links.
	DownloadBaseURL string
	ResultTTL       time.Duration
}

// ReportDownload is a resolved report file.
type ReportDownload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders attendance reports and serves them through signed links.
type ReportService struct {
	attendance attendanceLister
	files      fileStore
	signer     downloadSigner
	renderers  map[export.Format]export.Renderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        ReportServiceConfig
	now        func() time.Time
}

// NewReportService constructs the report service.
func NewReportService(attendance attendanceLister, files fileStore, signer downloadSigner, validate *validator.Validate, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DownloadBaseURL == "" {
		cfg.DownloadBaseURL = "/api/v1/reports/download"
	}
	return &ReportService{
		attendance: attendance,
		files:      files,
		signer:     signer,
		renderers:  export.Renderers(),
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// GenerateAttendance renders attendance rows in the requested range and returns a download link.
// The range defaults to the 30 days ending today.
func (s *ReportService) GenerateAttendance(ctx context.Context, actor models.Actor, req models.AttendanceReportRequest) (*models.ReportResult, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can export reports")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	format := export.Format(req.Format)
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}

	to := req.To
	if to.IsZero() {
		to = models.DateOf(s.now().UTC())
	}
	from := req.From
	if from.IsZero() {
		from = to.AddDays(-defaultReportWindowDays)
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}

	records, err := s.attendance.List(ctx, models.AttendanceFilter{StaffID: req.StaffID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Storage(err, "failed to load attendance")
	}

	data, err := renderer.Render(attendanceDataset(from, to, records))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	id := uuid.NewString()
	relPath, err := s.files.Save(path.Join("attendance", fmt.Sprintf("%s.%s", id, format)), data)
	if err != nil {
		return nil, appErrors.Storage(err, "failed to store report")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("attendance report generated",
		zap.String("report_id", id),
		zap.String("format", string(format)),
		zap.Int("rows", len(records)),
	)
	return &models.ReportResult{
		ID:          id,
		Format:      string(format),
		Rows:        len(records),
		DownloadURL: strings.TrimRight(s.cfg.DownloadBaseURL, "/") + "/" + token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ReportService) Download(ctx context.Context, token string) (*ReportDownload, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	data, err := s.files.Read(claims.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "report not found")
	}
	format := export.Format(strings.TrimPrefix(path.Ext(claims.Path), "."))
	return &ReportDownload{
		Filename:    "attendance-report." + string(format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

// Cleanup removes rendered reports older than the configured TTL.
func (s *ReportService) Cleanup(ctx context.Context) {
	removed, err := s.files.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("report cleanup failed", zap.Error(err))
		return
	}
	if len(removed) > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", len(removed)))
	}
}

func attendanceDataset(from, to models.Date, records []models.AttendanceRecord) export.Dataset {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		name := r.StaffID
		if r.StaffName != nil {
			name = *r.StaffName
		}
		checkIn := ""
		if r.CheckInTime != nil {
			checkIn = r.CheckInTime.String()
		}
		session := ""
		if r.LeaveSession != nil {
			session = string(*r.LeaveSession)
		}
		locked := "no"
		if r.IsLocked {
			locked = "yes"
		}
		rows = append(rows, []string{r.Date.String(), name, string(r.Status), checkIn, session, locked})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Attendance %s to %s", from, to),
		Headers: []string{"Date", "Staff", "Status", "Check-in", "Session", "Locked"},
		Rows:    rows,
	}
}
