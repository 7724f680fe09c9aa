package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
	"github.com/noah-isme/college-staff-api/pkg/storage"
)

type stubAttendanceLister struct {
	records []models.AttendanceRecord
	filter  models.AttendanceFilter
}

func (s *stubAttendanceLister) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	s.filter = filter
	return s.records, nil
}

func TestGenerateAttendanceReportRoundTrip(t *testing.T) {
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	name := "Asha"
	lister := &stubAttendanceLister{records: []models.AttendanceRecord{
		{StaffID: staffAsha, StaffName: &name, Date: mustDate("2024-03-11"), Status: models.AttendanceStatusLeave, IsLocked: true},
	}}
	svc := NewReportService(lister, files, storage.NewSignedURLSigner("secret", time.Hour), nil, nil, ReportServiceConfig{})
	svc.now = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }

	result, err := svc.GenerateAttendance(context.Background(), adminActor, models.AttendanceReportRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, mustDate("2024-03-01"), lister.filter.From)
	assert.Equal(t, mustDate("2024-03-31"), lister.filter.To)
	require.True(t, strings.HasPrefix(result.DownloadURL, "/api/v1/reports/download/"))

	token := strings.TrimPrefix(result.DownloadURL, "/api/v1/reports/download/")
	download, err := svc.Download(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", download.ContentType)
	assert.Contains(t, string(download.Data), "2024-03-11,Asha,leave")
}

func TestGenerateAttendanceReportValidation(t *testing.T) {
	svc := NewReportService(&stubAttendanceLister{}, nil, nil, nil, nil, ReportServiceConfig{})

	_, err := svc.GenerateAttendance(context.Background(), staffActor, models.AttendanceReportRequest{Format: "csv"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.GenerateAttendance(context.Background(), adminActor, models.AttendanceReportRequest{Format: "docx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.GenerateAttendance(context.Background(), adminActor, models.AttendanceReportRequest{
		Format: "pdf", From: mustDate("2024-03-10"), To: mustDate("2024-03-01"),
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestDownloadRejectsBadToken(t *testing.T) {
	svc := NewReportService(&stubAttendanceLister{}, nil, storage.NewSignedURLSigner("secret", time.Hour), nil, nil, ReportServiceConfig{})
	_, err := svc.Download(context.Background(), "bogus")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
