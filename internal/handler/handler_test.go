package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

var (
	adminClaims = &models.JWTClaims{UserID: "admin-user", Role: models.RoleAdmin}
	staffClaims = &models.JWTClaims{UserID: "u1", StaffID: "11111111-1111-4111-8111-111111111111", Role: models.RoleStaff}
)

func newContext(method, target string, body interface{}, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

type fakeLeaveService struct {
	approveActor models.Actor
	approveID    string
	approveReq   models.ApproveLeaveRequest
	result       *models.ApproveLeaveResult
	err          error
}

func (f *fakeLeaveService) List(context.Context, models.Actor, models.LeaveFilter) ([]models.LeaveRequest, error) {
	return nil, f.err
}

func (f *fakeLeaveService) RequestLeave(_ context.Context, actor models.Actor, req models.RequestLeaveRequest, _ models.RequestMeta) (*models.LeaveRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.LeaveRequest{ID: "leave-1", StaffID: actor.StaffID, LeaveType: req.LeaveType, Status: models.LeaveStatusPending}, nil
}

func (f *fakeLeaveService) ApproveLeave(_ context.Context, actor models.Actor, leaveID string, req models.ApproveLeaveRequest, _ models.RequestMeta) (*models.ApproveLeaveResult, error) {
	f.approveActor, f.approveID, f.approveReq = actor, leaveID, req
	return f.result, f.err
}

func (f *fakeLeaveService) RejectLeave(context.Context, models.Actor, string, models.RejectLeaveRequest, models.RequestMeta) (*models.LeaveRequest, error) {
	return nil, f.err
}

func (f *fakeLeaveService) ListAvailableReplacements(context.Context, string) ([]models.Staff, error) {
	return nil, f.err
}

func TestLeaveApprovePassesActorAndBody(t *testing.T) {
	svc := &fakeLeaveService{result: &models.ApproveLeaveResult{
		LeaveRequest:   &models.LeaveRequest{ID: "leave-1", Status: models.LeaveStatusApproved},
		UncoveredDates: []models.Date{mustDate("2024-03-11")},
	}}
	h := NewLeaveHandler(svc)

	replacement := "22222222-2222-4222-8222-222222222222"
	c, rec := newContext(http.MethodPost, "/leave-requests/leave-1/approve", models.ApproveLeaveRequest{ReplacementStaffID: &replacement}, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "leave-1"}}
	h.Approve(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "leave-1", svc.approveID)
	assert.Equal(t, "admin-user", svc.approveActor.UserID)
	require.NotNil(t, svc.approveReq.ReplacementStaffID)
	assert.Equal(t, replacement, *svc.approveReq.ReplacementStaffID)

	var body struct {
		UncoveredDates []string `json:"uncovered_dates"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &body))
	assert.Equal(t, []string{"2024-03-11"}, body.UncoveredDates)
}

func TestLeaveApproveWithoutBody(t *testing.T) {
	svc := &fakeLeaveService{result: &models.ApproveLeaveResult{}}
	h := NewLeaveHandler(svc)

	c, rec := newContext(http.MethodPost, "/leave-requests/leave-1/approve", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "leave-1"}}
	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.approveReq.ReplacementStaffID)
}

func TestLeaveApproveMapsInvalidState(t *testing.T) {
	h := NewLeaveHandler(&fakeLeaveService{err: appErrors.Clone(appErrors.ErrInvalidState, "leave request is no longer pending")})

	c, rec := newContext(http.MethodPost, "/leave-requests/leave-1/approve", nil, adminClaims)
	h.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)
}

func TestLeaveRequestNeedsClaims(t *testing.T) {
	h := NewLeaveHandler(&fakeLeaveService{})
	c, rec := newContext(http.MethodPost, "/leave-requests", map[string]string{"leave_type": "full_day"}, nil)
	h.Request(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaveRequestCreated(t *testing.T) {
	h := NewLeaveHandler(&fakeLeaveService{})
	c, rec := newContext(http.MethodPost, "/leave-requests", map[string]string{
		"leave_type": "full_day", "start_date": "2024-03-10", "end_date": "2024-03-12",
	}, staffClaims)
	h.Request(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	var leave models.LeaveRequest
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &leave))
	assert.Equal(t, staffClaims.StaffID, leave.StaffID)
}

func TestLeaveRequestRejectsBadDate(t *testing.T) {
	h := NewLeaveHandler(&fakeLeaveService{})
	c, rec := newContext(http.MethodPost, "/leave-requests", map[string]string{
		"leave_type": "full_day", "start_date": "10/03/2024",
	}, staffClaims)
	h.Request(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeAttendanceService struct {
	filter models.AttendanceFilter
	marked models.MarkAttendanceRequest
}

func (f *fakeAttendanceService) List(_ context.Context, _ models.Actor, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	f.filter = filter
	return []models.AttendanceRecord{}, nil
}

func (f *fakeAttendanceService) Mark(_ context.Context, actor models.Actor, req models.MarkAttendanceRequest, _ models.RequestMeta) (*models.AttendanceRecord, error) {
	f.marked = req
	return &models.AttendanceRecord{StaffID: actor.StaffID, Status: req.Status}, nil
}

func (f *fakeAttendanceService) Override(context.Context, models.Actor, string, models.OverrideAttendanceRequest, models.RequestMeta) (*models.AttendanceRecord, error) {
	return nil, appErrors.ErrNotFound
}

func TestAttendanceListParsesRange(t *testing.T) {
	svc := &fakeAttendanceService{}
	h := NewAttendanceHandler(svc)

	c, rec := newContext(http.MethodGet, "/attendance?from=2024-03-01&to=2024-03-31", nil, staffClaims)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mustDate("2024-03-01"), svc.filter.From)
	assert.Equal(t, mustDate("2024-03-31"), svc.filter.To)

	c, rec = newContext(http.MethodGet, "/attendance?from=March", nil, staffClaims)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttendanceMarkAndOverride(t *testing.T) {
	svc := &fakeAttendanceService{}
	h := NewAttendanceHandler(svc)

	c, rec := newContext(http.MethodPost, "/attendance", map[string]string{"status": "present"}, staffClaims)
	h.Mark(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.AttendanceStatusPresent, svc.marked.Status)

	c, rec = newContext(http.MethodPost, "/attendance/x/override", map[string]string{"status": "absent", "reason": "late"}, adminClaims)
	h.Override(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeStatsService struct{ hit bool }

func (f *fakeStatsService) Dashboard(context.Context, models.Actor) (*models.Stats, bool, error) {
	return &models.Stats{ActiveStaff: 12, LoggedInStaff: 3}, f.hit, nil
}

func (f *fakeStatsService) Metrics(models.Actor) (models.MetricsSnapshot, error) {
	return models.MetricsSnapshot{RequestsTotal: 5}, nil
}

func TestStatsDashboardReportsCacheHit(t *testing.T) {
	h := NewStatsHandler(&fakeStatsService{hit: true})

	c, rec := newContext(http.MethodGet, "/stats", nil, adminClaims)
	h.Dashboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var stats models.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 12, stats.ActiveStaff)
}

func mustDate(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
