package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type mockAuthRepo struct {
	user          *models.User
	findErr       error
	accessLogs    []*models.AccessLog
	closedFor     string
	lastLogin     bool
	updatedHash   string
	totpSecretSet *string
	totpCleared   bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.updatedHash = passwordHash
	return nil
}

func (m *mockAuthRepo) SetTOTPSecret(ctx context.Context, id string, secret *string) error {
	if secret == nil {
		m.totpCleared = true
	}
	m.totpSecretSet = secret
	return nil
}

func (m *mockAuthRepo) CreateAccessLog(ctx context.Context, log *models.AccessLog) error {
	m.accessLogs = append(m.accessLogs, log)
	return nil
}

func (m *mockAuthRepo) CloseLatestAccessLog(ctx context.Context, userID string, ts time.Time) error {
	m.closedFor = userID
	return nil
}

type mockStaffByUser struct {
	staff *models.Staff
}

func (m *mockStaffByUser) FindByUserID(ctx context.Context, userID string) (*models.Staff, error) {
	if m.staff == nil || m.staff.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return m.staff, nil
}

func newAuthUser(t *testing.T, role models.UserRole) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("Demo@123456"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "user-1", Email: "staff1@college.edu", PasswordHash: string(hash), FullName: "Staff One", Role: role, Active: true}
}

func newTestAuthService(repo *mockAuthRepo, staff *mockStaffByUser, store *memStore) *AuthService {
	return NewAuthService(repo, staff, memActivity{store}, nil, nil, AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "college-staff-api",
	})
}

func TestLoginIssuesTokenWithStaffID(t *testing.T) {
	repo := &mockAuthRepo{user: newAuthUser(t, models.RoleStaff)}
	staff := &mockStaffByUser{staff: &models.Staff{ID: staffAsha, UserID: "user-1"}}
	store := newMemStore()
	svc := newTestAuthService(repo, staff, store)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff1@college.edu", Password: "Demo@123456", IP: "10.1.1.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, staffAsha, resp.User.StaffID)
	assert.True(t, repo.lastLogin)
	require.Len(t, repo.accessLogs, 1)
	assert.True(t, repo.accessLogs[0].IsSuccessful)
	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityLogin, store.activity[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: "user-1", StaffID: staffAsha, Role: models.RoleStaff}, claims.Actor())
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := &mockAuthRepo{user: newAuthUser(t, models.RoleStaff)}
	svc := newTestAuthService(repo, &mockStaffByUser{}, newMemStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff1@college.edu", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	require.Len(t, repo.accessLogs, 1)
	assert.False(t, repo.accessLogs[0].IsSuccessful)

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "nobody@college.edu", Password: "wrong"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginInactiveAccount(t *testing.T) {
	user := newAuthUser(t, models.RoleAdmin)
	user.Active = false
	svc := newTestAuthService(&mockAuthRepo{user: user}, &mockStaffByUser{}, newMemStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "Demo@123456"})
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}

func TestLoginStaffWithoutRecordIsForbidden(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{user: newAuthUser(t, models.RoleStaff)}, &mockStaffByUser{}, newMemStore())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "staff1@college.edu", Password: "Demo@123456"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestLoginRequiresTOTPWhenEnrolled(t *testing.T) {
	user := newAuthUser(t, models.RoleAdmin)
	repo := &mockAuthRepo{user: user}
	svc := newTestAuthService(repo, &mockStaffByUser{}, newMemStore())

	enrollment, err := svc.EnrollTOTP(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, repo.totpSecretSet)
	assert.Contains(t, enrollment.URL, "otpauth://totp/")
	user.TOTPSecret = repo.totpSecretSet

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "Demo@123456"})
	assert.True(t, errors.Is(err, appErrors.ErrTOTPRequired))

	code, err := totp.GenerateCode(enrollment.Secret, time.Now().UTC())
	require.NoError(t, err)
	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: user.Email, Password: "Demo@123456", TOTPCode: code})
	require.NoError(t, err)
	assert.Empty(t, resp.User.StaffID)

	require.NoError(t, svc.DisableTOTP(context.Background(), user.ID, models.TOTPCodeRequest{Code: code}))
	assert.True(t, repo.totpCleared)
}

func TestLogoutClosesSession(t *testing.T) {
	repo := &mockAuthRepo{user: newAuthUser(t, models.RoleStaff)}
	store := newMemStore()
	svc := newTestAuthService(repo, &mockStaffByUser{}, store)

	require.NoError(t, svc.Logout(context.Background(), models.Actor{UserID: "user-1", Role: models.RoleStaff}, models.RequestMeta{}))
	assert.Equal(t, "user-1", repo.closedFor)
	require.Len(t, store.activity, 1)
	assert.Equal(t, models.ActivityLogout, store.activity[0].Action)
}

func TestChangePassword(t *testing.T) {
	repo := &mockAuthRepo{user: newAuthUser(t, models.RoleStaff)}
	svc := newTestAuthService(repo, &mockStaffByUser{}, newMemStore())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "nope", NewPassword: "Another@123"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	require.NoError(t, svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "Demo@123456", NewPassword: "Another@123"}))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.updatedHash), []byte("Another@123")))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(&mockAuthRepo{}, nil, newMemStore())
	_, err := svc.ValidateToken("not-a-token")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
