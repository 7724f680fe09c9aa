package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/college-staff-api/internal/models"
	appErrors "github.com/noah-isme/college-staff-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetTOTPSecret(ctx context.Context, id string, secret *string) error
	CreateAccessLog(ctx context.Context, log *models.AccessLog) error
	CloseLatestAccessLog(ctx context.Context, userID string, ts time.Time) error
}

type authStaffReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Staff, error)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	Audience          []string
	TOTPIssuer        string
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	staff     authStaffReader
	activity  activityWriter
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, staff authStaffReader, activity activityWriter, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.TOTPIssuer == "" {
		config.TOTPIssuer = config.Issuer
	}
	return &AuthService{
		repo:      repo,
		staff:     staff,
		activity:  activity,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// HashPassword returns the bcrypt hash stored for new accounts.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login authenticates a user and returns an access token. Accounts with a TOTP secret must
// also present a valid one-time code.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordAccess(ctx, user.ID, req, false)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	if user.TOTPSecret != nil && *user.TOTPSecret != "" {
		if req.TOTPCode == "" {
			return nil, appErrors.Clone(appErrors.ErrTOTPRequired, "one-time code required")
		}
		if !s.verifyTOTP(req.TOTPCode, *user.TOTPSecret) {
			s.recordAccess(ctx, user.ID, req, false)
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid one-time code")
		}
	}

	staffID, err := s.staffIDFor(ctx, user)
	if err != nil {
		return nil, err
	}

	accessToken, _, err := s.generateAccessToken(user, staffID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.recordAccess(ctx, user.ID, req, true)

	actor := models.Actor{UserID: user.ID, StaffID: staffID, Role: user.Role}
	meta := models.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}
	if err := s.activity.Create(ctx, nil, activityEntry(actor, models.ActivityLogin, map[string]interface{}{"email": user.Email}, meta)); err != nil {
		s.logger.Warn("failed to record login activity", zap.Error(err))
	}

	return &models.LoginResponse{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:    s.now(),
		User:        userInfo(user, staffID),
	}, nil
}

// Logout closes the caller's most recent open session.
func (s *AuthService) Logout(ctx context.Context, actor models.Actor, meta models.RequestMeta) error {
	if err := s.repo.CloseLatestAccessLog(ctx, actor.UserID, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close session")
	}
	if err := s.activity.Create(ctx, nil, activityEntry(actor, models.ActivityLogout, nil, meta)); err != nil {
		s.logger.Warn("failed to record logout activity", zap.Error(err))
	}
	return nil
}

// Session describes the session represented by validated claims.
func (s *AuthService) Session(ctx context.Context, claims *models.JWTClaims) (*models.SessionInfo, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	info := &models.SessionInfo{Authenticated: true, User: userInfo(user, claims.StaffID)}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// ChangePassword changes the password for the given user ID.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return appErrors.Clone(appErrors.ErrForbidden, "old password does not match")
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return appErrors.Storage(err, "failed to update password")
	}
	return nil
}

// EnrollTOTP provisions a new second-factor secret for the user. Subsequent logins require a code.
func (s *AuthService) EnrollTOTP(ctx context.Context, userID string) (*models.TOTPEnrollment, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.TOTPIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate totp secret")
	}
	secret := key.Secret()
	if err := s.repo.SetTOTPSecret(ctx, user.ID, &secret); err != nil {
		return nil, appErrors.Storage(err, "failed to store totp secret")
	}
	s.logger.Info("totp enrolled", zap.String("user_id", user.ID))
	return &models.TOTPEnrollment{Secret: secret, URL: key.URL()}, nil
}

// DisableTOTP removes the user's second factor after checking a current code.
func (s *AuthService) DisableTOTP(ctx context.Context, userID string, req models.TOTPCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid totp payload")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.TOTPSecret == nil || *user.TOTPSecret == "" {
		return appErrors.Clone(appErrors.ErrInvalidState, "totp is not enabled")
	}
	if !s.verifyTOTP(req.Code, *user.TOTPSecret) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid one-time code")
	}
	if err := s.repo.SetTOTPSecret(ctx, user.ID, nil); err != nil {
		return appErrors.Storage(err, "failed to clear totp secret")
	}
	return nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) staffIDFor(ctx context.Context, user *models.User) (string, error) {
	if s.staff == nil {
		return "", nil
	}
	staff, err := s.staff.FindByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if user.Role == models.RoleStaff {
				return "", appErrors.Clone(appErrors.ErrForbidden, "no staff record for this account")
			}
			return "", nil
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff record")
	}
	return staff.ID, nil
}

func (s *AuthService) recordAccess(ctx context.Context, userID string, req models.LoginRequest, ok bool) {
	log := &models.AccessLog{UserID: &userID, LoginTime: s.now(), IsSuccessful: ok}
	if req.IP != "" {
		log.IPAddress = &req.IP
	}
	if req.UserAgent != "" {
		log.UserAgent = &req.UserAgent
	}
	if err := s.repo.CreateAccessLog(ctx, log); err != nil {
		s.logger.Warn("failed to record access log", zap.Error(err))
	}
}

func (s *AuthService) verifyTOTP(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, s.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

func (s *AuthService) generateAccessToken(user *models.User, staffID string) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		StaffID:  staffID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func userInfo(user *models.User, staffID string) models.UserInfo {
	return models.UserInfo{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     user.Role,
		StaffID:  staffID,
	}
}
