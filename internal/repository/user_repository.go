package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/college-staff-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, active, totp_secret, last_login, created_at, updated_at`

// UserRepository provides database access for login accounts and their access logs.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, email, password_hash, full_name, role, active, totp_secret, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :active, :totp_secret, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// SetActive toggles the active flag of a user.
func (r *UserRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	const query = `UPDATE users SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.exec(exec).ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	return nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(result, "update password")
}

// SetTOTPSecret stores (or clears, when secret is nil) the second factor secret.
func (r *UserRepository) SetTOTPSecret(ctx context.Context, id string, secret *string) error {
	const query = `UPDATE users SET totp_secret = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, secret, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return requireAffected(result, "set totp secret")
}

// CreateAccessLog records a login attempt.
func (r *UserRepository) CreateAccessLog(ctx context.Context, log *models.AccessLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.LoginTime.IsZero() {
		log.LoginTime = time.Now().UTC()
	}
	const query = `INSERT INTO access_logs (id, user_id, login_time, ip_address, user_agent, is_successful) VALUES (:id, :user_id, :login_time, :ip_address, :user_agent, :is_successful)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create access log: %w", err)
	}
	return nil
}

// CloseLatestAccessLog sets logout_time on the user's most recent open session.
func (r *UserRepository) CloseLatestAccessLog(ctx context.Context, userID string, ts time.Time) error {
	const query = `
UPDATE access_logs SET logout_time = $2
WHERE id = (
	SELECT id FROM access_logs
	WHERE user_id = $1 AND logout_time IS NULL AND is_successful
	ORDER BY login_time DESC LIMIT 1
)`
	if _, err := r.db.ExecContext(ctx, query, userID, ts); err != nil {
		return fmt.Errorf("close access log: %w", err)
	}
	return nil
}

// ListAccessLogs returns the newest access log entries.
func (r *UserRepository) ListAccessLogs(ctx context.Context, limit int) ([]models.AccessLog, error) {
	const query = `
SELECT al.id, al.user_id, u.email AS user_email, al.login_time, al.logout_time, al.ip_address, al.user_agent, al.is_successful
FROM access_logs al
LEFT JOIN users u ON u.id = al.user_id
ORDER BY al.login_time DESC
LIMIT $1`
	var logs []models.AccessLog
	if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
		return nil, fmt.Errorf("list access logs: %w", err)
	}
	return logs, nil
}

// CountLoggedInStaff counts staff accounts with an open session.
func (r *UserRepository) CountLoggedInStaff(ctx context.Context) (int, error) {
	const query = `
SELECT COUNT(DISTINCT al.user_id)
FROM access_logs al
JOIN users u ON u.id = al.user_id
WHERE al.logout_time IS NULL AND al.is_successful AND u.role = 'STAFF'`
	var count int
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("count logged in staff: %w", err)
	}
	return count, nil
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
