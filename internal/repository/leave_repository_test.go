package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-staff-api/internal/models"
)

var leaveRowColumns = []string{"id", "staff_id", "leave_type", "session", "start_date", "end_date", "reason", "emergency_contact", "status", "approved_by", "admin_comments", "created_at", "updated_at"}

func TestTransitionFromPending(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)UPDATE leave_requests.*WHERE id = \$1 AND status = 'pending'.*RETURNING`).
		WithArgs("l1", models.LeaveStatusApproved, "admin-1", nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(leaveRowColumns).
			AddRow("l1", "s1", "full_day", nil, "2024-03-10", "2024-03-12", nil, nil, "approved", "admin-1", nil, now, now))

	leave, err := repo.TransitionFromPending(context.Background(), nil, "l1", models.LeaveStatusApproved, "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusApproved, leave.Status)
	assert.Equal(t, mustDate("2024-03-12"), leave.EndDate)
	assert.Nil(t, leave.Session)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionFromPendingNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(`UPDATE leave_requests`).WillReturnRows(sqlmock.NewRows(leaveRowColumns))

	_, err := repo.TransitionFromPending(context.Background(), nil, "l1", models.LeaveStatusRejected, "admin-1", nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasApprovedCovering(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (")).
		WithArgs("s2", "2024-03-11").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasApprovedCovering(context.Background(), nil, "s2", mustDate("2024-03-11"))
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveListFiltersByStaff(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM leave_requests lr.*lr.staff_id = \$1.*ORDER BY lr.created_at DESC`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(append(leaveRowColumns, "staff_name")).
			AddRow("l1", "s1", "half_day", "afternoon", "2024-03-11", "2024-03-11", "clinic", nil, "pending", nil, nil, now, now, "Asha"))

	leaves, err := repo.List(context.Background(), models.LeaveFilter{StaffID: "s1"})
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	require.NotNil(t, leaves[0].Session)
	assert.Equal(t, models.SessionAfternoon, *leaves[0].Session)
	assert.NoError(t, mock.ExpectationsWereMet())
}
