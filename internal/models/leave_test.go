package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverageEnd(t *testing.T) {
	start, err := ParseDate("2024-03-11")
	require.NoError(t, err)
	end := start.AddDays(2)
	morning := SessionMorning

	full := LeaveRequest{LeaveType: LeaveTypeFullDay, StartDate: start, EndDate: end}
	assert.Equal(t, end, full.CoverageEnd())

	half := LeaveRequest{LeaveType: LeaveTypeHalfDay, Session: &morning, StartDate: start, EndDate: end}
	assert.Equal(t, start, half.CoverageEnd())

	open := LeaveRequest{LeaveType: LeaveTypeFullDay, StartDate: start}
	assert.Equal(t, start, open.CoverageEnd())
	assert.Len(t, start.DaysThrough(full.CoverageEnd()), 3)
}
