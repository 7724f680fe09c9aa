package models

import (
	"strings"
	"time"
)

// TimetableSlot is a recurring weekly class taught by a staff member.
type TimetableSlot struct {
	ID         string    `db:"id" json:"id"`
	StaffID    string    `db:"staff_id" json:"staff_id"`
	StaffName  *string   `db:"staff_name" json:"staff_name,omitempty"`
	CourseName string    `db:"course_name" json:"course_name"`
	CourseCode *string   `db:"course_code" json:"course_code,omitempty"`
	DayOfWeek  string    `db:"day_of_week" json:"day_of_week"`
	StartTime  TimeOfDay `db:"start_time" json:"start_time"`
	EndTime    TimeOfDay `db:"end_time" json:"end_time"`
	Classroom  *string   `db:"classroom" json:"classroom,omitempty"`
	Batch      *string   `db:"batch" json:"batch,omitempty"`
	Semester   *string   `db:"semester" json:"semester,omitempty"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Weekday parses DayOfWeek. ok is false for unknown names.
func (t TimetableSlot) Weekday() (time.Weekday, bool) {
	return ParseWeekday(t.DayOfWeek)
}

// OccursOn reports whether the slot repeats on the given date.
func (t TimetableSlot) OccursOn(d Date) bool {
	wd, ok := t.Weekday()
	return ok && wd == d.Weekday()
}

// InSession reports whether the slot starts inside the given half-day session.
func (t TimetableSlot) InSession(session LeaveSession) bool {
	switch session {
	case SessionMorning:
		return t.StartTime.Hour() < SessionBoundaryHour
	case SessionAfternoon:
		return t.StartTime.Hour() >= SessionBoundaryHour
	default:
		return true
	}
}

// ParseWeekday maps an English day name ("Monday", "mon") to a weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if len(n) < 3 {
		return 0, false
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		full := strings.ToLower(wd.String())
		if n == full || n == full[:3] {
			return wd, true
		}
	}
	return 0, false
}

// TimetableFilter captures supported timetable list filters.
type TimetableFilter struct {
	StaffID   string
	DayOfWeek string
	Semester  string
}

// TimetableRequest creates or updates a timetable slot.
type TimetableRequest struct {
	StaffID    string    `json:"staff_id" validate:"required,uuid4"`
	CourseName string    `json:"course_name" validate:"required,max=255"`
	CourseCode *string   `json:"course_code" validate:"omitempty,max=64"`
	DayOfWeek  string    `json:"day_of_week" validate:"required,weekday"`
	StartTime  TimeOfDay `json:"start_time"`
	EndTime    TimeOfDay `json:"end_time"`
	Classroom  *string   `json:"classroom" validate:"omitempty,max=64"`
	Batch      *string   `json:"batch" validate:"omitempty,max=64"`
	Semester   *string   `json:"semester" validate:"omitempty,max=32"`
}
