package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/college-staff-api/internal/middleware"
	"github.com/noah-isme/college-staff-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Staff         *StaffHandler
	Timetables    *TimetableHandler
	Leaves        *LeaveHandler
	Attendance    *AttendanceHandler
	Assignments   *AssignmentHandler
	Notifications *NotificationHandler
	Audit         *AuditHandler
	Stats         *StatsHandler
	Reports       *ReportHandler
}

// RegisterRoutes mounts the API on group. Every route except login and signed downloads requires a bearer token.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator, recorder middleware.ActivityRecorder) {
	group.POST("/auth/login", h.Auth.Login)
	group.GET("/reports/download/:token", h.Reports.Download)

	secured := group.Group("")
	secured.Use(middleware.JWT(tokens), middleware.Audit(recorder))

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/auth/session", h.Auth.Session)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.POST("/auth/totp", h.Auth.EnrollTOTP)
	secured.DELETE("/auth/totp", h.Auth.DisableTOTP)

	secured.GET("/staff/me", middleware.RequireStaff(), h.Staff.Me)
	secured.GET("/timetables", h.Timetables.List)
	secured.GET("/leave-requests", h.Leaves.List)
	secured.POST("/leave-requests", h.Leaves.Request)
	secured.GET("/attendance", h.Attendance.List)
	secured.POST("/attendance", middleware.RequireStaff(), h.Attendance.Mark)
	secured.GET("/scheduled-classes", h.Assignments.ScheduledClasses)
	secured.GET("/notifications", h.Notifications.List)
	secured.POST("/notifications/:id/read", h.Notifications.MarkRead)

	admin := secured.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))

	admin.GET("/staff", h.Staff.List)
	admin.POST("/staff", h.Staff.Create)
	admin.GET("/staff/:id", h.Staff.Get)
	admin.PUT("/staff/:id", h.Staff.Update)
	admin.DELETE("/staff/:id", h.Staff.Deactivate)

	admin.POST("/timetables", h.Timetables.Create)
	admin.PUT("/timetables/:id", h.Timetables.Update)
	admin.DELETE("/timetables/:id", h.Timetables.Delete)

	admin.POST("/leave-requests/:id/approve", h.Leaves.Approve)
	admin.POST("/leave-requests/:id/reject", h.Leaves.Reject)
	admin.GET("/leave-requests/:id/replacements", h.Leaves.Replacements)

	admin.POST("/attendance/:id/override", h.Attendance.Override)

	admin.GET("/schedule-assignments", h.Assignments.List)
	admin.POST("/schedule-assignments/:id/override", h.Assignments.Override)

	admin.GET("/activity-logs", h.Audit.ActivityLogs)
	admin.GET("/access-logs", h.Audit.AccessLogs)
	admin.GET("/stats", h.Stats.Dashboard)
	admin.GET("/stats/metrics", h.Stats.Metrics)
	admin.POST("/reports/attendance", h.Reports.Attendance)
}
