package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/middleware"
	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/response"
)

type attendanceService interface {
	Record(ctx context.Context, teacherID string, req service.RecordCheckInRequest) (*models.CheckIn, error)
	BulkRecord(ctx context.Context, teacherID string, req service.BulkCheckInRequest) (*service.BulkCheckInResult, error)
	Delete(ctx context.Context, teacherID, id string) error
	History(ctx context.Context, teacherID, studentID, from, to string) ([]models.CheckIn, error)
	Eligible(ctx context.Context, teacherID, subjectID, date string) ([]models.Student, error)
	List(ctx context.Context, teacherID string, req service.AttendanceListRequest) (*service.AttendanceView, error)
	Statistics(ctx context.Context, teacherID, subjectID, dateRange string) (*models.AttendanceStatistics, bool, error)
}

type readinessService interface {
	Evaluate(ctx context.Context, teacherID string) (*models.Readiness, error)
}

type reportService interface {
	AttendanceReport(ctx context.Context, teacherID string, req service.AttendanceListRequest, format string) (*service.ReportFile, error)
}

// AttendanceHandler exposes check-in recording and the attendance views.
type AttendanceHandler struct {
	attendance attendanceService
	readiness  readinessService
	reports    reportService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService, readiness readinessService, reports reportService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, readiness: readiness, reports: reports}
}

func listRequestFromQuery(c *gin.Context) service.AttendanceListRequest {
	return service.AttendanceListRequest{
		SubjectID: c.Query("subject_id"),
		Statuses:  c.QueryArray("status"),
		DateRange: c.Query("range"),
		Search:    c.Query("search"),
		Sort:      c.Query("sort"),
	}
}

// List godoc
// @Summary Attendance display list
// @Description Every roster student with the resolved status, absentees inferred
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param subject_id query string false "Subject ID"
// @Param status query []string false "Statuses to keep (PRESENT, ABSENT, LATE, EXCUSED)" collectionFormat(multi)
// @Param range query string false "TODAY (default), THIS_WEEK, THIS_MONTH or ALL"
// @Param search query string false "Name or student id"
// @Param sort query string false "NAME_ASC (default), NAME_DESC, TIME_ASC, TIME_DESC, STATUS"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	view, err := h.attendance.List(c.Request.Context(), teacherID, listRequestFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Eligible godoc
// @Summary Students awaiting a check-in
// @Description Students enrolled in the subject without a check-in on the date
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param subject_id query string true "Subject ID"
// @Param date query string false "Date (YYYY-MM-DD). Defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/eligible [get]
func (h *AttendanceHandler) Eligible(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	students, err := h.attendance.Eligible(c.Request.Context(), teacherID, c.Query("subject_id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Statistics godoc
// @Summary Attendance statistics
// @Description Counts of check-in records by status with the PRESENT rate
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param subject_id query string false "Subject ID"
// @Param range query string false "TODAY, THIS_WEEK, THIS_MONTH or ALL (default)"
// @Success 200 {object} response.Envelope
// @Router /attendance/statistics [get]
func (h *AttendanceHandler) Statistics(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	stats, cacheHit, err := h.attendance.Statistics(c.Request.Context(), teacherID, c.Query("subject_id"), c.Query("range"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, stats, nil, middleware.ResponseMeta(c))
}

// Readiness godoc
// @Summary Attendance readiness
// @Description Whether the teacher has the students and subjects needed to record attendance
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /attendance/readiness [get]
func (h *AttendanceHandler) Readiness(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	readiness, err := h.readiness.Evaluate(c.Request.Context(), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness, nil)
}

// Report godoc
// @Summary Download attendance report
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param subject_id query string false "Subject ID"
// @Param status query []string false "Statuses to keep" collectionFormat(multi)
// @Param range query string false "Date range"
// @Param search query string false "Name or student id"
// @Param sort query string false "Sort option"
// @Success 200 {file} binary
// @Router /attendance/report [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	file, err := h.reports.AttendanceReport(c.Request.Context(), teacherID, listRequestFromQuery(c), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Record godoc
// @Summary Record a check-in
// @Description Upserts the student's check-in for the subject and date. ABSENT cannot be recorded.
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Duplicate submission guard"
// @Param payload body service.RecordCheckInRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attendance/check-ins [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	var req service.RecordCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	checkIn, err := h.attendance.Record(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, checkIn)
}

// BulkRecord godoc
// @Summary Record check-ins for several students
// @Tags Attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string false "Duplicate submission guard"
// @Param payload body service.BulkCheckInRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-ins/bulk [post]
func (h *AttendanceHandler) BulkRecord(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	var req service.BulkCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.attendance.BulkRecord(c.Request.Context(), teacherID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a check-in
// @Description The student reverts to an inferred absence
// @Tags Attendance
// @Security BearerAuth
// @Param id path string true "Check-in ID"
// @Success 204
// @Router /attendance/check-ins/{id} [delete]
func (h *AttendanceHandler) Delete(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	if err := h.attendance.Delete(c.Request.Context(), teacherID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Student check-in history
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/check-ins [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	checkIns, err := h.attendance.History(c.Request.Context(), teacherID, c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkIns, nil)
}
