package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/service"
	"github.com/noah-isme/attendance-api/pkg/response"
)

// EnrollmentHandler exposes student/subject membership endpoints.
type EnrollmentHandler struct {
	enrollments *service.EnrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// StudentSubjects godoc
// @Summary List a student's subject ids
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects [get]
func (h *EnrollmentHandler) StudentSubjects(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	ids, err := h.enrollments.EnrolledSubjectIDs(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}

// SetStudentSubjects godoc
// @Summary Replace a student's subjects
// @Description Full replace: afterwards the student is enrolled in exactly the given subjects
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body service.SetEnrollmentsRequest true "Complete subject id list"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects [put]
func (h *EnrollmentHandler) SetStudentSubjects(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	var req service.SetEnrollmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	enrollment, err := h.enrollments.SetEnrollments(c.Request.Context(), teacherID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

// SubjectStudents godoc
// @Summary List student ids enrolled in a subject
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Subject ID"
// @Success 200 {object} response.Envelope
// @Router /subjects/{id}/students [get]
func (h *EnrollmentHandler) SubjectStudents(c *gin.Context) {
	teacherID, ok := teacherFromContext(c)
	if !ok {
		return
	}
	ids, err := h.enrollments.EnrolledStudentIDs(c.Request.Context(), teacherID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ids, nil)
}
