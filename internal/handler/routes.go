package handler

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the HTTP handlers mounted under the API prefix.
type Handlers struct {
	Auth        *AuthHandler
	Students    *StudentHandler
	Subjects    *SubjectHandler
	Courses     *CourseHandler
	Enrollments *EnrollmentHandler
	Attendance  *AttendanceHandler
	Roster      *RosterHandler
}

// RouteMiddleware carries the middlewares applied to authenticated routes.
type RouteMiddleware struct {
	Auth        gin.HandlerFunc
	Idempotency gin.HandlerFunc
	Audit       func(action string) gin.HandlerFunc
}

func (m RouteMiddleware) write(action string) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, 2)
	if m.Idempotency != nil {
		chain = append(chain, m.Idempotency)
	}
	if m.Audit != nil {
		chain = append(chain, m.Audit(action))
	}
	return chain
}

func with(chain []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	return append(append([]gin.HandlerFunc{}, chain...), h)
}

// Register mounts every API route on r.
func Register(r gin.IRouter, h Handlers, mw RouteMiddleware) {
	auth := r.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	secured := r.Group("")
	if mw.Auth != nil {
		secured.Use(mw.Auth)
	}
	secured.GET("/auth/me", h.Auth.Me)

	students := secured.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", with(mw.write("student.create"), h.Students.Create)...)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", with(mw.write("student.update"), h.Students.Update)...)
	students.DELETE("/:id", with(mw.write("student.delete"), h.Students.Delete)...)
	students.GET("/:id/subjects", h.Enrollments.StudentSubjects)
	students.PUT("/:id/subjects", with(mw.write("enrollment.replace"), h.Enrollments.SetStudentSubjects)...)
	students.GET("/:id/check-ins", h.Attendance.History)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.Subjects.List)
	subjects.POST("", with(mw.write("subject.create"), h.Subjects.Create)...)
	subjects.GET("/:id", h.Subjects.Get)
	subjects.PUT("/:id", with(mw.write("subject.update"), h.Subjects.Update)...)
	subjects.DELETE("/:id", with(mw.write("subject.delete"), h.Subjects.Delete)...)
	subjects.GET("/:id/students", h.Enrollments.SubjectStudents)

	courses := secured.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.POST("", with(mw.write("course.create"), h.Courses.Create)...)
	courses.GET("/:id", h.Courses.Get)
	courses.PUT("/:id", with(mw.write("course.update"), h.Courses.Update)...)
	courses.DELETE("/:id", with(mw.write("course.delete"), h.Courses.Delete)...)
	courses.PUT("/:id/subjects", with(mw.write("course.subjects"), h.Courses.SetSubjects)...)

	attendance := secured.Group("/attendance")
	attendance.GET("", h.Attendance.List)
	attendance.GET("/eligible", h.Attendance.Eligible)
	attendance.GET("/statistics", h.Attendance.Statistics)
	attendance.GET("/readiness", h.Attendance.Readiness)
	attendance.GET("/report", h.Attendance.Report)
	attendance.POST("/check-ins", with(mw.write("checkin.record"), h.Attendance.Record)...)
	attendance.POST("/check-ins/bulk", with(mw.write("checkin.bulk"), h.Attendance.BulkRecord)...)
	attendance.DELETE("/check-ins/:id", with(mw.write("checkin.delete"), h.Attendance.Delete)...)

	roster := secured.Group("/roster")
	roster.GET("/export", h.Roster.Export)
	roster.POST("/import", with(mw.write("roster.import"), h.Roster.Import)...)
}
