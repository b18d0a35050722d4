package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

var (
	noticeNoStudents = models.ReadinessNotice{
		Code:    models.ReadinessNoStudents,
		Title:   "No students yet",
		Message: "Add at least one student to your roster before recording attendance.",
		Action:  "Add a student",
	}
	noticeNoSubjects = models.ReadinessNotice{
		Code:    models.ReadinessNoSubjects,
		Title:   "No subjects yet",
		Message: "Create at least one subject so check-ins have something to attach to.",
		Action:  "Create a subject",
	}
	noticeNoCourses = models.ReadinessNotice{
		Code:    models.ReadinessNoCourses,
		Title:   "No courses yet",
		Message: "Courses are optional but help organise students and subjects.",
		Action:  "Create a course",
	}
)

// EvaluateReadiness derives the attendance gate from roster counts. Courses only
// produce a warning.
func EvaluateReadiness(students, subjects, courses int) models.Readiness {
	if students < 0 {
		students = 0
	}
	if subjects < 0 {
		subjects = 0
	}
	if courses < 0 {
		courses = 0
	}
	readiness := models.Readiness{
		Blockers:     []models.ReadinessNotice{},
		Warnings:     []models.ReadinessNotice{},
		StudentCount: students,
		SubjectCount: subjects,
		CourseCount:  courses,
	}
	if students == 0 {
		readiness.Blockers = append(readiness.Blockers, noticeNoStudents)
	}
	if subjects == 0 {
		readiness.Blockers = append(readiness.Blockers, noticeNoSubjects)
	}
	if courses == 0 {
		readiness.Warnings = append(readiness.Warnings, noticeNoCourses)
	}
	readiness.IsReady = len(readiness.Blockers) == 0
	return readiness
}

type teacherCounter interface {
	CountByTeacher(ctx context.Context, teacherID string) (int, error)
}

// ReadinessService loads roster counts and evaluates the attendance gate.
type ReadinessService struct {
	students teacherCounter
	subjects teacherCounter
	courses  teacherCounter
	cache    *CacheService
	logger   *zap.Logger
}

// NewReadinessService constructs a ReadinessService. cache may be nil.
func NewReadinessService(students, subjects, courses teacherCounter, cache *CacheService, logger *zap.Logger) *ReadinessService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadinessService{students: students, subjects: subjects, courses: courses, cache: cache, logger: logger}
}

// Evaluate returns the teacher's readiness, served from cache when possible.
func (s *ReadinessService) Evaluate(ctx context.Context, teacherID string) (*models.Readiness, error) {
	key := readinessCacheKey(teacherID)
	var cached models.Readiness
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	students, err := s.students.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	subjects, err := s.subjects.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count subjects")
	}
	courses, err := s.courses.CountByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}

	readiness := EvaluateReadiness(students, subjects, courses)
	_ = s.cache.Set(ctx, key, readiness, 0)
	return &readiness, nil
}

// Require returns ErrAttendanceNotAllowed when the teacher is not ready.
func (s *ReadinessService) Require(ctx context.Context, teacherID string) error {
	readiness, err := s.Evaluate(ctx, teacherID)
	if err != nil {
		return err
	}
	if readiness.IsReady {
		return nil
	}
	message := readiness.Blockers[0].Message
	s.logger.Debug("attendance blocked", zap.String("teacher_id", teacherID), zap.String("blocker", string(readiness.Blockers[0].Code)))
	return appErrors.Clone(appErrors.ErrAttendanceNotAllowed, message)
}
