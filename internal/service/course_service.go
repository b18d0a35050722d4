package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, teacherID, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, teacherID, id string) error
	SubjectIDs(ctx context.Context, courseID string) ([]string, error)
	ReplaceSubjects(ctx context.Context, courseID string, subjectIDs []string) (models.EnrollmentDiff, error)
}

// CourseRequest is the payload for creating or updating a course.
type CourseRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,max=32"`
}

func (r *CourseRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.TrimSpace(r.Code)
}

// CourseService manages courses and the subjects attached to them.
type CourseService struct {
	repo      courseRepository
	subjects  subjectReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, subjects subjectReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// List returns courses with pagination.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a course with its subject ids.
func (s *CourseService) Get(ctx context.Context, teacherID, id string) (*models.CourseDetail, error) {
	course, err := s.find(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	ids, err := s.repo.SubjectIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course subjects")
	}
	return &models.CourseDetail{Course: *course, SubjectIDs: ids}, nil
}

// Create adds a course. Codes are unique per teacher.
func (s *CourseService) Create(ctx context.Context, teacherID string, req CourseRequest) (*models.Course, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	code := req.Code
	if err := s.ensureCodeFree(ctx, teacherID, code, ""); err != nil {
		return nil, err
	}
	course := &models.Course{TeacherID: teacherID, Name: req.Name, Code: code}
	if err := s.repo.Create(ctx, course); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	return course, nil
}

// Update renames or recodes a course.
func (s *CourseService) Update(ctx context.Context, teacherID, id string, req CourseRequest) (*models.Course, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.find(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	code := req.Code
	if err := s.ensureCodeFree(ctx, teacherID, code, id); err != nil {
		return nil, err
	}
	course.Name = req.Name
	course.Code = code
	if err := s.repo.Update(ctx, course); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		case isUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course. Its students stay on the roster without a course.
func (s *CourseService) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.repo.Delete(ctx, teacherID, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	return nil
}

// SetSubjects replaces the course's subjects with exactly subjectIDs.
func (s *CourseService) SetSubjects(ctx context.Context, teacherID, id string, req SetEnrollmentsRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject list")
	}
	course, err := s.find(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	desired := normalizeIDs(req.SubjectIDs)
	if len(desired) > 0 {
		owned, err := s.subjects.OwnedIDs(ctx, teacherID, desired)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subjects")
		}
		if missing := missingIDs(desired, owned); len(missing) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject ids: "+strings.Join(missing, ", ")).WithDetails(map[string][]string{"unknown_subject_ids": missing})
		}
	}
	diff, err := s.repo.ReplaceSubjects(ctx, id, desired)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course subjects")
	}
	s.logger.Info("course subjects replaced",
		zap.String("course_id", id),
		zap.Strings("added", diff.Added),
		zap.Strings("removed", diff.Removed),
	)
	return &models.CourseDetail{Course: *course, SubjectIDs: desired}, nil
}

func (s *CourseService) find(ctx context.Context, teacherID, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, teacherID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func (s *CourseService) ensureCodeFree(ctx context.Context, teacherID, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, teacherID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "course code already used")
	}
	return nil
}
