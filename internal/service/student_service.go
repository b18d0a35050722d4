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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, teacherID, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, teacherID string, student *models.Student, subjectIDs []string) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type courseReader interface {
	FindByID(ctx context.Context, teacherID, id string) (*models.Course, error)
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	FirstName  string   `json:"first_name" validate:"required"`
	MiddleName string   `json:"middle_name"`
	LastName   string   `json:"last_name" validate:"required"`
	CourseID   *string  `json:"course_id"`
	SubjectIDs []string `json:"subject_ids" validate:"omitempty,dive,required"`
}

// UpdateStudentRequest holds payload for updating students.
type UpdateStudentRequest struct {
	FirstName  string  `json:"first_name" validate:"required"`
	MiddleName string  `json:"middle_name"`
	LastName   string  `json:"last_name" validate:"required"`
	CourseID   *string `json:"course_id"`
}

func (r *CreateStudentRequest) trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
}

func (r *UpdateStudentRequest) trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.MiddleName = strings.TrimSpace(r.MiddleName)
	r.LastName = strings.TrimSpace(r.LastName)
}

// StudentService handles roster use-cases.
type StudentService struct {
	repo      studentRepository
	subjects  subjectReader
	courses   courseReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, subjects subjectReader, courses courseReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, subjects: subjects, courses: courses, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, teacherID, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, teacherID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create adds a student to the teacher's roster, enrolling it in the given subjects.
func (s *StudentService) Create(ctx context.Context, teacherID string, req CreateStudentRequest) (*models.Student, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	courseID, err := s.resolveCourse(ctx, teacherID, req.CourseID)
	if err != nil {
		return nil, err
	}
	subjectIDs := normalizeIDs(req.SubjectIDs)
	if len(subjectIDs) > 0 {
		owned, err := s.subjects.OwnedIDs(ctx, teacherID, subjectIDs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subjects")
		}
		if missing := missingIDs(subjectIDs, owned); len(missing) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject ids: "+strings.Join(missing, ", ")).WithDetails(map[string][]string{"unknown_subject_ids": missing})
		}
	}

	student := &models.Student{
		FirstName:  req.FirstName,
		MiddleName: req.MiddleName,
		LastName:   req.LastName,
		CourseID:   courseID,
	}
	if err := s.repo.Create(ctx, teacherID, student, subjectIDs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	s.logger.Info("student created", zap.String("teacher_id", teacherID), zap.String("student_id", student.ID))
	return student, nil
}

// Update modifies a student on the teacher's roster.
func (s *StudentService) Update(ctx context.Context, teacherID, id string, req UpdateStudentRequest) (*models.Student, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	existing, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	courseID, err := s.resolveCourse(ctx, teacherID, req.CourseID)
	if err != nil {
		return nil, err
	}
	student := existing.Student
	student.FirstName = req.FirstName
	student.MiddleName = req.MiddleName
	student.LastName = req.LastName
	student.CourseID = courseID
	if err := s.repo.Update(ctx, &student); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return &student, nil
}

// Delete removes a student with its enrollments and check-ins.
func (s *StudentService) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := s.Get(ctx, teacherID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	s.logger.Info("student deleted", zap.String("teacher_id", teacherID), zap.String("student_id", id))
	return nil
}

func (s *StudentService) resolveCourse(ctx context.Context, teacherID string, courseID *string) (*string, error) {
	if courseID == nil || strings.TrimSpace(*courseID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*courseID)
	if _, err := s.courses.FindByID(ctx, teacherID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course id")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return &id, nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
