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

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, teacherID, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, teacherID, id string) error
}

// SubjectRequest is the payload for creating or updating a subject.
type SubjectRequest struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,max=32"`
}

func (r *SubjectRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = strings.TrimSpace(r.Code)
}

// SubjectService manages a teacher's subjects.
type SubjectService struct {
	repo      subjectRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs SubjectService.
func NewSubjectService(repo subjectRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns subjects with pagination.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a single subject.
func (s *SubjectService) Get(ctx context.Context, teacherID, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, teacherID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a subject. Codes are unique per teacher.
func (s *SubjectService) Create(ctx context.Context, teacherID string, req SubjectRequest) (*models.Subject, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	code := req.Code
	if err := s.ensureCodeFree(ctx, teacherID, code, ""); err != nil {
		return nil, err
	}
	subject := &models.Subject{TeacherID: teacherID, Name: req.Name, Code: code}
	if err := s.repo.Create(ctx, subject); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	return subject, nil
}

// Update renames or recodes a subject.
func (s *SubjectService) Update(ctx context.Context, teacherID, id string, req SubjectRequest) (*models.Subject, error) {
	req.trim()
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, teacherID, id)
	if err != nil {
		return nil, err
	}
	code := req.Code
	if err := s.ensureCodeFree(ctx, teacherID, code, id); err != nil {
		return nil, err
	}
	subject.Name = req.Name
	subject.Code = code
	if err := s.repo.Update(ctx, subject); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		case isUniqueViolation(err):
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject code already used")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject together with its enrollments and check-ins.
func (s *SubjectService) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.repo.Delete(ctx, teacherID, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	return nil
}

func (s *SubjectService) ensureCodeFree(ctx context.Context, teacherID, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, teacherID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subject code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already used")
	}
	return nil
}
