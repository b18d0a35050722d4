package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type enrollmentRepository interface {
	SubjectIDsForStudent(ctx context.Context, studentID string) ([]string, error)
	StudentIDsForSubject(ctx context.Context, subjectID string) ([]string, error)
	IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error)
	Replace(ctx context.Context, studentID string, subjectIDs []string) (models.EnrollmentDiff, error)
}

type studentReader interface {
	FindByID(ctx context.Context, teacherID, id string) (*models.StudentDetail, error)
}

type subjectReader interface {
	FindByID(ctx context.Context, teacherID, id string) (*models.Subject, error)
	OwnedIDs(ctx context.Context, teacherID string, ids []string) ([]string, error)
}

// SetEnrollmentsRequest carries the complete desired subject set of a student.
type SetEnrollmentsRequest struct {
	SubjectIDs []string `json:"subject_ids" validate:"omitempty,dive,required"`
}

// EnrollmentService answers enrollment membership and performs full-replace writes.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	subjects  subjectReader
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, subjects subjectReader, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, subjects: subjects, cache: cache, validator: validate, logger: logger}
}

// EnrolledSubjectIDs returns the subjects of a student on the teacher's roster.
func (s *EnrollmentService) EnrolledSubjectIDs(ctx context.Context, teacherID, studentID string) ([]string, error) {
	if err := s.ensureStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	ids, err := s.repo.SubjectIDsForStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return normalizeIDs(ids), nil
}

// EnrolledStudentIDs returns the students enrolled in one of the teacher's subjects.
func (s *EnrollmentService) EnrolledStudentIDs(ctx context.Context, teacherID, subjectID string) ([]string, error) {
	if err := s.ensureSubject(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}
	ids, err := s.repo.StudentIDsForSubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	return normalizeIDs(ids), nil
}

// SetEnrollments replaces the student's subjects with exactly req.SubjectIDs.
func (s *EnrollmentService) SetEnrollments(ctx context.Context, teacherID, studentID string, req SetEnrollmentsRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if err := s.ensureStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	desired := normalizeIDs(req.SubjectIDs)
	if err := s.ensureSubjectsOwned(ctx, teacherID, desired); err != nil {
		return nil, err
	}

	diff, err := s.repo.Replace(ctx, studentID, desired)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollments")
	}
	s.cache.InvalidateRoster(ctx, teacherID)
	s.logger.Info("enrollments replaced",
		zap.String("teacher_id", teacherID),
		zap.String("student_id", studentID),
		zap.Strings("added", diff.Added),
		zap.Strings("removed", diff.Removed),
	)
	return &models.Enrollment{StudentID: studentID, SubjectIDs: desired, EnrollmentDiff: diff}, nil
}

// IsEnrolled reports whether the student may be checked in for the subject.
func (s *EnrollmentService) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	ok, err := s.repo.IsEnrolled(ctx, studentID, subjectID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	return ok, nil
}

func (s *EnrollmentService) ensureStudent(ctx context.Context, teacherID, studentID string) error {
	if _, err := s.students.FindByID(ctx, teacherID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func (s *EnrollmentService) ensureSubject(ctx context.Context, teacherID, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, teacherID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}

func (s *EnrollmentService) ensureSubjectsOwned(ctx context.Context, teacherID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	owned, err := s.subjects.OwnedIDs(ctx, teacherID, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate subjects")
	}
	if missing := missingIDs(ids, owned); len(missing) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "unknown subject ids: "+strings.Join(missing, ", ")).WithDetails(map[string][]string{"unknown_subject_ids": missing})
	}
	return nil
}

// normalizeIDs trims, drops blanks, deduplicates and sorts.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func missingIDs(want, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, id := range have {
		present[id] = struct{}{}
	}
	var missing []string
	for _, id := range want {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
