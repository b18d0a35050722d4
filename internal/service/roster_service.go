package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type rosterWriter interface {
	ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Student, error)
	Create(ctx context.Context, teacherID string, student *models.Student, subjectIDs []string) error
}

type subjectCatalog interface {
	ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error)
}

type courseCatalog interface {
	ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Course, error)
	FindByID(ctx context.Context, teacherID, id string) (*models.Course, error)
}

type enrollmentLister interface {
	ListForTeacher(ctx context.Context, teacherID string) ([]models.StudentSubject, error)
}

// RosterService imports and exports rosters as JSON arrays of RosterRecord.
type RosterService struct {
	students    rosterWriter
	subjects    subjectCatalog
	courses     courseCatalog
	enrollments enrollmentLister
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(students rosterWriter, subjects subjectCatalog, courses courseCatalog, enrollments enrollmentLister, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		students:    students,
		subjects:    subjects,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Export returns the teacher's roster ordered by student id.
func (s *RosterService) Export(ctx context.Context, teacherID string) ([]models.RosterRecord, error) {
	students, err := s.students.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	subjects, err := s.subjects.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	courses, err := s.courses.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	enrollments, err := s.enrollments.ListForTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	subjectCodes := make(map[string]string, len(subjects))
	for _, subj := range subjects {
		subjectCodes[subj.ID] = subj.Code
	}
	courseCodes := make(map[string]string, len(courses))
	for _, c := range courses {
		courseCodes[c.ID] = c.Code
	}
	enrolled := make(map[string][]string)
	for _, e := range enrollments {
		if code, ok := subjectCodes[e.SubjectID]; ok {
			enrolled[e.StudentID] = append(enrolled[e.StudentID], code)
		}
	}

	records := make([]models.RosterRecord, 0, len(students))
	for _, st := range students {
		record := models.RosterRecord{
			StudentID:  st.ID,
			FirstName:  st.FirstName,
			MiddleName: st.MiddleName,
			LastName:   st.LastName,
		}
		if st.CourseID != nil {
			record.CourseCode = courseCodes[*st.CourseID]
		}
		if codes := enrolled[st.ID]; len(codes) > 0 {
			sort.Strings(codes)
			record.SubjectCodes = codes
		}
		records = append(records, record)
	}
	return records, nil
}

// Import creates one student per array element. A bad element is reported by index and
// the rest continue. A non-empty courseID assigns every imported student to that course
// and must belong to the teacher.
func (s *RosterService) Import(ctx context.Context, teacherID string, document []byte, courseID string) (*models.RosterImportResult, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(document, &elements); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "roster must be a JSON array")
	}
	if elements == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "roster must be a JSON array")
	}

	var override *string
	if courseID = strings.TrimSpace(courseID); courseID != "" {
		if _, err := s.courses.FindByID(ctx, teacherID, courseID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrValidation, "unknown course id")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		override = &courseID
	}

	subjects, err := s.subjects.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	subjectIDs := make(map[string]string, len(subjects))
	for _, subj := range subjects {
		subjectIDs[subj.Code] = subj.ID
	}
	courseIDs := map[string]string{}
	if override == nil {
		courses, err := s.courses.ListAllByTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
		}
		for _, c := range courses {
			courseIDs[c.Code] = c.ID
		}
	}

	result := &models.RosterImportResult{Total: len(elements), StudentIDs: []string{}}
	for i, raw := range elements {
		id, reason := s.importRecord(ctx, teacherID, raw, override, courseIDs, subjectIDs)
		if reason != "" {
			result.Failed++
			result.Failures = append(result.Failures, models.RosterImportFailure{Index: i, Reason: reason})
			continue
		}
		result.Succeeded++
		result.StudentIDs = append(result.StudentIDs, id)
	}

	if result.Succeeded > 0 {
		s.cache.InvalidateRoster(ctx, teacherID)
	}
	s.metrics.RecordRosterImport(*result)
	s.logger.Info("roster imported",
		zap.String("teacher_id", teacherID),
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *RosterService) importRecord(ctx context.Context, teacherID string, raw json.RawMessage, override *string, courseIDs, subjectIDs map[string]string) (string, string) {
	var record models.RosterRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", "malformed record: " + err.Error()
	}
	record.FirstName = strings.TrimSpace(record.FirstName)
	record.MiddleName = strings.TrimSpace(record.MiddleName)
	record.LastName = strings.TrimSpace(record.LastName)
	if err := s.validator.Struct(record); err != nil {
		return "", "invalid record: " + err.Error()
	}

	courseID := override
	if courseID == nil && record.CourseCode != "" {
		id, ok := courseIDs[record.CourseCode]
		if !ok {
			return "", fmt.Sprintf("unknown course code %q", record.CourseCode)
		}
		courseID = &id
	}

	ids := make([]string, 0, len(record.SubjectCodes))
	for _, code := range record.SubjectCodes {
		id, ok := subjectIDs[code]
		if !ok {
			return "", fmt.Sprintf("unknown subject code %q", code)
		}
		ids = append(ids, id)
	}

	student := &models.Student{
		FirstName:  record.FirstName,
		MiddleName: record.MiddleName,
		LastName:   record.LastName,
		CourseID:   courseID,
	}
	if err := s.students.Create(ctx, teacherID, student, normalizeIDs(ids)); err != nil {
		s.logger.Warn("roster record rejected", zap.Error(err))
		return "", "failed to store record"
	}
	return student.ID, ""
}
