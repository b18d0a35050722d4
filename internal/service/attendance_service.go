package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type checkInRepository interface {
	Upsert(ctx context.Context, checkIn *models.CheckIn) error
	BulkUpsert(ctx context.Context, checkIns []models.CheckIn) error
	List(ctx context.Context, filter models.CheckInFilter) ([]models.CheckIn, error)
	Delete(ctx context.Context, teacherID, id string) error
	CheckedInStudentIDs(ctx context.Context, subjectID, date string) ([]string, error)
}

type rosterReader interface {
	ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Student, error)
	FindByID(ctx context.Context, teacherID, id string) (*models.StudentDetail, error)
}

type enrollmentChecker interface {
	IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error)
	StudentIDsForSubject(ctx context.Context, subjectID string) ([]string, error)
}

type readinessGate interface {
	Require(ctx context.Context, teacherID string) error
}

// RecordCheckInRequest records one student's attendance. Date and time default to now.
type RecordCheckInRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	SubjectID string `json:"subject_id" validate:"required"`
	Date      string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time      string `json:"time" validate:"omitempty,len=5,datetime=15:04"`
	Status    string `json:"status" validate:"required,checkin_status"`
}

// BulkCheckInItem is a single entry of a bulk request.
type BulkCheckInItem struct {
	StudentID string `json:"student_id" validate:"required"`
	Status    string `json:"status" validate:"required,checkin_status"`
	Time      string `json:"time" validate:"omitempty,len=5,datetime=15:04"`
}

// BulkCheckInRequest records attendance for several students of one subject.
type BulkCheckInRequest struct {
	SubjectID string            `json:"subject_id" validate:"required"`
	Date      string            `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Mode      string            `json:"mode" validate:"required,bulk_mode"`
	Items     []BulkCheckInItem `json:"items" validate:"required,min=1,dive"`
}

// BulkCheckInResult summarises a bulk run.
type BulkCheckInResult struct {
	Processed int                             `json:"processed"`
	Success   int                             `json:"success"`
	Conflicts []models.AttendanceBulkConflict `json:"conflicts,omitempty"`
	CheckIns  []models.CheckIn                `json:"check_ins"`
}

// AttendanceListRequest is the raw filter state of the attendance screen.
type AttendanceListRequest struct {
	SubjectID string
	Statuses  []string
	DateRange string
	Search    string
	Sort      string
}

// AttendanceView is the display list with statistics of the whole roster in scope.
type AttendanceView struct {
	Students   []models.StudentAttendance  `json:"students"`
	Statistics models.AttendanceStatistics `json:"statistics"`
	DateFrom   string                      `json:"date_from,omitempty"`
	DateTo     string                      `json:"date_to,omitempty"`
}

// AttendanceService records check-ins and builds attendance views.
type AttendanceService struct {
	checkIns    checkInRepository
	roster      rosterReader
	subjects    subjectReader
	enrollments enrollmentChecker
	readiness   readinessGate
	cache       *CacheService
	metrics     *MetricsService
	location    *time.Location
	now         func() time.Time
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs the attendance service. cache and metrics may be nil.
func NewAttendanceService(checkIns checkInRepository, roster rosterReader, subjects subjectReader, enrollments enrollmentChecker, readiness readinessGate, cache *CacheService, metrics *MetricsService, location *time.Location, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	svc := &AttendanceService{
		checkIns:    checkIns,
		roster:      roster,
		subjects:    subjects,
		enrollments: enrollments,
		readiness:   readiness,
		cache:       cache,
		metrics:     metrics,
		location:    location,
		now:         time.Now,
		validator:   validate,
		logger:      logger,
	}
	_ = svc.validator.RegisterValidation("checkin_status", func(fl validator.FieldLevel) bool {
		return models.CheckInStatus(strings.ToUpper(fl.Field().String())).Recordable()
	})
	_ = svc.validator.RegisterValidation("bulk_mode", func(fl validator.FieldLevel) bool {
		mode := models.BulkOperationMode(fl.Field().String())
		return mode == models.BulkModeAtomic || mode == models.BulkModePartialOnError
	})
	return svc
}

// SetClock overrides the time source.
func (s *AttendanceService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AttendanceService) localNow() time.Time {
	return s.now().In(s.location)
}

// Record writes a check-in after the readiness, ownership and enrollment gates.
func (s *AttendanceService) Record(ctx context.Context, teacherID string, req RecordCheckInRequest) (*models.CheckIn, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	if err := s.readiness.Require(ctx, teacherID); err != nil {
		return nil, err
	}
	if err := s.ensureSubject(ctx, teacherID, req.SubjectID); err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, teacherID, req.StudentID); err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.IsEnrolled(ctx, req.StudentID, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not enrolled in subject")
	}

	now := s.localNow()
	checkIn := &models.CheckIn{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		TeacherID: teacherID,
		Date:      orDefault(req.Date, now.Format(models.DateLayout)),
		Time:      orDefault(req.Time, now.Format(models.TimeLayout)),
		Status:    models.CheckInStatus(strings.ToUpper(req.Status)),
	}
	if err := s.checkIns.Upsert(ctx, checkIn); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}
	s.metrics.RecordCheckIns(*checkIn)
	s.cache.InvalidateStatistics(ctx, teacherID)
	return checkIn, nil
}

// BulkRecord writes check-ins for several students of one subject. In atomic mode the
// first rejected item fails the whole request; otherwise rejected items are reported.
func (s *AttendanceService) BulkRecord(ctx context.Context, teacherID string, req BulkCheckInRequest) (*BulkCheckInResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	if err := s.readiness.Require(ctx, teacherID); err != nil {
		return nil, err
	}
	if err := s.ensureSubject(ctx, teacherID, req.SubjectID); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(req.Items))
	for _, item := range req.Items {
		if _, ok := seen[item.StudentID]; ok {
			return nil, appErrors.Clone(appErrors.ErrConflict, "duplicate student in payload: "+item.StudentID)
		}
		seen[item.StudentID] = struct{}{}
	}

	enrolledIDs, err := s.enrollments.StudentIDsForSubject(ctx, req.SubjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	enrolled := make(map[string]struct{}, len(enrolledIDs))
	for _, id := range enrolledIDs {
		enrolled[id] = struct{}{}
	}

	now := s.localNow()
	date := orDefault(req.Date, now.Format(models.DateLayout))
	atomic := models.BulkOperationMode(req.Mode) == models.BulkModeAtomic
	result := &BulkCheckInResult{Processed: len(req.Items), CheckIns: []models.CheckIn{}}
	records := make([]models.CheckIn, 0, len(req.Items))
	for _, item := range req.Items {
		if _, ok := enrolled[item.StudentID]; !ok {
			if atomic {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("student %s is not enrolled in subject", item.StudentID))
			}
			result.Conflicts = append(result.Conflicts, models.AttendanceBulkConflict{StudentID: item.StudentID, Reason: "not enrolled in subject"})
			continue
		}
		records = append(records, models.CheckIn{
			StudentID: item.StudentID,
			SubjectID: req.SubjectID,
			TeacherID: teacherID,
			Date:      date,
			Time:      orDefault(item.Time, now.Format(models.TimeLayout)),
			Status:    models.CheckInStatus(strings.ToUpper(item.Status)),
		})
	}

	if err := s.checkIns.BulkUpsert(ctx, records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "bulk check-in failed")
	}
	result.Success = len(records)
	result.CheckIns = records
	s.metrics.RecordCheckIns(records...)
	s.cache.InvalidateStatistics(ctx, teacherID)
	s.logger.Info("bulk check-in recorded",
		zap.String("teacher_id", teacherID),
		zap.String("subject_id", req.SubjectID),
		zap.Int("success", result.Success),
		zap.Int("conflicts", len(result.Conflicts)),
	)
	return result, nil
}

// Delete removes a check-in; the student reverts to an inferred absence.
func (s *AttendanceService) Delete(ctx context.Context, teacherID, id string) error {
	if err := s.checkIns.Delete(ctx, teacherID, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "check-in not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete check-in")
	}
	s.cache.InvalidateStatistics(ctx, teacherID)
	return nil
}

// History lists a student's check-ins between optional inclusive dates.
func (s *AttendanceService) History(ctx context.Context, teacherID, studentID, from, to string) ([]models.CheckIn, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DateLayout, d); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
		}
	}
	if err := s.ensureStudent(ctx, teacherID, studentID); err != nil {
		return nil, err
	}
	checkIns, err := s.checkIns.List(ctx, models.CheckInFilter{TeacherID: teacherID, StudentID: studentID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-in history")
	}
	return checkIns, nil
}

// Eligible lists enrolled students of a subject without a check-in on date.
func (s *AttendanceService) Eligible(ctx context.Context, teacherID, subjectID, date string) ([]models.Student, error) {
	if subjectID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject_id is required")
	}
	if date == "" {
		date = s.localNow().Format(models.DateLayout)
	} else if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	if err := s.ensureSubject(ctx, teacherID, subjectID); err != nil {
		return nil, err
	}
	roster, err := s.roster.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	enrolled, err := s.enrollments.StudentIDsForSubject(ctx, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	checkedIn, err := s.checkIns.CheckedInStudentIDs(ctx, subjectID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
	}
	return EligibleStudents(roster, enrolled, checkedIn), nil
}

// ParseAttendanceFilter validates raw filter values. The range defaults to TODAY and
// the sort to NAME_ASC.
func ParseAttendanceFilter(req AttendanceListRequest) (models.AttendanceFilter, error) {
	filter := models.AttendanceFilter{
		SubjectID: strings.TrimSpace(req.SubjectID),
		Search:    req.Search,
		DateRange: models.DateRangeToday,
		Sort:      models.SortNameAsc,
	}
	if req.DateRange != "" {
		filter.DateRange = models.DateRange(strings.ToUpper(req.DateRange))
		if !filter.DateRange.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid date range")
		}
	}
	if req.Sort != "" {
		filter.Sort = models.SortOption(strings.ToUpper(req.Sort))
		if !filter.Sort.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid sort option")
		}
	}
	for _, raw := range req.Statuses {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status := models.CheckInStatus(strings.ToUpper(part))
			if !status.Valid() {
				return filter, appErrors.Clone(appErrors.ErrValidation, "invalid status: "+part)
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	return filter, nil
}

// List builds the attendance display list for the teacher's roster.
func (s *AttendanceService) List(ctx context.Context, teacherID string, req AttendanceListRequest) (*AttendanceView, error) {
	filter, err := ParseAttendanceFilter(req)
	if err != nil {
		return nil, err
	}
	if filter.SubjectID != "" {
		if err := s.ensureSubject(ctx, teacherID, filter.SubjectID); err != nil {
			return nil, err
		}
	}
	now := s.localNow()
	from, to, _ := DateRangeBounds(filter.DateRange, now)

	roster, err := s.roster.ListAllByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	checkIns, err := s.checkIns.List(ctx, models.CheckInFilter{TeacherID: teacherID, SubjectID: filter.SubjectID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
	}

	resolved := ResolveAttendance(roster, checkIns, filter, now)
	rows := FilterAttendance(resolved, filter)
	SortAttendance(rows, filter.Sort)
	return &AttendanceView{
		Students:   rows,
		Statistics: SummarizeAttendance(resolved),
		DateFrom:   from,
		DateTo:     to,
	}, nil
}

// Statistics counts check-in records for a subject and range. The range defaults to ALL.
// The boolean reports whether the result came from cache.
func (s *AttendanceService) Statistics(ctx context.Context, teacherID, subjectID, dateRange string) (*models.AttendanceStatistics, bool, error) {
	r := models.DateRangeAll
	if dateRange != "" {
		r = models.DateRange(strings.ToUpper(dateRange))
		if !r.Valid() {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "invalid date range")
		}
	}
	if subjectID != "" {
		if err := s.ensureSubject(ctx, teacherID, subjectID); err != nil {
			return nil, false, err
		}
	}
	now := s.localNow()
	key := statisticsCacheKey(teacherID, subjectID, string(r), now.Format(models.DateLayout))
	var cached models.AttendanceStatistics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	from, to, _ := DateRangeBounds(r, now)
	checkIns, err := s.checkIns.List(ctx, models.CheckInFilter{TeacherID: teacherID, SubjectID: subjectID, DateFrom: from, DateTo: to})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load check-ins")
	}
	stats := ComputeStatistics(checkIns)
	_ = s.cache.Set(ctx, key, stats, 0)
	return &stats, false, nil
}

func (s *AttendanceService) ensureSubject(ctx context.Context, teacherID, subjectID string) error {
	if _, err := s.subjects.FindByID(ctx, teacherID, subjectID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return nil
}

func (s *AttendanceService) ensureStudent(ctx context.Context, teacherID, studentID string) error {
	if _, err := s.roster.FindByID(ctx, teacherID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
