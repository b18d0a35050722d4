package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendance-api/internal/models"
)

const checkInColumns = `id, student_id, subject_id, teacher_id, check_in_date, check_in_time, status, created_at, updated_at`

// A second check-in for the same (student, subject, date) replaces the first.
const upsertCheckIn = `INSERT INTO check_ins (id, student_id, subject_id, teacher_id, check_in_date, check_in_time, status)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (student_id, subject_id, check_in_date)
    DO UPDATE SET check_in_time = EXCLUDED.check_in_time, status = EXCLUDED.status, teacher_id = EXCLUDED.teacher_id, updated_at = NOW()
    RETURNING ` + checkInColumns

// CheckInRepository persists attendance check-ins.
type CheckInRepository struct {
	db *sqlx.DB
}

// NewCheckInRepository constructs a CheckInRepository.
func NewCheckInRepository(db *sqlx.DB) *CheckInRepository {
	return &CheckInRepository{db: db}
}

type queryerContext interface {
	QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
}

func upsertOne(ctx context.Context, q queryerContext, checkIn *models.CheckIn) error {
	if checkIn.ID == "" {
		checkIn.ID = uuid.NewString()
	}
	return q.QueryRowxContext(ctx, upsertCheckIn,
		checkIn.ID, checkIn.StudentID, checkIn.SubjectID, checkIn.TeacherID, checkIn.Date, checkIn.Time, checkIn.Status,
	).StructScan(checkIn)
}

// Upsert writes a check-in and fills checkIn with the stored row.
func (r *CheckInRepository) Upsert(ctx context.Context, checkIn *models.CheckIn) error {
	if err := upsertOne(ctx, r.db, checkIn); err != nil {
		return fmt.Errorf("upsert check-in: %w", err)
	}
	return nil
}

// BulkUpsert writes every check-in in one transaction.
func (r *CheckInRepository) BulkUpsert(ctx context.Context, checkIns []models.CheckIn) error {
	if len(checkIns) == 0 {
		return nil
	}
	return withTx(ctx, r.db, "bulk check-in", func(tx *sqlx.Tx) error {
		for i := range checkIns {
			if err := upsertOne(ctx, tx, &checkIns[i]); err != nil {
				return fmt.Errorf("bulk upsert check-in %s: %w", checkIns[i].StudentID, err)
			}
		}
		return nil
	})
}

// List returns check-ins matching the filter ordered by date, time and id.
func (r *CheckInRepository) List(ctx context.Context, filter models.CheckInFilter) ([]models.CheckIn, error) {
	conditions := []string{"teacher_id = $1"}
	args := []interface{}{filter.TeacherID}
	add := func(expr string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}
	if filter.SubjectID != "" {
		add("subject_id = $%d", filter.SubjectID)
	}
	if filter.StudentID != "" {
		add("student_id = $%d", filter.StudentID)
	}
	if filter.DateFrom != "" {
		add("check_in_date >= $%d", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("check_in_date <= $%d", filter.DateTo)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}

	query := fmt.Sprintf(`SELECT %s FROM check_ins WHERE %s ORDER BY check_in_date, check_in_time, id`, checkInColumns, strings.Join(conditions, " AND "))
	checkIns := []models.CheckIn{}
	if err := r.db.SelectContext(ctx, &checkIns, query, args...); err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return checkIns, nil
}

// Delete removes a check-in recorded by the teacher.
func (r *CheckInRepository) Delete(ctx context.Context, teacherID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM check_ins WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete check-in: %w", err)
	}
	return requireRows(res, "delete check-in")
}

// CheckedInStudentIDs returns students with a check-in for the subject on date.
func (r *CheckInRepository) CheckedInStudentIDs(ctx context.Context, subjectID, date string) ([]string, error) {
	ids := []string{}
	const query = `SELECT student_id FROM check_ins WHERE subject_id = $1 AND check_in_date = $2 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, subjectID, date); err != nil {
		return nil, fmt.Errorf("list checked-in students: %w", err)
	}
	return ids, nil
}
