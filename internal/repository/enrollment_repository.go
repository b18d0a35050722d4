package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-api/internal/models"
)

// EnrollmentRepository manages the student/subject junction.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// SubjectIDsForStudent returns the subjects a student is enrolled in.
func (r *EnrollmentRepository) SubjectIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT subject_id FROM student_subjects WHERE student_id = $1 ORDER BY subject_id`
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list student subjects: %w", err)
	}
	return ids, nil
}

// StudentIDsForSubject returns the students enrolled in a subject.
func (r *EnrollmentRepository) StudentIDsForSubject(ctx context.Context, subjectID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT student_id FROM student_subjects WHERE subject_id = $1 ORDER BY student_id`
	if err := r.db.SelectContext(ctx, &ids, query, subjectID); err != nil {
		return nil, fmt.Errorf("list subject students: %w", err)
	}
	return ids, nil
}

// IsEnrolled reports whether the pair exists.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	var count int
	const query = `SELECT COUNT(*) FROM student_subjects WHERE student_id = $1 AND subject_id = $2`
	if err := r.db.GetContext(ctx, &count, query, studentID, subjectID); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return count > 0, nil
}

// ListForTeacher returns every enrollment row of the teacher's roster.
func (r *EnrollmentRepository) ListForTeacher(ctx context.Context, teacherID string) ([]models.StudentSubject, error) {
	const query = `SELECT ss.student_id, ss.subject_id, ss.created_at
        FROM student_subjects ss
        JOIN teacher_students ts ON ts.student_id = ss.student_id
        WHERE ts.teacher_id = $1
        ORDER BY ss.student_id, ss.subject_id`
	var rows []models.StudentSubject
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher enrollments: %w", err)
	}
	return rows, nil
}

// Replace sets the student's subjects to exactly subjectIDs in one transaction.
func (r *EnrollmentRepository) Replace(ctx context.Context, studentID string, subjectIDs []string) (models.EnrollmentDiff, error) {
	var diff models.EnrollmentDiff
	err := withTx(ctx, r.db, "replace enrollments", func(tx *sqlx.Tx) error {
		added, removed, err := studentSubjects.replace(ctx, tx, studentID, subjectIDs)
		if err != nil {
			return err
		}
		diff = models.EnrollmentDiff{Added: added, Removed: removed}
		return nil
	})
	if err != nil {
		return models.EnrollmentDiff{}, err
	}
	return diff, nil
}
