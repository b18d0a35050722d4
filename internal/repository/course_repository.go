package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-api/internal/models"
)

// CourseRepository handles persistence for courses and their subjects.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns the teacher's courses with pagination.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	conditions := []string{"teacher_id = $1"}
	args := []interface{}{filter.TeacherID}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	sortColumn := "name"
	if filter.SortBy == "code" || filter.SortBy == "created_at" {
		sortColumn = filter.SortBy
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize, 100, 20)

	query := fmt.Sprintf(`SELECT id, teacher_id, name, code, created_at, updated_at FROM courses WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, where, sortColumn, order, size, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// ListAllByTeacher returns every course owned by the teacher.
func (r *CourseRepository) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	const query = `SELECT id, teacher_id, name, code, created_at, updated_at FROM courses WHERE teacher_id = $1 ORDER BY code`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher courses: %w", err)
	}
	return courses, nil
}

// FindByID returns a course owned by the teacher.
func (r *CourseRepository) FindByID(ctx context.Context, teacherID, id string) (*models.Course, error) {
	const query = `SELECT id, teacher_id, name, code, created_at, updated_at FROM courses WHERE id = $1 AND teacher_id = $2`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id, teacherID); err != nil {
		return nil, err
	}
	return &course, nil
}

// CountByTeacher returns the number of courses owned by the teacher.
func (r *CourseRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM courses WHERE teacher_id = $1`, teacherID); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return total, nil
}

// ExistsByCode checks whether the teacher already uses code, optionally excluding an id.
func (r *CourseRepository) ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE teacher_id = $1 AND code = $2"
	args := []interface{}{teacherID, code}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a course; the id is assigned by the database.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	const query = `INSERT INTO courses (teacher_id, name, code) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, course.TeacherID, course.Name, course.Code).
		Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, code = :code, updated_at = :updated_at WHERE id = :id AND teacher_id = :teacher_id`
	res, err := r.db.NamedExecContext(ctx, query, course)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return requireRows(res, "update course")
}

// Delete removes a course; students keep their rows with course_id cleared.
func (r *CourseRepository) Delete(ctx context.Context, teacherID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return requireRows(res, "delete course")
}

// SubjectIDs lists the subjects attached to a course.
func (r *CourseRepository) SubjectIDs(ctx context.Context, courseID string) ([]string, error) {
	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT subject_id FROM course_subjects WHERE course_id = $1 ORDER BY subject_id`, courseID); err != nil {
		return nil, fmt.Errorf("list course subjects: %w", err)
	}
	return ids, nil
}

// ReplaceSubjects sets the course's subjects to exactly subjectIDs in one transaction.
func (r *CourseRepository) ReplaceSubjects(ctx context.Context, courseID string, subjectIDs []string) (models.EnrollmentDiff, error) {
	var diff models.EnrollmentDiff
	err := withTx(ctx, r.db, "replace course subjects", func(tx *sqlx.Tx) error {
		added, removed, err := courseSubjects.replace(ctx, tx, courseID, subjectIDs)
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
