package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-api/internal/models"
)

const studentColumns = `s.id, s.first_name, s.middle_name, s.last_name, s.course_id, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students on the teacher's roster matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN teacher_students ts ON ts.student_id = s.id AND ts.teacher_id = $1 LEFT JOIN courses c ON c.id = s.course_id"
	args := []interface{}{filter.TeacherID}
	conditions := []string{"1=1"}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM student_subjects ss WHERE ss.student_id = s.id AND ss.subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Search != "" {
		n := len(args) + 1
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name) LIKE $%d OR LOWER(s.middle_name) LIKE $%d OR LOWER(s.last_name) LIKE $%d OR LOWER(s.id) LIKE $%d)", n, n, n, n))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base = fmt.Sprintf("%s WHERE %s", base, strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"name":       "s.last_name %[1]s, s.first_name %[1]s",
		"id":         "s.id %[1]s",
		"created_at": "s.created_at %[1]s",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	orderTmpl, ok := allowedSorts[sortBy]
	if !ok {
		orderTmpl = allowedSorts["name"]
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize, 100, 20)

	query := fmt.Sprintf(`SELECT %s, c.name AS course_name, c.code AS course_code
        %s ORDER BY %s LIMIT %d OFFSET %d`, studentColumns, base, fmt.Sprintf(orderTmpl, order), size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAllByTeacher returns the teacher's complete roster ordered by id.
func (r *StudentRepository) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Student, error) {
	query := `SELECT ` + studentColumns + `
        FROM students s JOIN teacher_students ts ON ts.student_id = s.id
        WHERE ts.teacher_id = $1 ORDER BY s.id`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, teacherID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return students, nil
}

// FindByID fetches a student on the teacher's roster.
func (r *StudentRepository) FindByID(ctx context.Context, teacherID, id string) (*models.StudentDetail, error) {
	query := `SELECT ` + studentColumns + `, c.name AS course_name, c.code AS course_code
        FROM students s
        JOIN teacher_students ts ON ts.student_id = s.id AND ts.teacher_id = $1
        LEFT JOIN courses c ON c.id = s.course_id
        WHERE s.id = $2`
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, teacherID, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountByTeacher returns the roster size for a teacher.
func (r *StudentRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM teacher_students WHERE teacher_id = $1`, teacherID); err != nil {
		return 0, fmt.Errorf("count roster: %w", err)
	}
	return total, nil
}

// Create inserts a student, links it to the teacher and enrolls it in subjectIDs atomically.
func (r *StudentRepository) Create(ctx context.Context, teacherID string, student *models.Student, subjectIDs []string) error {
	return withTx(ctx, r.db, "create student", func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO students (first_name, middle_name, last_name, course_id)
        VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
		if err := tx.QueryRowxContext(ctx, insert, student.FirstName, student.MiddleName, student.LastName, student.CourseID).
			Scan(&student.ID, &student.CreatedAt, &student.UpdatedAt); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO teacher_students (teacher_id, student_id) VALUES ($1, $2)`, teacherID, student.ID); err != nil {
			return fmt.Errorf("link student to teacher: %w", err)
		}
		if len(subjectIDs) == 0 {
			return nil
		}
		if _, _, err := studentSubjects.replace(ctx, tx, student.ID, subjectIDs); err != nil {
			return fmt.Errorf("enroll new student: %w", err)
		}
		return nil
	})
}

// Update modifies an existing student.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, middle_name = :middle_name, last_name = :last_name, course_id = :course_id, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRows(res, "update student")
}

// Delete removes a student; enrollments and check-ins cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireRows(res, "delete student")
}
