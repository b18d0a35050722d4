package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/attendance-api/internal/models"
)

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns the teacher's subjects with pagination.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	conditions := []string{"teacher_id = $1"}
	args := []interface{}{filter.TeacherID}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(code) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	where := strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"name":       "name",
		"code":       "code",
		"created_at": "created_at",
	}
	sortColumn, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortColumn = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	_, size, offset := pageBounds(filter.Page, filter.PageSize, 100, 20)

	query := fmt.Sprintf(`SELECT id, teacher_id, name, code, created_at, updated_at FROM subjects WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`, where, sortColumn, order, size, offset)
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list subjects: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM subjects WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count subjects: %w", err)
	}
	return subjects, total, nil
}

// ListAllByTeacher returns every subject owned by the teacher.
func (r *SubjectRepository) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	const query = `SELECT id, teacher_id, name, code, created_at, updated_at FROM subjects WHERE teacher_id = $1 ORDER BY code`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher subjects: %w", err)
	}
	return subjects, nil
}

// FindByID returns a subject owned by the teacher.
func (r *SubjectRepository) FindByID(ctx context.Context, teacherID, id string) (*models.Subject, error) {
	const query = `SELECT id, teacher_id, name, code, created_at, updated_at FROM subjects WHERE id = $1 AND teacher_id = $2`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id, teacherID); err != nil {
		return nil, err
	}
	return &subject, nil
}

// OwnedIDs returns the subset of ids owned by the teacher.
func (r *SubjectRepository) OwnedIDs(ctx context.Context, teacherID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	const query = `SELECT id FROM subjects WHERE teacher_id = $1 AND id = ANY($2)`
	var owned []string
	if err := r.db.SelectContext(ctx, &owned, query, teacherID, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("check subject ownership: %w", err)
	}
	return owned, nil
}

// CountByTeacher returns the number of subjects owned by the teacher.
func (r *SubjectRepository) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM subjects WHERE teacher_id = $1`, teacherID); err != nil {
		return 0, fmt.Errorf("count subjects: %w", err)
	}
	return total, nil
}

// ExistsByCode checks whether the teacher already uses code, optionally excluding an id.
func (r *SubjectRepository) ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM subjects WHERE teacher_id = $1 AND code = $2"
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
		return false, fmt.Errorf("check subject code: %w", err)
	}
	return true, nil
}

// Create inserts a subject; the id is assigned by the database.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	const query = `INSERT INTO subjects (teacher_id, name, code) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	if err := r.db.QueryRowxContext(ctx, query, subject.TeacherID, subject.Name, subject.Code).
		Scan(&subject.ID, &subject.CreatedAt, &subject.UpdatedAt); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update modifies a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET name = :name, code = :code, updated_at = :updated_at WHERE id = :id AND teacher_id = :teacher_id`
	res, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return requireRows(res, "update subject")
}

// Delete removes a subject; enrollments and check-ins cascade.
func (r *SubjectRepository) Delete(ctx context.Context, teacherID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1 AND teacher_id = $2`, id, teacherID)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireRows(res, "delete subject")
}
