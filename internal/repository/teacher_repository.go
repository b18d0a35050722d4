package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/attendance-api/internal/models"
)

const teacherColumns = `id, email, password_hash, first_name, middle_name, last_name, created_at, updated_at`

// TeacherRepository persists teacher accounts. Emails are stored lowercased and
// compared case-insensitively.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// FindByID returns sql.ErrNoRows for unknown ids.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByEmail returns sql.ErrNoRows for unknown emails.
func (r *TeacherRepository) FindByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	return r.findOne(ctx, "LOWER(email) = $1", normaliseEmail(email))
}

func (r *TeacherRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.Teacher, error) {
	var teacher models.Teacher
	query := `SELECT ` + teacherColumns + ` FROM teachers WHERE ` + where
	if err := r.db.GetContext(ctx, &teacher, query, arg); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ExistsByEmail checks whether an account already uses email.
func (r *TeacherRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM teachers WHERE LOWER(email) = $1)`
	if err := r.db.GetContext(ctx, &exists, query, normaliseEmail(email)); err != nil {
		return false, fmt.Errorf("check teacher email: %w", err)
	}
	return exists, nil
}

// Create inserts a teacher, assigning an id and timestamps. A taken email surfaces as
// the driver's unique violation.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	teacher.Email = normaliseEmail(teacher.Email)
	teacher.CreatedAt = time.Now().UTC()
	teacher.UpdatedAt = teacher.CreatedAt

	const query = `INSERT INTO teachers (` + teacherColumns + `)
        VALUES (:id, :email, :password_hash, :first_name, :middle_name, :last_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
