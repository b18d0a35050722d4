package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
)

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "first_name", "middle_name", "last_name", "course_id", "created_at", "updated_at", "course_name", "course_code"}).
		AddRow("STUD-1", "Ada", "", "Lovelace", nil, now, now, nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY s.last_name ASC, s.first_name ASC LIMIT 20 OFFSET 0")).
		WithArgs("teacher-1", "SUBJ-1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s JOIN teacher_students ts")).
		WithArgs("teacher-1", "SUBJ-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{TeacherID: "teacher-1", SubjectID: "SUBJ-1"})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Lovelace, Ada", students[0].FormattedName())
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateEnrollsInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WithArgs("Ada", "", "Lovelace", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("STUD-7", now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO teacher_students (teacher_id, student_id) VALUES ($1, $2)")).
		WithArgs("teacher-1", "STUD-7").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT subject_id FROM student_subjects").
		WithArgs("STUD-7").
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}))
	mock.ExpectExec("INSERT INTO student_subjects").
		WithArgs("STUD-7", "SUBJ-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	student := &models.Student{FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, repo.Create(context.Background(), "teacher-1", student, []string{"SUBJ-1"}))
	assert.Equal(t, "STUD-7", student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreateRollsBackOnLinkFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO students").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("STUD-7", now, now))
	mock.ExpectExec("INSERT INTO teacher_students").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), "teacher-1", &models.Student{FirstName: "Ada", LastName: "Lovelace"}, nil)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
