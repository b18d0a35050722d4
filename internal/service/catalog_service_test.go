package service

import (
	"context"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

func TestSubjectServiceCodeUniqueness(t *testing.T) {
	repo := newFakeSubjects(models.Subject{ID: "SUBJ-1", TeacherID: "t1", Name: "Maths", Code: "MATH"})
	svc := NewSubjectService(repo, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "t1", SubjectRequest{Name: "More maths", Code: " MATH "})
	assertCode(t, appErrors.ErrConflict, err)

	other, err := svc.Create(ctx, "t2", SubjectRequest{Name: "Maths", Code: "MATH"})
	require.NoError(t, err)
	assert.Equal(t, "t2", other.TeacherID)

	updated, err := svc.Update(ctx, "t1", "SUBJ-1", SubjectRequest{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	assert.Equal(t, "Mathematics", updated.Name)

	_, err = svc.Update(ctx, "t2", "SUBJ-1", SubjectRequest{Name: "x", Code: "Y"})
	assertCode(t, appErrors.ErrNotFound, err)

	_, err = svc.Create(ctx, "t1", SubjectRequest{Name: "", Code: "ART"})
	assertCode(t, appErrors.ErrValidation, err)
}

func TestSubjectServiceDelete(t *testing.T) {
	repo := newFakeSubjects(models.Subject{ID: "SUBJ-1", TeacherID: "t1", Code: "MATH"})
	svc := NewSubjectService(repo, nil, nil, nil)
	assertCode(t, appErrors.ErrNotFound, svc.Delete(context.Background(), "t2", "SUBJ-1"))
	require.NoError(t, svc.Delete(context.Background(), "t1", "SUBJ-1"))
	assert.Empty(t, repo.subjects)
}

func TestCourseServiceSetSubjects(t *testing.T) {
	courses := newFakeCourses(models.Course{ID: "COUR-1", TeacherID: "t1", Code: "G10"})
	subjects := newFakeSubjects(
		models.Subject{ID: "SUBJ-1", TeacherID: "t1"},
		models.Subject{ID: "SUBJ-2", TeacherID: "t1"},
		models.Subject{ID: "SUBJ-9", TeacherID: "t2"},
	)
	svc := NewCourseService(courses, subjects, nil, nil, nil)
	ctx := context.Background()

	detail, err := svc.SetSubjects(ctx, "t1", "COUR-1", SetEnrollmentsRequest{SubjectIDs: []string{"SUBJ-2", "SUBJ-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"SUBJ-1", "SUBJ-2"}, detail.SubjectIDs)

	_, err = svc.SetSubjects(ctx, "t1", "COUR-1", SetEnrollmentsRequest{SubjectIDs: []string{"SUBJ-9"}})
	assertCode(t, appErrors.ErrValidation, err)

	got, err := svc.Get(ctx, "t1", "COUR-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"SUBJ-1", "SUBJ-2"}, got.SubjectIDs)

	_, err = svc.Get(ctx, "t2", "COUR-1")
	assertCode(t, appErrors.ErrNotFound, err)

	_, err = svc.Create(ctx, "t1", CourseRequest{Name: "Grade 10", Code: "G10"})
	assertCode(t, appErrors.ErrConflict, err)
}

func TestStudentServiceCreate(t *testing.T) {
	enrollments := newFakeEnrollments()
	students := newFakeStudents(enrollments)
	subjects := newFakeSubjects(models.Subject{ID: "SUBJ-1", TeacherID: "t1"}, models.Subject{ID: "SUBJ-9", TeacherID: "t2"})
	courses := newFakeCourses(models.Course{ID: "COUR-1", TeacherID: "t1"})
	svc := NewStudentService(students, subjects, courses, nil, nil, nil)
	ctx := context.Background()

	course := "COUR-1"
	student, err := svc.Create(ctx, "t1", CreateStudentRequest{FirstName: " Ada ", LastName: "Abbott", CourseID: &course, SubjectIDs: []string{"SUBJ-1"}})
	require.NoError(t, err)
	assert.Equal(t, "Ada", student.FirstName)
	assert.Equal(t, "COUR-1", *student.CourseID)
	ok, _ := enrollments.IsEnrolled(ctx, student.ID, "SUBJ-1")
	assert.True(t, ok)

	_, err = svc.Create(ctx, "t1", CreateStudentRequest{FirstName: "Ben", LastName: "Baker", SubjectIDs: []string{"SUBJ-9"}})
	assertCode(t, appErrors.ErrValidation, err)

	missing := "COUR-404"
	_, err = svc.Create(ctx, "t1", CreateStudentRequest{FirstName: "Ben", LastName: "Baker", CourseID: &missing})
	assertCode(t, appErrors.ErrValidation, err)

	updated, err := svc.Update(ctx, "t1", student.ID, UpdateStudentRequest{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.Nil(t, updated.CourseID)

	require.NoError(t, svc.Delete(ctx, "t1", student.ID))
	_, err = svc.Get(ctx, "t1", student.ID)
	assertCode(t, appErrors.ErrNotFound, err)
}

func TestCatalogRejectsBlankFields(t *testing.T) {
	ctx := context.Background()
	subjects := newFakeSubjects(models.Subject{ID: "SUBJ-1", TeacherID: "t1", Name: "Maths", Code: "MATH"})
	courses := newFakeCourses(models.Course{ID: "COUR-1", TeacherID: "t1", Name: "Grade 10", Code: "G10"})
	students := newFakeStudents(newFakeEnrollments(), models.Student{ID: "STUD-1", FirstName: "Ada", LastName: "Abbott"})
	subjectSvc := NewSubjectService(subjects, nil, nil, nil)
	courseSvc := NewCourseService(courses, subjects, nil, nil, nil)
	studentSvc := NewStudentService(students, subjects, courses, nil, nil, nil)

	cases := []struct {
		name string
		call func() error
	}{
		{"subject create blank name", func() error {
			_, err := subjectSvc.Create(ctx, "t1", SubjectRequest{Name: "   ", Code: "ART"})
			return err
		}},
		{"subject create blank code", func() error {
			_, err := subjectSvc.Create(ctx, "t1", SubjectRequest{Name: "Art", Code: " \t "})
			return err
		}},
		{"subject update blank name", func() error {
			_, err := subjectSvc.Update(ctx, "t1", "SUBJ-1", SubjectRequest{Name: "  ", Code: "MATH"})
			return err
		}},
		{"course create blank name", func() error {
			_, err := courseSvc.Create(ctx, "t1", CourseRequest{Name: "  ", Code: "G11"})
			return err
		}},
		{"course create blank code", func() error {
			_, err := courseSvc.Create(ctx, "t1", CourseRequest{Name: "Grade 11", Code: "   "})
			return err
		}},
		{"course update blank code", func() error {
			_, err := courseSvc.Update(ctx, "t1", "COUR-1", CourseRequest{Name: "Grade 10", Code: "  "})
			return err
		}},
		{"student create blank first name", func() error {
			_, err := studentSvc.Create(ctx, "t1", CreateStudentRequest{FirstName: "   ", LastName: "Baker"})
			return err
		}},
		{"student create blank last name", func() error {
			_, err := studentSvc.Create(ctx, "t1", CreateStudentRequest{FirstName: "Ben", LastName: "  "})
			return err
		}},
		{"student update blank first name", func() error {
			_, err := studentSvc.Update(ctx, "t1", "STUD-1", UpdateStudentRequest{FirstName: " ", LastName: "Abbott"})
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertCode(t, appErrors.ErrValidation, tc.call())
		})
	}

	assert.Len(t, subjects.subjects, 1)
	assert.Equal(t, "Maths", subjects.subjects["SUBJ-1"].Name)
	assert.Len(t, courses.courses, 1)
	assert.Equal(t, "G10", courses.courses["COUR-1"].Code)
	assert.Len(t, students.students, 1)
	assert.Equal(t, "Ada", students.students["STUD-1"].FirstName)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}

func TestPaginationFor(t *testing.T) {
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 7}, paginationFor(0, 0, 7))
	assert.Equal(t, &models.Pagination{Page: 3, PageSize: 50, TotalCount: 120}, paginationFor(3, 50, 120))
}
