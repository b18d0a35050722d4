package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type rosterEnv struct {
	svc         *RosterService
	students    *fakeStudents
	enrollments *fakeEnrollments
}

func newRosterEnv() *rosterEnv {
	enrollments := newFakeEnrollments()
	students := newFakeStudents(enrollments)
	subjects := newFakeSubjects(
		models.Subject{ID: "SUBJ-1", TeacherID: "t1", Code: "MATH"},
		models.Subject{ID: "SUBJ-2", TeacherID: "t1", Code: "SCI"},
	)
	courses := newFakeCourses(
		models.Course{ID: "COUR-1", TeacherID: "t1", Code: "G10"},
		models.Course{ID: "COUR-9", TeacherID: "t2", Code: "G11"},
	)
	svc := NewRosterService(students, subjects, courses, enrollments, nil, NewMetricsService(), nil, nil)
	return &rosterEnv{svc: svc, students: students, enrollments: enrollments}
}

func TestRosterImportReportsFailuresByIndex(t *testing.T) {
	f := newRosterEnv()
	f.students.createErr = map[string]error{"Broken": errors.New("insert failed")}
	doc := []byte(`[
		{"first_name": "Ada", "last_name": "Abbott", "course_code": "G10", "subject_codes": ["SCI", "MATH"]},
		{"first_name": "Ben"},
		{"first_name": "Cara", "last_name": "Cole", "course_code": "G11"},
		{"first_name": "Dan", "last_name": "Doe", "subject_codes": ["ART"]},
		"not an object",
		{"first_name": "Eve", "last_name": "Broken"},
		{"first_name": "Finn", "last_name": "Ford"}
	]`)

	result, err := f.svc.Import(context.Background(), "t1", doc, "")
	require.NoError(t, err)
	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 5, result.Failed)
	require.Len(t, result.Failures, 5)

	var indices []int
	for _, failure := range result.Failures {
		indices = append(indices, failure.Index)
		assert.NotEmpty(t, failure.Reason)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, indices)
	assert.Contains(t, result.Failures[1].Reason, "G11")
	assert.Contains(t, result.Failures[2].Reason, "ART")
	assert.Equal(t, "failed to store record", result.Failures[4].Reason)

	require.Len(t, result.StudentIDs, 2)
	ada := f.students.students[result.StudentIDs[0]]
	assert.Equal(t, "COUR-1", *ada.CourseID)
	subjects, _ := f.enrollments.SubjectIDsForStudent(context.Background(), ada.ID)
	assert.Equal(t, []string{"SUBJ-1", "SUBJ-2"}, subjects)
}

func TestRosterImportCourseOverride(t *testing.T) {
	f := newRosterEnv()
	result, err := f.svc.Import(context.Background(), "t1", []byte(`[{"first_name":"Ada","last_name":"Abbott","course_code":"NOPE"}]`), "COUR-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, "COUR-1", *f.students.students[result.StudentIDs[0]].CourseID)

	_, err = f.svc.Import(context.Background(), "t1", []byte(`[]`), "COUR-9")
	assertCode(t, appErrors.ErrValidation, err)
}

func TestRosterImportRejectsBlankNames(t *testing.T) {
	f := newRosterEnv()
	result, err := f.svc.Import(context.Background(), "t1", []byte(`[
		{"first_name": "  ", "last_name": "  "},
		{"first_name": "Ada", "last_name": "\t"},
		{"first_name": " Ben ", "last_name": " Baker "}
	]`), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Failures, 2)
	assert.Equal(t, 0, result.Failures[0].Index)
	assert.Contains(t, result.Failures[0].Reason, "invalid record")
	assert.Equal(t, 1, result.Failures[1].Index)

	require.Len(t, f.students.students, 1)
	ben := f.students.students[result.StudentIDs[0]]
	assert.Equal(t, "Ben", ben.FirstName)
	assert.Equal(t, "Baker", ben.LastName)
}

func TestRosterImportRejectsNonArray(t *testing.T) {
	f := newRosterEnv()
	for _, doc := range []string{`{"first_name":"Ada"}`, `null`, `not json`, ``} {
		_, err := f.svc.Import(context.Background(), "t1", []byte(doc), "")
		assertCode(t, appErrors.ErrValidation, err)
	}
	assert.Empty(t, f.students.students)
}

func TestRosterExportUsesCodes(t *testing.T) {
	f := newRosterEnv()
	_, err := f.svc.Import(context.Background(), "t1", []byte(`[
		{"first_name":"Ada","middle_name":"Byron","last_name":"Abbott","course_code":"G10","subject_codes":["SCI","MATH"]},
		{"first_name":"Ben","last_name":"Baker"}
	]`), "")
	require.NoError(t, err)

	records, err := f.svc.Export(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Byron", records[0].MiddleName)
	assert.Equal(t, "G10", records[0].CourseCode)
	assert.Equal(t, []string{"MATH", "SCI"}, records[0].SubjectCodes)
	assert.Empty(t, records[1].CourseCode)
	assert.Nil(t, records[1].SubjectCodes)
}
