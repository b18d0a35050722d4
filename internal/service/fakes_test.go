package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type fakeCounter struct {
	n   int
	err error
}

func (f fakeCounter) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return f.n, f.err
}

type fakeGate struct{ err error }

func (f fakeGate) Require(ctx context.Context, teacherID string) error { return f.err }

type fakeStudents struct {
	students    map[string]models.Student
	enrollments *fakeEnrollments
	seq         int
	createErr   map[string]error
}

func newFakeStudents(enrollments *fakeEnrollments, students ...models.Student) *fakeStudents {
	f := &fakeStudents{students: map[string]models.Student{}, enrollments: enrollments}
	for _, s := range students {
		f.students[s.ID] = s
	}
	return f
}

func (f *fakeStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	details := []models.StudentDetail{}
	for _, s := range f.sorted() {
		details = append(details, models.StudentDetail{Student: s})
	}
	return details, len(details), nil
}

func (f *fakeStudents) sorted() []models.Student {
	out := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeStudents) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Student, error) {
	return f.sorted(), nil
}

func (f *fakeStudents) FindByID(ctx context.Context, teacherID, id string) (*models.StudentDetail, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.StudentDetail{Student: s}, nil
}

func (f *fakeStudents) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	return len(f.students), nil
}

func (f *fakeStudents) Create(ctx context.Context, teacherID string, student *models.Student, subjectIDs []string) error {
	if err := f.createErr[student.LastName]; err != nil {
		return err
	}
	f.seq++
	student.ID = fmt.Sprintf("STUD-%d", 100+f.seq)
	f.students[student.ID] = *student
	if f.enrollments != nil && len(subjectIDs) > 0 {
		_, _ = f.enrollments.Replace(ctx, student.ID, subjectIDs)
	}
	return nil
}

func (f *fakeStudents) Update(ctx context.Context, student *models.Student) error {
	if _, ok := f.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudents) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

type fakeSubjects struct {
	subjects map[string]models.Subject
	seq      int
}

func newFakeSubjects(subjects ...models.Subject) *fakeSubjects {
	f := &fakeSubjects{subjects: map[string]models.Subject{}}
	for _, s := range subjects {
		f.subjects[s.ID] = s
	}
	return f
}

func (f *fakeSubjects) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	list, _ := f.ListAllByTeacher(ctx, filter.TeacherID)
	return list, len(list), nil
}

func (f *fakeSubjects) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Subject, error) {
	out := []models.Subject{}
	for _, s := range f.subjects {
		if s.TeacherID == teacherID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeSubjects) FindByID(ctx context.Context, teacherID, id string) (*models.Subject, error) {
	s, ok := f.subjects[id]
	if !ok || s.TeacherID != teacherID {
		return nil, sql.ErrNoRows
	}
	return &s, nil
}

func (f *fakeSubjects) OwnedIDs(ctx context.Context, teacherID string, ids []string) ([]string, error) {
	owned := []string{}
	for _, id := range ids {
		if s, ok := f.subjects[id]; ok && s.TeacherID == teacherID {
			owned = append(owned, id)
		}
	}
	return owned, nil
}

func (f *fakeSubjects) CountByTeacher(ctx context.Context, teacherID string) (int, error) {
	list, _ := f.ListAllByTeacher(ctx, teacherID)
	return len(list), nil
}

func (f *fakeSubjects) ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error) {
	for _, s := range f.subjects {
		if s.TeacherID == teacherID && s.Code == code && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubjects) Create(ctx context.Context, subject *models.Subject) error {
	f.seq++
	subject.ID = fmt.Sprintf("SUBJ-%d", 100+f.seq)
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjects) Update(ctx context.Context, subject *models.Subject) error {
	f.subjects[subject.ID] = *subject
	return nil
}

func (f *fakeSubjects) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := f.FindByID(ctx, teacherID, id); err != nil {
		return err
	}
	delete(f.subjects, id)
	return nil
}

type fakeCourses struct {
	courses  map[string]models.Course
	subjects map[string][]string
}

func newFakeCourses(courses ...models.Course) *fakeCourses {
	f := &fakeCourses{courses: map[string]models.Course{}, subjects: map[string][]string{}}
	for _, c := range courses {
		f.courses[c.ID] = c
	}
	return f
}

func (f *fakeCourses) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	list, _ := f.ListAllByTeacher(ctx, filter.TeacherID)
	return list, len(list), nil
}

func (f *fakeCourses) ListAllByTeacher(ctx context.Context, teacherID string) ([]models.Course, error) {
	out := []models.Course{}
	for _, c := range f.courses {
		if c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeCourses) FindByID(ctx context.Context, teacherID, id string) (*models.Course, error) {
	c, ok := f.courses[id]
	if !ok || c.TeacherID != teacherID {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (f *fakeCourses) ExistsByCode(ctx context.Context, teacherID, code, excludeID string) (bool, error) {
	for _, c := range f.courses {
		if c.TeacherID == teacherID && c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCourses) Create(ctx context.Context, course *models.Course) error {
	course.ID = fmt.Sprintf("COUR-%d", 100+len(f.courses))
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourses) Update(ctx context.Context, course *models.Course) error {
	f.courses[course.ID] = *course
	return nil
}

func (f *fakeCourses) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := f.FindByID(ctx, teacherID, id); err != nil {
		return err
	}
	delete(f.courses, id)
	return nil
}

func (f *fakeCourses) SubjectIDs(ctx context.Context, courseID string) ([]string, error) {
	return append([]string{}, f.subjects[courseID]...), nil
}

func (f *fakeCourses) ReplaceSubjects(ctx context.Context, courseID string, subjectIDs []string) (models.EnrollmentDiff, error) {
	added, removed := symmetricDiff(f.subjects[courseID], subjectIDs)
	f.subjects[courseID] = append([]string{}, subjectIDs...)
	return models.EnrollmentDiff{Added: added, Removed: removed}, nil
}

type fakeEnrollments struct {
	bySubject  map[string]map[string]struct{}
	replaceErr error
}

func newFakeEnrollments(pairs ...[2]string) *fakeEnrollments {
	f := &fakeEnrollments{bySubject: map[string]map[string]struct{}{}}
	for _, p := range pairs {
		f.add(p[0], p[1])
	}
	return f
}

func (f *fakeEnrollments) add(studentID, subjectID string) {
	if f.bySubject[subjectID] == nil {
		f.bySubject[subjectID] = map[string]struct{}{}
	}
	f.bySubject[subjectID][studentID] = struct{}{}
}

func (f *fakeEnrollments) SubjectIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	ids := []string{}
	for subjectID, students := range f.bySubject {
		if _, ok := students[studentID]; ok {
			ids = append(ids, subjectID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeEnrollments) StudentIDsForSubject(ctx context.Context, subjectID string) ([]string, error) {
	ids := []string{}
	for id := range f.bySubject[subjectID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeEnrollments) IsEnrolled(ctx context.Context, studentID, subjectID string) (bool, error) {
	_, ok := f.bySubject[subjectID][studentID]
	return ok, nil
}

func (f *fakeEnrollments) Replace(ctx context.Context, studentID string, subjectIDs []string) (models.EnrollmentDiff, error) {
	if f.replaceErr != nil {
		return models.EnrollmentDiff{}, f.replaceErr
	}
	current, _ := f.SubjectIDsForStudent(ctx, studentID)
	added, removed := symmetricDiff(current, subjectIDs)
	for _, id := range removed {
		delete(f.bySubject[id], studentID)
	}
	for _, id := range added {
		f.add(studentID, id)
	}
	return models.EnrollmentDiff{Added: added, Removed: removed}, nil
}

func (f *fakeEnrollments) ListForTeacher(ctx context.Context, teacherID string) ([]models.StudentSubject, error) {
	rows := []models.StudentSubject{}
	for subjectID, students := range f.bySubject {
		for studentID := range students {
			rows = append(rows, models.StudentSubject{StudentID: studentID, SubjectID: subjectID})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StudentID != rows[j].StudentID {
			return rows[i].StudentID < rows[j].StudentID
		}
		return rows[i].SubjectID < rows[j].SubjectID
	})
	return rows, nil
}

func symmetricDiff(current, desired []string) (added, removed []string) {
	have := map[string]bool{}
	for _, id := range current {
		have[id] = true
	}
	want := map[string]bool{}
	for _, id := range desired {
		want[id] = true
	}
	added, removed = []string{}, []string{}
	for id := range want {
		if !have[id] {
			added = append(added, id)
		}
	}
	for id := range have {
		if !want[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

type fakeCheckIns struct {
	rows    []models.CheckIn
	lastFil models.CheckInFilter
	bulkErr error
}

func checkInKey(ci models.CheckIn) string {
	return strings.Join([]string{ci.StudentID, ci.SubjectID, ci.Date}, "|")
}

func (f *fakeCheckIns) Upsert(ctx context.Context, checkIn *models.CheckIn) error {
	for i, existing := range f.rows {
		if checkInKey(existing) == checkInKey(*checkIn) {
			checkIn.ID = existing.ID
			f.rows[i] = *checkIn
			return nil
		}
	}
	checkIn.ID = fmt.Sprintf("ci-%d", len(f.rows)+1)
	f.rows = append(f.rows, *checkIn)
	return nil
}

func (f *fakeCheckIns) BulkUpsert(ctx context.Context, checkIns []models.CheckIn) error {
	if f.bulkErr != nil {
		return f.bulkErr
	}
	for i := range checkIns {
		_ = f.Upsert(ctx, &checkIns[i])
	}
	return nil
}

func (f *fakeCheckIns) List(ctx context.Context, filter models.CheckInFilter) ([]models.CheckIn, error) {
	f.lastFil = filter
	out := []models.CheckIn{}
	for _, ci := range f.rows {
		if filter.SubjectID != "" && ci.SubjectID != filter.SubjectID {
			continue
		}
		if filter.StudentID != "" && ci.StudentID != filter.StudentID {
			continue
		}
		if filter.DateFrom != "" && ci.Date < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && ci.Date > filter.DateTo {
			continue
		}
		out = append(out, ci)
	}
	return out, nil
}

func (f *fakeCheckIns) Delete(ctx context.Context, teacherID, id string) error {
	for i, ci := range f.rows {
		if ci.ID == id && ci.TeacherID == teacherID {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeCheckIns) CheckedInStudentIDs(ctx context.Context, subjectID, date string) ([]string, error) {
	ids := []string{}
	for _, ci := range f.rows {
		if ci.SubjectID == subjectID && ci.Date == date {
			ids = append(ids, ci.StudentID)
		}
	}
	return ids, nil
}

type memCache struct {
	entries map[string][]byte
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletes = append(m.deletes, pattern)
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}
