package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-api/internal/models"
	appErrors "github.com/noah-isme/attendance-api/pkg/errors"
)

type attendanceFixture struct {
	svc         *AttendanceService
	checkIns    *fakeCheckIns
	enrollments *fakeEnrollments
	gate        *fakeGate
}

func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	enrollments := newFakeEnrollments(
		[2]string{"STUD-1", "SUBJ-1"},
		[2]string{"STUD-2", "SUBJ-1"},
	)
	students := newFakeStudents(enrollments, rosterFixture()...)
	subjects := newFakeSubjects(
		models.Subject{ID: "SUBJ-1", TeacherID: "t1", Code: "MATH"},
		models.Subject{ID: "SUBJ-9", TeacherID: "t2", Code: "MUS"},
	)
	checkIns := &fakeCheckIns{}
	gate := &fakeGate{}
	svc := NewAttendanceService(checkIns, students, subjects, enrollments, gate, nil, nil, time.UTC, nil, nil)
	svc.SetClock(func() time.Time { return refNow })
	return &attendanceFixture{svc: svc, checkIns: checkIns, enrollments: enrollments, gate: gate}
}

func assertCode(t *testing.T, want *appErrors.Error, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.Code, appErrors.FromError(err).Code)
}

func TestRecordDefaultsDateAndTime(t *testing.T) {
	f := newAttendanceFixture(t)
	ci, err := f.svc.Record(context.Background(), "t1", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "present"})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06", ci.Date)
	assert.Equal(t, "10:00", ci.Time)
	assert.Equal(t, models.CheckInStatusPresent, ci.Status)
	assert.Equal(t, "t1", ci.TeacherID)
	assert.NotEmpty(t, ci.ID)
}

func TestRecordUpsertsSameDay(t *testing.T) {
	f := newAttendanceFixture(t)
	ctx := context.Background()
	first, err := f.svc.Record(ctx, "t1", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "LATE", Time: "08:15"})
	require.NoError(t, err)
	second, err := f.svc.Record(ctx, "t1", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "EXCUSED", Time: "08:30"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, f.checkIns.rows, 1)
	assert.Equal(t, models.CheckInStatusExcused, f.checkIns.rows[0].Status)
}

func TestRecordRejections(t *testing.T) {
	cases := []struct {
		name  string
		req   RecordCheckInRequest
		setup func(f *attendanceFixture)
		want  *appErrors.Error
	}{
		{"absent is never stored", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "ABSENT"}, nil, appErrors.ErrValidation},
		{"unknown status", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "ASLEEP"}, nil, appErrors.ErrValidation},
		{"bad date", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "PRESENT", Date: "06/03/2024"}, nil, appErrors.ErrValidation},
		{"single digit hour", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "PRESENT", Time: "9:05"}, nil, appErrors.ErrValidation},
		{"time with seconds", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "PRESENT", Time: "09:05:00"}, nil, appErrors.ErrValidation},
		{"not ready", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "PRESENT"}, func(f *attendanceFixture) {
			f.gate.err = appErrors.Clone(appErrors.ErrAttendanceNotAllowed, "no subjects")
		}, appErrors.ErrAttendanceNotAllowed},
		{"foreign subject", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-9", Status: "PRESENT"}, nil, appErrors.ErrNotFound},
		{"unknown student", RecordCheckInRequest{StudentID: "STUD-404", SubjectID: "SUBJ-1", Status: "PRESENT"}, nil, appErrors.ErrNotFound},
		{"not enrolled", RecordCheckInRequest{StudentID: "STUD-3", SubjectID: "SUBJ-1", Status: "PRESENT"}, nil, appErrors.ErrPreconditionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttendanceFixture(t)
			if tc.setup != nil {
				tc.setup(f)
			}
			_, err := f.svc.Record(context.Background(), "t1", tc.req)
			assertCode(t, tc.want, err)
			assert.Empty(t, f.checkIns.rows)
		})
	}
}

func TestBulkRecordModes(t *testing.T) {
	items := []BulkCheckInItem{
		{StudentID: "STUD-1", Status: "PRESENT"},
		{StudentID: "STUD-3", Status: "LATE"},
		{StudentID: "STUD-2", Status: "LATE", Time: "08:20"},
	}

	t.Run("atomic", func(t *testing.T) {
		f := newAttendanceFixture(t)
		_, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "atomic", Items: items})
		assertCode(t, appErrors.ErrPreconditionFailed, err)
		assert.Empty(t, f.checkIns.rows)
	})

	t.Run("partial", func(t *testing.T) {
		f := newAttendanceFixture(t)
		result, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "partialOnError", Items: items})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Processed)
		assert.Equal(t, 2, result.Success)
		require.Len(t, result.Conflicts, 1)
		assert.Equal(t, "STUD-3", result.Conflicts[0].StudentID)
		assert.Equal(t, "not enrolled in subject", result.Conflicts[0].Reason)
		require.Len(t, f.checkIns.rows, 2)
		assert.Equal(t, "2024-03-06", f.checkIns.rows[1].Date)
		assert.Equal(t, "08:20", f.checkIns.rows[1].Time)
	})

	t.Run("duplicate student", func(t *testing.T) {
		f := newAttendanceFixture(t)
		dup := []BulkCheckInItem{{StudentID: "STUD-1", Status: "PRESENT"}, {StudentID: "STUD-1", Status: "LATE"}}
		_, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "atomic", Items: dup})
		assertCode(t, appErrors.ErrConflict, err)
	})

	t.Run("single digit hour", func(t *testing.T) {
		f := newAttendanceFixture(t)
		loose := []BulkCheckInItem{{StudentID: "STUD-1", Status: "PRESENT", Time: "8:20"}}
		_, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "partialOnError", Items: loose})
		assertCode(t, appErrors.ErrValidation, err)
		assert.Empty(t, f.checkIns.rows)
	})

	t.Run("unknown mode", func(t *testing.T) {
		f := newAttendanceFixture(t)
		_, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "yolo", Items: items})
		assertCode(t, appErrors.ErrValidation, err)
	})

	t.Run("store failure", func(t *testing.T) {
		f := newAttendanceFixture(t)
		f.checkIns.bulkErr = errors.New("deadlock")
		_, err := f.svc.BulkRecord(context.Background(), "t1", BulkCheckInRequest{SubjectID: "SUBJ-1", Mode: "atomic", Items: items[:1]})
		assertCode(t, appErrors.ErrInternal, err)
	})
}

func TestListBuildsViewWithRosterStatistics(t *testing.T) {
	f := newAttendanceFixture(t)
	f.checkIns.rows = []models.CheckIn{
		{ID: "c1", TeacherID: "t1", StudentID: "STUD-1", SubjectID: "SUBJ-1", Date: "2024-03-06", Time: "08:00", Status: models.CheckInStatusPresent},
		{ID: "c2", TeacherID: "t1", StudentID: "STUD-2", SubjectID: "SUBJ-1", Date: "2024-03-06", Time: "08:10", Status: models.CheckInStatusLate},
		{ID: "c0", TeacherID: "t1", StudentID: "STUD-3", SubjectID: "SUBJ-1", Date: "2024-03-01", Time: "08:10", Status: models.CheckInStatusPresent},
	}

	view, err := f.svc.List(context.Background(), "t1", AttendanceListRequest{SubjectID: "SUBJ-1", Statuses: []string{"PRESENT,ABSENT"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"STUD-1", "STUD-3"}, ids(view.Students))
	assert.Equal(t, "2024-03-06", view.DateFrom)
	assert.Equal(t, "2024-03-06", f.checkIns.lastFil.DateTo)
	assert.Equal(t, models.AttendanceStatistics{Present: 1, Late: 1, Absent: 1, Total: 3, AttendanceRate: 33}, view.Statistics)

	_, err = f.svc.List(context.Background(), "t1", AttendanceListRequest{SubjectID: "SUBJ-9"})
	assertCode(t, appErrors.ErrNotFound, err)
}

func TestStatisticsCountsRecords(t *testing.T) {
	f := newAttendanceFixture(t)
	f.checkIns.rows = []models.CheckIn{
		{ID: "c1", StudentID: "STUD-1", SubjectID: "SUBJ-1", Date: "2024-03-06", Status: models.CheckInStatusPresent},
		{ID: "c2", StudentID: "STUD-1", SubjectID: "SUBJ-1", Date: "2024-02-06", Status: models.CheckInStatusPresent},
		{ID: "c3", StudentID: "STUD-2", SubjectID: "SUBJ-1", Date: "2024-03-05", Status: models.CheckInStatusLate},
	}

	stats, hit, err := f.svc.Statistics(context.Background(), "t1", "SUBJ-1", "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 67, stats.AttendanceRate)
	assert.Empty(t, f.checkIns.lastFil.DateFrom)

	stats, _, err = f.svc.Statistics(context.Background(), "t1", "", "this_month")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 50, stats.AttendanceRate)

	_, _, err = f.svc.Statistics(context.Background(), "t1", "", "YESTERDAY")
	assertCode(t, appErrors.ErrValidation, err)
}

func TestEligibleExcludesCheckedIn(t *testing.T) {
	f := newAttendanceFixture(t)
	_, err := f.svc.Record(context.Background(), "t1", RecordCheckInRequest{StudentID: "STUD-2", SubjectID: "SUBJ-1", Status: "PRESENT"})
	require.NoError(t, err)

	eligible, err := f.svc.Eligible(context.Background(), "t1", "SUBJ-1", "")
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "STUD-1", eligible[0].ID)

	eligible, err = f.svc.Eligible(context.Background(), "t1", "SUBJ-1", "2024-03-07")
	require.NoError(t, err)
	assert.Len(t, eligible, 2)

	_, err = f.svc.Eligible(context.Background(), "t1", "", "")
	assertCode(t, appErrors.ErrValidation, err)
}

func TestDeleteAndHistory(t *testing.T) {
	f := newAttendanceFixture(t)
	ci, err := f.svc.Record(context.Background(), "t1", RecordCheckInRequest{StudentID: "STUD-1", SubjectID: "SUBJ-1", Status: "PRESENT"})
	require.NoError(t, err)

	history, err := f.svc.History(context.Background(), "t1", "STUD-1", "2024-03-01", "")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.History(context.Background(), "t1", "STUD-1", "March", "")
	assertCode(t, appErrors.ErrValidation, err)

	require.NoError(t, f.svc.Delete(context.Background(), "t1", ci.ID))
	assertCode(t, appErrors.ErrNotFound, f.svc.Delete(context.Background(), "t1", ci.ID))
}

func TestStatisticsServedFromCache(t *testing.T) {
	f := newAttendanceFixture(t)
	f.svc.cache = NewCacheService(newMemCache(), nil, 0, nil, true)
	f.checkIns.rows = []models.CheckIn{{ID: "c1", StudentID: "STUD-1", SubjectID: "SUBJ-1", Date: "2024-03-06", Status: models.CheckInStatusPresent}}
	ctx := context.Background()

	_, hit, err := f.svc.Statistics(ctx, "t1", "", "")
	require.NoError(t, err)
	assert.False(t, hit)
	stats, hit, err := f.svc.Statistics(ctx, "t1", "", "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, stats.Total)

	_, err = f.svc.Record(ctx, "t1", RecordCheckInRequest{StudentID: "STUD-2", SubjectID: "SUBJ-1", Status: "LATE"})
	require.NoError(t, err)
	stats, hit, err = f.svc.Statistics(ctx, "t1", "", "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, stats.Total)
}
