package models

import "time"

// CheckInStatus represents the status carried by a check-in.
type CheckInStatus string

const (
	CheckInStatusPresent CheckInStatus = "PRESENT"
	CheckInStatusAbsent  CheckInStatus = "ABSENT"
	CheckInStatusLate    CheckInStatus = "LATE"
	CheckInStatusExcused CheckInStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInStatusPresent, CheckInStatusAbsent, CheckInStatusLate, CheckInStatusExcused:
		return true
	default:
		return false
	}
}

// Recordable reports whether the status may be written. Absence is inferred from a
// missing check-in and is never stored.
func (s CheckInStatus) Recordable() bool {
	return s.Valid() && s != CheckInStatusAbsent
}

// Rank orders statuses for display: PRESENT < LATE < EXCUSED < ABSENT.
func (s CheckInStatus) Rank() int {
	switch s {
	case CheckInStatusPresent:
		return 0
	case CheckInStatusLate:
		return 1
	case CheckInStatusExcused:
		return 2
	default:
		return 3
	}
}

// BulkOperationMode controls how bulk writes behave on errors.
type BulkOperationMode string

const (
	BulkModeAtomic         BulkOperationMode = "atomic"
	BulkModePartialOnError BulkOperationMode = "partialOnError"
)

// Date and time layouts used by check-ins.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// CheckIn is a single attendance record for a student in a subject on a date.
type CheckIn struct {
	ID        string        `db:"id" json:"id"`
	StudentID string        `db:"student_id" json:"student_id"`
	SubjectID string        `db:"subject_id" json:"subject_id"`
	TeacherID string        `db:"teacher_id" json:"teacher_id"`
	Date      string        `db:"check_in_date" json:"date"`
	Time      string        `db:"check_in_time" json:"time"`
	Status    CheckInStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// CheckInFilter scopes check-in queries. Dates are inclusive yyyy-MM-dd bounds.
type CheckInFilter struct {
	TeacherID string
	SubjectID string
	StudentID string
	DateFrom  string
	DateTo    string
	Statuses  []CheckInStatus
}

// DateRange selects the window of check-ins considered by attendance views.
type DateRange string

const (
	DateRangeToday     DateRange = "TODAY"
	DateRangeThisWeek  DateRange = "THIS_WEEK"
	DateRangeThisMonth DateRange = "THIS_MONTH"
	DateRangeAll       DateRange = "ALL"
)

// Valid returns true for supported ranges.
func (r DateRange) Valid() bool {
	switch r {
	case DateRangeToday, DateRangeThisWeek, DateRangeThisMonth, DateRangeAll:
		return true
	default:
		return false
	}
}

// SortOption orders the attendance display list.
type SortOption string

const (
	SortNameAsc  SortOption = "NAME_ASC"
	SortNameDesc SortOption = "NAME_DESC"
	SortTimeAsc  SortOption = "TIME_ASC"
	SortTimeDesc SortOption = "TIME_DESC"
	SortStatus   SortOption = "STATUS"
)

// Valid returns true for supported sort options.
func (o SortOption) Valid() bool {
	switch o {
	case SortNameAsc, SortNameDesc, SortTimeAsc, SortTimeDesc, SortStatus:
		return true
	default:
		return false
	}
}

// AttendanceFilter is the filter state applied to the attendance display list.
type AttendanceFilter struct {
	SubjectID string
	Statuses  []CheckInStatus
	DateRange DateRange
	Search    string
	Sort      SortOption
}

// StudentAttendance is one row of the attendance display list.
type StudentAttendance struct {
	Student       Student       `json:"student"`
	FormattedName string        `json:"formatted_name"`
	Status        CheckInStatus `json:"status"`
	Inferred      bool          `json:"inferred"`
	CheckIn       *CheckIn      `json:"check_in,omitempty"`
}

// AttendanceStatistics summarises a set of attendance statuses.
type AttendanceStatistics struct {
	Present        int `json:"present"`
	Absent         int `json:"absent"`
	Late           int `json:"late"`
	Excused        int `json:"excused"`
	Total          int `json:"total"`
	AttendanceRate int `json:"attendance_rate"`
}

// AttendanceBulkConflict captures a rejected bulk item.
type AttendanceBulkConflict struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}
