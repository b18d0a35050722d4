package service

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/attendance-api/internal/models"
)

// DateRangeBounds converts a range into inclusive yyyy-MM-dd bounds relative to now.
// ok is false for ALL, which has no bounds.
func DateRangeBounds(r models.DateRange, now time.Time) (from, to string, ok bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case models.DateRangeToday:
		return day.Format(models.DateLayout), day.Format(models.DateLayout), true
	case models.DateRangeThisWeek:
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		start := day.AddDate(0, 0, -offset)
		return start.Format(models.DateLayout), start.AddDate(0, 0, 6).Format(models.DateLayout), true
	case models.DateRangeThisMonth:
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		return start.Format(models.DateLayout), start.AddDate(0, 1, -1).Format(models.DateLayout), true
	default:
		return "", "", false
	}
}

// inScope narrows check-ins to the subject and date range of the filter.
func inScope(checkIns []models.CheckIn, filter models.AttendanceFilter, now time.Time) []models.CheckIn {
	from, to, bounded := DateRangeBounds(filter.DateRange, now)
	scoped := make([]models.CheckIn, 0, len(checkIns))
	for _, ci := range checkIns {
		if filter.SubjectID != "" && ci.SubjectID != filter.SubjectID {
			continue
		}
		if bounded && (ci.Date < from || ci.Date > to) {
			continue
		}
		scoped = append(scoped, ci)
	}
	return scoped
}

func checkInAfter(a, b models.CheckIn) bool {
	if a.Date != b.Date {
		return a.Date > b.Date
	}
	if a.Time != b.Time {
		return a.Time > b.Time
	}
	return a.ID > b.ID
}

// ResolveAttendance pairs every roster student with the latest in-scope check-in.
// Students without one resolve to an inferred ABSENT.
func ResolveAttendance(roster []models.Student, checkIns []models.CheckIn, filter models.AttendanceFilter, now time.Time) []models.StudentAttendance {
	latest := make(map[string]models.CheckIn)
	for _, ci := range inScope(checkIns, filter, now) {
		if cur, ok := latest[ci.StudentID]; !ok || checkInAfter(ci, cur) {
			latest[ci.StudentID] = ci
		}
	}

	rows := make([]models.StudentAttendance, 0, len(roster))
	for _, student := range roster {
		row := models.StudentAttendance{
			Student:       student,
			FormattedName: student.FormattedName(),
			Status:        models.CheckInStatusAbsent,
			Inferred:      true,
		}
		if ci, ok := latest[student.ID]; ok {
			ci := ci
			row.CheckIn = &ci
			row.Status = ci.Status
			row.Inferred = false
		}
		rows = append(rows, row)
	}
	return rows
}

func matchesSearch(row models.StudentAttendance, needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{row.FormattedName, row.Student.FirstName, row.Student.MiddleName, row.Student.LastName, row.Student.ID} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func matchesStatus(row models.StudentAttendance, statuses []models.CheckInStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if row.Status == s {
			return true
		}
	}
	return false
}

// FilterAttendance applies search and status filters to resolved rows.
func FilterAttendance(rows []models.StudentAttendance, filter models.AttendanceFilter) []models.StudentAttendance {
	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	kept := make([]models.StudentAttendance, 0, len(rows))
	for _, row := range rows {
		if matchesSearch(row, needle) && matchesStatus(row, filter.Statuses) {
			kept = append(kept, row)
		}
	}
	return kept
}

func compareNames(a, b models.Student) int {
	for _, pair := range [][2]string{
		{a.LastName, b.LastName},
		{a.FirstName, b.FirstName},
		{a.MiddleName, b.MiddleName},
	} {
		x, y := strings.ToLower(pair[0]), strings.ToLower(pair[1])
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a.ID, b.ID)
}

func checkInStamp(row models.StudentAttendance) string {
	return row.CheckIn.Date + " " + row.CheckIn.Time
}

// SortAttendance orders rows in place per option. Unknown options sort by name.
func SortAttendance(rows []models.StudentAttendance, option models.SortOption) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch option {
		case models.SortNameDesc:
			return compareNames(a.Student, b.Student) > 0
		case models.SortTimeAsc, models.SortTimeDesc:
			if (a.CheckIn == nil) != (b.CheckIn == nil) {
				return a.CheckIn != nil
			}
			if a.CheckIn != nil {
				sa, sb := checkInStamp(a), checkInStamp(b)
				if sa != sb {
					if option == models.SortTimeAsc {
						return sa < sb
					}
					return sa > sb
				}
			}
			return compareNames(a.Student, b.Student) < 0
		case models.SortStatus:
			if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
				return ra < rb
			}
			return compareNames(a.Student, b.Student) < 0
		default:
			return compareNames(a.Student, b.Student) < 0
		}
	})
}

// BuildAttendanceList produces the display list for a roster. Inputs are not modified.
func BuildAttendanceList(roster []models.Student, checkIns []models.CheckIn, filter models.AttendanceFilter, now time.Time) []models.StudentAttendance {
	rows := FilterAttendance(ResolveAttendance(roster, checkIns, filter, now), filter)
	SortAttendance(rows, filter.Sort)
	return rows
}

// EligibleStudents returns enrolled students without a check-in yet, sorted by name.
func EligibleStudents(roster []models.Student, enrolledIDs, checkedInIDs []string) []models.Student {
	enrolled := make(map[string]struct{}, len(enrolledIDs))
	for _, id := range enrolledIDs {
		enrolled[id] = struct{}{}
	}
	done := make(map[string]struct{}, len(checkedInIDs))
	for _, id := range checkedInIDs {
		done[id] = struct{}{}
	}
	eligible := make([]models.Student, 0, len(enrolled))
	for _, student := range roster {
		if _, ok := enrolled[student.ID]; !ok {
			continue
		}
		if _, ok := done[student.ID]; ok {
			continue
		}
		eligible = append(eligible, student)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return compareNames(eligible[i], eligible[j]) < 0
	})
	return eligible
}
