package service

import (
	"math"

	"github.com/noah-isme/attendance-api/internal/models"
)

func tally(stats *models.AttendanceStatistics, status models.CheckInStatus) {
	switch status {
	case models.CheckInStatusPresent:
		stats.Present++
	case models.CheckInStatusLate:
		stats.Late++
	case models.CheckInStatusExcused:
		stats.Excused++
	case models.CheckInStatusAbsent:
		stats.Absent++
	default:
		return
	}
	stats.Total++
}

// attendanceRate counts only PRESENT toward the rate. LATE and EXCUSED do not.
func attendanceRate(present, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

// ComputeStatistics groups check-in records by status. Total is the number of records.
func ComputeStatistics(checkIns []models.CheckIn) models.AttendanceStatistics {
	var stats models.AttendanceStatistics
	for _, ci := range checkIns {
		tally(&stats, ci.Status)
	}
	stats.AttendanceRate = attendanceRate(stats.Present, stats.Total)
	return stats
}

// SummarizeAttendance counts resolved display rows, so absentees are roster minus
// checked-in students and Total is the roster size.
func SummarizeAttendance(rows []models.StudentAttendance) models.AttendanceStatistics {
	var stats models.AttendanceStatistics
	for _, row := range rows {
		tally(&stats, row.Status)
	}
	stats.AttendanceRate = attendanceRate(stats.Present, stats.Total)
	return stats
}
