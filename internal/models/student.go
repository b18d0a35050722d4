package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Student represents a learner on a teacher's roster.
type Student struct {
	ID         string    `db:"id" json:"id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	MiddleName string    `db:"middle_name" json:"middle_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	CourseID   *string   `db:"course_id" json:"course_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// FormattedName renders "Last, First M." as shown on attendance lists.
func (s Student) FormattedName() string {
	given := s.FirstName
	if s.MiddleName != "" {
		r, _ := utf8.DecodeRuneInString(s.MiddleName)
		given = strings.TrimSpace(given + " " + strings.ToUpper(string(r)) + ".")
	}
	switch {
	case s.LastName == "":
		return given
	case given == "":
		return s.LastName
	default:
		return s.LastName + ", " + given
	}
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	TeacherID string
	Search    string
	CourseID  string
	SubjectID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains student information with course context.
type StudentDetail struct {
	Student
	CourseName *string `db:"course_name" json:"course_name,omitempty"`
	CourseCode *string `db:"course_code" json:"course_code,omitempty"`
}

func joinName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
