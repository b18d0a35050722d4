package models

import "time"

// StudentSubject is a single row of the student/subject junction.
type StudentSubject struct {
	StudentID string    `db:"student_id" json:"student_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDiff reports what a full-replace write changed.
type EnrollmentDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Enrollment is the resulting subject set of a student after a replace.
type Enrollment struct {
	StudentID  string   `json:"student_id"`
	SubjectIDs []string `json:"subject_ids"`
	EnrollmentDiff
}
