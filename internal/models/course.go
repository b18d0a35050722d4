package models

import "time"

// Course groups students and subjects for organisation.
type Course struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with its subject ids.
type CourseDetail struct {
	Course
	SubjectIDs []string `json:"subject_ids"`
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	TeacherID string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
