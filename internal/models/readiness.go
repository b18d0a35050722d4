package models

// ReadinessCode identifies a readiness notice.
type ReadinessCode string

const (
	ReadinessNoStudents ReadinessCode = "NO_STUDENTS"
	ReadinessNoSubjects ReadinessCode = "NO_SUBJECTS"
	ReadinessNoCourses  ReadinessCode = "NO_COURSES"
)

// ReadinessNotice describes a missing prerequisite or an advisory.
type ReadinessNotice struct {
	Code    ReadinessCode `json:"code"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Action  string        `json:"action"`
}

// Readiness gates attendance recording for a teacher.
type Readiness struct {
	IsReady      bool              `json:"is_ready"`
	Blockers     []ReadinessNotice `json:"blockers"`
	Warnings     []ReadinessNotice `json:"warnings"`
	StudentCount int               `json:"student_count"`
	SubjectCount int               `json:"subject_count"`
	CourseCount  int               `json:"course_count"`
}
