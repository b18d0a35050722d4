package models

// RosterRecord is the JSON shape of a student in roster import/export documents.
type RosterRecord struct {
	StudentID    string   `json:"student_id,omitempty"`
	FirstName    string   `json:"first_name" validate:"required"`
	MiddleName   string   `json:"middle_name"`
	LastName     string   `json:"last_name" validate:"required"`
	CourseCode   string   `json:"course_code,omitempty"`
	SubjectCodes []string `json:"subject_codes,omitempty" validate:"omitempty,dive,required"`
}

// RosterImportFailure reports a record rejected during import.
type RosterImportFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// RosterImportResult summarises an import run.
type RosterImportResult struct {
	Total      int                   `json:"total"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Failures   []RosterImportFailure `json:"failures,omitempty"`
	StudentIDs []string              `json:"student_ids"`
}
