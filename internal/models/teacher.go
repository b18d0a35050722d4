package models

import "time"

// Teacher represents an account owning a roster of students, subjects and courses.
type Teacher struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	MiddleName   string    `db:"middle_name" json:"middle_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// FullName joins the non-empty name parts.
func (t Teacher) FullName() string {
	return joinName(t.FirstName, t.MiddleName, t.LastName)
}
