package domain

import "time"

// Student is the registry boundary row. The registry itself (enrolment,
// grading, CGPA computation) is owned by another service; we only read
// enough of it to address notifications.
type Student struct {
	ID          string `db:"id" json:"id"`
	FirstName   string `db:"first_name" json:"firstName"`
	LastName    string `db:"last_name" json:"lastName"`
	PhoneNumber string `db:"phone_number" json:"phoneNumber"`
}

type StudentResult struct {
	ID          int64      `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"studentId"`
	Session     string     `db:"session" json:"session"`
	Score       float64    `db:"score" json:"score"`
	CGPA        float64    `db:"cgpa" json:"cgpa"`
	Published   bool       `db:"published" json:"published"`
	PublishedAt *time.Time `db:"published_at" json:"publishedAt,omitempty"`
}

// StudentWithResult joins a student to one unpublished result row.
type StudentWithResult struct {
	Student
	ResultID int64   `db:"result_id" json:"resultId"`
	Session  string  `db:"session" json:"session"`
	Score    float64 `db:"score" json:"score"`
	CGPA     float64 `db:"cgpa" json:"cgpa"`
}
