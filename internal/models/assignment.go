package models

import "time"

// InstructorStudentAssignment grants an instructor access to one student's work.
type InstructorStudentAssignment struct {
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// DepartmentHeadAssignment scopes a department head to exactly one department.
type DepartmentHeadAssignment struct {
	UserID       string `db:"user_id" json:"user_id"`
	DepartmentID string `db:"department_id" json:"department_id"`
}
