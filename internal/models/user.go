package models

import "time"

// User represents an application account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         Role       `db:"role" json:"role"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserProfile is the self-view of an account.
type UserProfile struct {
	ID           string  `db:"id" json:"id"`
	Email        string  `db:"email" json:"email"`
	FullName     string  `db:"full_name" json:"full_name"`
	Role         Role    `db:"role" json:"role"`
	DepartmentID *string `db:"department_id" json:"department_id,omitempty"`
}
