package models

import "time"

// ProjectStatus is the title-approval state of a project.
type ProjectStatus string

const (
	ProjectStatusPending  ProjectStatus = "pending"
	ProjectStatusApproved ProjectStatus = "approved"
	ProjectStatusRejected ProjectStatus = "rejected"
)

// projectTransitions lists every legal status change. Approved and rejected are terminal.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusPending: {ProjectStatusApproved, ProjectStatusRejected},
}

// Valid reports whether s is a known status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPending, ProjectStatusApproved, ProjectStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ProjectStatus) Terminal() bool {
	return s.Valid() && len(projectTransitions[s]) == 0
}

// CanTransitionTo reports whether the workflow allows s -> next.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, allowed := range projectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowsUpload is true only once the title has been approved.
func (s ProjectStatus) AllowsUpload() bool {
	return s == ProjectStatusApproved
}

// Project is a student's final project and its title-approval state.
type Project struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	InstructorID    *string       `db:"instructor_id" json:"instructor_id,omitempty"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	Status          ProjectStatus `db:"status" json:"status"`
	RejectionReason *string       `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy      *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// ProjectFile is a document uploaded against an approved project.
type ProjectFile struct {
	ID           string    `db:"id" json:"id"`
	ProjectID    string    `db:"project_id" json:"project_id"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	FilePath     string    `db:"file_path" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ProjectReview carries the data of an approve/reject transition.
type ProjectReview struct {
	ProjectID  string
	ReviewerID string
	From       ProjectStatus
	To         ProjectStatus
	Reason     *string
	ReviewedAt time.Time
}

// DepartmentProjectRow is a project as listed for a department head.
type DepartmentProjectRow struct {
	ProjectID      string        `db:"project_id" json:"project_id"`
	Title          string        `db:"title" json:"title"`
	Status         ProjectStatus `db:"status" json:"status"`
	StudentID      string        `db:"student_id" json:"student_id"`
	StudentName    string        `db:"student_name" json:"student_name"`
	InstructorName *string       `db:"instructor_name" json:"instructor_name,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}
