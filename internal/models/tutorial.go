package models

import "time"

// Tutorial is a course tutorial; students only see it once published.
type Tutorial struct {
	ID          string    `db:"id" json:"id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	Title       string    `db:"title" json:"title"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TutorialMaterial is a file attached to a tutorial.
type TutorialMaterial struct {
	ID           string    `db:"id" json:"id"`
	TutorialID   string    `db:"tutorial_id" json:"tutorial_id"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	FilePath     string    `db:"file_path" json:"-"`
	OriginalName string    `db:"original_name" json:"original_name"`
	MimeType     string    `db:"mime_type" json:"mime_type"`
	SizeBytes    int64     `db:"size_bytes" json:"size_bytes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AccessLevel is the per-request right a caller holds on tutorial material.
type AccessLevel string

const (
	AccessNone     AccessLevel = ""
	AccessReadOnly AccessLevel = "read_only"
	AccessFull     AccessLevel = "full"
)
