package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/noah-isme/otpas-api/internal/models"
)

// ErrNotFound is returned by a Resolver when the referenced record does not exist.
var ErrNotFound = errors.New("policy: record not found")

// Resolver answers the lookups policies depend on. Every call reads the store;
// nothing is cached between requests.
type Resolver interface {
	IsInstructorAssignedToStudent(ctx context.Context, instructorID, studentID string) (bool, error)
	DepartmentOf(ctx context.Context, userID string) (string, error)
	ResolveStudentFromProject(ctx context.Context, projectID string) (string, error)
	Project(ctx context.Context, projectID string) (*models.Project, error)
	Tutorial(ctx context.Context, tutorialID string) (*models.Tutorial, error)
	InstructorTeachesCourse(ctx context.Context, instructorID, courseID string) (bool, error)
	User(ctx context.Context, userID string) (*models.User, error)
}

type assignmentStore interface {
	Exists(ctx context.Context, instructorID, studentID string) (bool, error)
	FindDepartmentByHead(ctx context.Context, userID string) (string, error)
	CourseLinkExists(ctx context.Context, courseID, instructorID string) (bool, error)
}

type projectStore interface {
	FindByID(ctx context.Context, id string) (*models.Project, error)
}

type tutorialStore interface {
	FindByID(ctx context.Context, id string) (*models.Tutorial, error)
}

type userStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// StoreResolver implements Resolver over the repositories.
type StoreResolver struct {
	assignments assignmentStore
	projects    projectStore
	tutorials   tutorialStore
	users       userStore
}

// NewStoreResolver constructs a StoreResolver.
func NewStoreResolver(assignments assignmentStore, projects projectStore, tutorials tutorialStore, users userStore) *StoreResolver {
	return &StoreResolver{assignments: assignments, projects: projects, tutorials: tutorials, users: users}
}

// IsInstructorAssignedToStudent reports whether the assignment row exists.
func (r *StoreResolver) IsInstructorAssignedToStudent(ctx context.Context, instructorID, studentID string) (bool, error) {
	ok, err := r.assignments.Exists(ctx, instructorID, studentID)
	if err != nil {
		return false, fmt.Errorf("check instructor assignment: %w", err)
	}
	return ok, nil
}

// DepartmentOf returns the department a department head is mapped to.
func (r *StoreResolver) DepartmentOf(ctx context.Context, userID string) (string, error) {
	departmentID, err := r.assignments.FindDepartmentByHead(ctx, userID)
	if err != nil {
		return "", notFound(err, "department head mapping")
	}
	return departmentID, nil
}

// ResolveStudentFromProject returns the owning student of a project.
func (r *StoreResolver) ResolveStudentFromProject(ctx context.Context, projectID string) (string, error) {
	project, err := r.Project(ctx, projectID)
	if err != nil {
		return "", err
	}
	return project.StudentID, nil
}

// Project loads a project by id.
func (r *StoreResolver) Project(ctx context.Context, projectID string) (*models.Project, error) {
	project, err := r.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project")
	}
	return project, nil
}

// Tutorial loads a tutorial by id.
func (r *StoreResolver) Tutorial(ctx context.Context, tutorialID string) (*models.Tutorial, error) {
	tutorial, err := r.tutorials.FindByID(ctx, tutorialID)
	if err != nil {
		return nil, notFound(err, "tutorial")
	}
	return tutorial, nil
}

// InstructorTeachesCourse reports whether an active course link exists.
func (r *StoreResolver) InstructorTeachesCourse(ctx context.Context, instructorID, courseID string) (bool, error) {
	ok, err := r.assignments.CourseLinkExists(ctx, courseID, instructorID)
	if err != nil {
		return false, fmt.Errorf("check course link: %w", err)
	}
	return ok, nil
}

// User loads an account by id.
func (r *StoreResolver) User(ctx context.Context, userID string) (*models.User, error) {
	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
