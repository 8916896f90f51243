package policy

import (
	"context"

	"github.com/noah-isme/otpas-api/internal/models"
)

type pair [2]string

type fakeResolver struct {
	assignments map[pair]bool
	departments map[string]string
	projects    map[string]*models.Project
	tutorials   map[string]*models.Tutorial
	courseLinks map[pair]bool
	users       map[string]*models.User
	err         error
	calls       int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		assignments: map[pair]bool{},
		departments: map[string]string{},
		projects:    map[string]*models.Project{},
		tutorials:   map[string]*models.Tutorial{},
		courseLinks: map[pair]bool{},
		users:       map[string]*models.User{},
	}
}

func (f *fakeResolver) IsInstructorAssignedToStudent(_ context.Context, instructorID, studentID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.assignments[pair{instructorID, studentID}], nil
}

func (f *fakeResolver) DepartmentOf(_ context.Context, userID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	dept, ok := f.departments[userID]
	if !ok {
		return "", ErrNotFound
	}
	return dept, nil
}

func (f *fakeResolver) ResolveStudentFromProject(ctx context.Context, projectID string) (string, error) {
	project, err := f.Project(ctx, projectID)
	if err != nil {
		return "", err
	}
	return project.StudentID, nil
}

func (f *fakeResolver) Project(_ context.Context, projectID string) (*models.Project, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	project, ok := f.projects[projectID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *project
	return &copied, nil
}

func (f *fakeResolver) Tutorial(_ context.Context, tutorialID string) (*models.Tutorial, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	tutorial, ok := f.tutorials[tutorialID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *tutorial
	return &copied, nil
}

func (f *fakeResolver) InstructorTeachesCourse(_ context.Context, instructorID, courseID string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.courseLinks[pair{instructorID, courseID}], nil
}

func (f *fakeResolver) User(_ context.Context, userID string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

type countingObserver struct {
	counts map[string]int
}

func (o *countingObserver) ObservePolicyDecision(policy, outcome string) {
	if o.counts == nil {
		o.counts = map[string]int{}
	}
	o.counts[policy+"/"+outcome]++
}
