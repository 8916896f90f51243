package policy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/otpas-api/internal/models"
)

// Denial reasons shared by handlers and tests.
const (
	ReasonInstructorNotAssigned = "Instructor is not assigned to this student"
	ReasonNotProjectOwner       = "Project does not belong to this student"
	ReasonTitleNotApproved      = "Project title has not been approved"
	ReasonOutsideDepartment     = "Department head may only access their own department"
	ReasonHeadCannotUpload      = "Department heads may view tutorials but cannot upload materials"
	ReasonNotCourseInstructor   = "Instructor does not teach this tutorial's course"
	ReasonTutorialUnpublished   = "Tutorial is not published"
	ReasonNotSelf               = "Users may only access their own account"
	ReasonStudentOrProject      = "studentId or projectId is required"
)

// RequireRole allows the request when the caller holds one of roles.
func RequireRole(roles ...models.Role) Policy {
	allowed := append([]models.Role(nil), roles...)
	names := make([]string, len(allowed))
	for i, r := range allowed {
		names[i] = r.String()
	}
	return NewFunc("require_role", func(_ context.Context, _ Env, req *Request) (Decision, error) {
		if req.Subject.Role.In(allowed...) {
			return Allow(), nil
		}
		return Forbidden(fmt.Sprintf("This action requires role %s", strings.Join(names, " or "))), nil
	})
}

// RequirePermission allows the request when the caller's role carries perm in the permission table.
func RequirePermission(perm string) Policy {
	return NewFunc("require_permission", func(_ context.Context, env Env, req *Request) (Decision, error) {
		ok, err := env.Permissions.Has(req.Subject.Role, perm)
		if err != nil {
			return Decision{}, err
		}
		if !ok {
			return Forbidden(fmt.Sprintf("Role %s lacks permission %s", req.Subject.Role, perm)), nil
		}
		return Allow(), nil
	})
}

// InstructorOwnsStudent allows an instructor assigned to the target student.
// The student comes from studentId, or from the owner of projectId. When both
// are given the project must belong to that student.
func InstructorOwnsStudent() Policy {
	return NewFunc("instructor_owns_student", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		if req.Subject.Role != models.RoleInstructor {
			return Forbidden("Only instructors can access student work"), nil
		}

		studentID := req.Param(ParamStudentID)
		if req.Param(ParamProjectID) != "" {
			project, decision, err := loadProject(ctx, env, req)
			if project == nil {
				return decision, err
			}
			if studentID != "" && studentID != project.StudentID {
				return Forbidden(ReasonNotProjectOwner), nil
			}
			studentID = project.StudentID
		}
		if studentID == "" {
			return Invalid(ReasonStudentOrProject), nil
		}

		assigned, err := env.Resolver.IsInstructorAssignedToStudent(ctx, req.Subject.ID, studentID)
		if err != nil {
			return Decision{}, err
		}
		if !assigned {
			return Forbidden(ReasonInstructorNotAssigned), nil
		}
		req.StudentID = studentID
		return Allow(), nil
	})
}

// StudentOwnsProject allows the student who owns projectId.
func StudentOwnsProject() Policy {
	return NewFunc("student_owns_project", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		if req.Subject.Role != models.RoleStudent {
			return Forbidden("Only the owning student can perform this action"), nil
		}
		project, decision, err := loadProject(ctx, env, req)
		if project == nil {
			return decision, err
		}
		if project.StudentID != req.Subject.ID {
			return Forbidden(ReasonNotProjectOwner), nil
		}
		req.StudentID = project.StudentID
		return Allow(), nil
	})
}

// TitleApprovedForUpload allows the request only when the project title is approved.
func TitleApprovedForUpload() Policy {
	return NewFunc("title_approved_for_upload", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		project, decision, err := loadProject(ctx, env, req)
		if project == nil {
			return decision, err
		}
		if !project.Status.AllowsUpload() {
			return Forbidden(ReasonTitleNotApproved), nil
		}
		return Allow(), nil
	})
}

// InstructorOwnsProject allows an instructor assigned to the project's student.
func InstructorOwnsProject() Policy {
	return NewFunc("instructor_owns_project", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		if req.Subject.Role != models.RoleInstructor {
			return Forbidden("Only instructors can review projects"), nil
		}
		project, decision, err := loadProject(ctx, env, req)
		if project == nil {
			return decision, err
		}
		assigned, err := env.Resolver.IsInstructorAssignedToStudent(ctx, req.Subject.ID, project.StudentID)
		if err != nil {
			return Decision{}, err
		}
		if !assigned {
			return Forbidden(ReasonInstructorNotAssigned), nil
		}
		req.StudentID = project.StudentID
		return Allow(), nil
	})
}

// DepartmentHeadScope allows a mapped department head and attaches the department.
// A departmentId named by the request must match the mapping.
func DepartmentHeadScope() Policy {
	return NewFunc("department_head_scope", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		if req.Subject.Role != models.RoleDepartmentHead {
			return Forbidden("Only department heads can access department resources"), nil
		}
		departmentID, err := env.Resolver.DepartmentOf(ctx, req.Subject.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Forbidden("Department head is not assigned to a department"), nil
			}
			return Decision{}, err
		}
		if requested := req.Param(ParamDepartmentID); requested != "" && requested != departmentID {
			return Forbidden(ReasonOutsideDepartment), nil
		}
		req.DepartmentID = departmentID
		return Allow(), nil
	})
}

// TutorialUploadPermission decides who may add material to a tutorial.
// Department heads are refused before any lookup.
func TutorialUploadPermission() Policy {
	return NewFunc("tutorial_upload_permission", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		switch req.Subject.Role {
		case models.RoleAdmin, models.RoleSuperAdmin:
			return Allow(), nil
		case models.RoleDepartmentHead:
			return Forbidden(ReasonHeadCannotUpload), nil
		case models.RoleInstructor:
			tutorial, decision, err := loadTutorial(ctx, env, req)
			if tutorial == nil {
				return decision, err
			}
			teaches, err := env.Resolver.InstructorTeachesCourse(ctx, req.Subject.ID, tutorial.CourseID)
			if err != nil {
				return Decision{}, err
			}
			if !teaches {
				return Forbidden(ReasonNotCourseInstructor), nil
			}
			return Allow(), nil
		default:
			return Forbidden("Role may not upload tutorial materials"), nil
		}
	})
}

// TutorialMaterialAccess grants full or read-only access to tutorial material
// and attaches the level to the request.
func TutorialMaterialAccess() Policy {
	return NewFunc("tutorial_material_access", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		switch req.Subject.Role {
		case models.RoleAdmin, models.RoleSuperAdmin, models.RoleInstructor:
			req.AccessLevel = models.AccessFull
			return Allow(), nil
		case models.RoleDepartmentHead:
			req.AccessLevel = models.AccessReadOnly
			return Allow(), nil
		case models.RoleStudent:
			tutorial, decision, err := loadTutorial(ctx, env, req)
			if tutorial == nil {
				return decision, err
			}
			if !tutorial.IsPublished {
				return Forbidden(ReasonTutorialUnpublished), nil
			}
			req.AccessLevel = models.AccessReadOnly
			return Allow(), nil
		default:
			return Forbidden("Role may not access tutorial materials"), nil
		}
	})
}

// SelfAccessOnly allows the caller to act on their own account only.
func SelfAccessOnly() Policy {
	return NewFunc("self_access_only", func(_ context.Context, _ Env, req *Request) (Decision, error) {
		target := req.Param(ParamUserID)
		if target == "" {
			return Invalid("userId is required"), nil
		}
		if target != req.Subject.ID {
			return Forbidden(ReasonNotSelf), nil
		}
		return Allow(), nil
	})
}

// MessagingPermission decides whether the caller may message recipientId.
func MessagingPermission() Policy {
	return NewFunc("messaging_permission", func(ctx context.Context, env Env, req *Request) (Decision, error) {
		recipientID := req.Param(ParamRecipientID)
		if recipientID == "" {
			return Invalid("recipientId is required"), nil
		}
		if recipientID == req.Subject.ID {
			return Invalid("Cannot send a message to yourself"), nil
		}
		recipient, err := env.Resolver.User(ctx, recipientID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Missing("Recipient not found"), nil
			}
			return Decision{}, err
		}

		decision, err := messagingDecision(ctx, env, req.Subject, recipient)
		if err != nil || !decision.Allowed {
			return decision, err
		}
		req.Recipient = recipient
		return decision, nil
	})
}

func messagingDecision(ctx context.Context, env Env, sender Subject, recipient *models.User) (Decision, error) {
	switch sender.Role {
	case models.RoleAdmin, models.RoleSuperAdmin:
		return Allow(), nil
	case models.RoleInstructor:
		if recipient.Role.IsStaff() {
			return Allow(), nil
		}
		assigned, err := env.Resolver.IsInstructorAssignedToStudent(ctx, sender.ID, recipient.ID)
		if err != nil {
			return Decision{}, err
		}
		if !assigned {
			return Forbidden(ReasonInstructorNotAssigned), nil
		}
		return Allow(), nil
	case models.RoleStudent:
		if recipient.Role != models.RoleInstructor {
			return Forbidden("Students may only message their assigned instructors"), nil
		}
		assigned, err := env.Resolver.IsInstructorAssignedToStudent(ctx, recipient.ID, sender.ID)
		if err != nil {
			return Decision{}, err
		}
		if !assigned {
			return Forbidden(ReasonInstructorNotAssigned), nil
		}
		return Allow(), nil
	case models.RoleDepartmentHead:
		if recipient.Role.IsStaff() {
			return Allow(), nil
		}
		departmentID, err := env.Resolver.DepartmentOf(ctx, sender.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Forbidden("Department head is not assigned to a department"), nil
			}
			return Decision{}, err
		}
		if recipient.DepartmentID == nil || *recipient.DepartmentID != departmentID {
			return Forbidden(ReasonOutsideDepartment), nil
		}
		return Allow(), nil
	default:
		return Forbidden("Role may not send messages"), nil
	}
}

// loadProject returns the project named by projectId, reusing one already
// attached to the request. A nil project means the returned decision or error applies.
func loadProject(ctx context.Context, env Env, req *Request) (*models.Project, Decision, error) {
	projectID := req.Param(ParamProjectID)
	if projectID == "" {
		return nil, Invalid("projectId is required"), nil
	}
	if req.Project != nil && req.Project.ID == projectID {
		return req.Project, Allow(), nil
	}
	project, err := env.Resolver.Project(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Missing("Project not found"), nil
		}
		return nil, Decision{}, err
	}
	req.Project = project
	return project, Allow(), nil
}

func loadTutorial(ctx context.Context, env Env, req *Request) (*models.Tutorial, Decision, error) {
	tutorialID := req.Param(ParamTutorialID)
	if tutorialID == "" {
		return nil, Invalid("tutorialId is required"), nil
	}
	if req.Tutorial != nil && req.Tutorial.ID == tutorialID {
		return req.Tutorial, Allow(), nil
	}
	tutorial, err := env.Resolver.Tutorial(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, Missing("Tutorial not found"), nil
		}
		return nil, Decision{}, err
	}
	req.Tutorial = tutorial
	return tutorial, Allow(), nil
}
