// Package policy decides whether an authenticated caller may perform an
// operation. Each capability is a named Policy; routes and workflow
// transitions compose them into ordered chains evaluated by the Engine.
package policy

import (
	"context"
	"strings"

	"github.com/noah-isme/otpas-api/internal/models"
)

// Identifier names looked up in Request.Params.
const (
	ParamStudentID    = "studentId"
	ParamProjectID    = "projectId"
	ParamUserID       = "userId"
	ParamRecipientID  = "recipientId"
	ParamDepartmentID = "departmentId"
	ParamTutorialID   = "tutorialId"
	ParamCourseID     = "courseId"
)

// IdentifierParams lists every identifier the authorization layer reads from a request.
var IdentifierParams = []string{
	ParamStudentID,
	ParamProjectID,
	ParamUserID,
	ParamRecipientID,
	ParamDepartmentID,
	ParamTutorialID,
	ParamCourseID,
}

// Policy is one named authorization capability. Evaluate returns a Decision for
// policy outcomes and a non-nil error only for infrastructure failures.
type Policy interface {
	Name() string
	Evaluate(ctx context.Context, env Env, req *Request) (Decision, error)
}

// Env carries the read-only collaborators available to every policy.
type Env struct {
	Resolver    Resolver
	Permissions *Permissions
}

// Subject is the authenticated caller.
type Subject struct {
	ID   string
	Role models.Role
}

// Request is the input of a chain. Policies may attach resolved resources so
// later links and the handler do not repeat the lookup.
type Request struct {
	Method  string
	Subject Subject
	Params  map[string]string

	Project      *models.Project
	Tutorial     *models.Tutorial
	Recipient    *models.User
	StudentID    string
	DepartmentID string
	AccessLevel  models.AccessLevel
}

// NewRequest builds a request for subject with optional identifier params.
func NewRequest(subject Subject, params map[string]string) *Request {
	if params == nil {
		params = map[string]string{}
	}
	return &Request{Subject: subject, Params: params}
}

// Param returns the trimmed identifier, or "" when absent.
func (r *Request) Param(name string) string {
	if r == nil || r.Params == nil {
		return ""
	}
	return strings.TrimSpace(r.Params[name])
}

// Func adapts a function into a Policy.
type Func struct {
	name string
	fn   func(ctx context.Context, env Env, req *Request) (Decision, error)
}

// NewFunc returns a Policy named name backed by fn.
func NewFunc(name string, fn func(ctx context.Context, env Env, req *Request) (Decision, error)) Func {
	return Func{name: name, fn: fn}
}

// Name implements Policy.
func (f Func) Name() string { return f.name }

// Evaluate implements Policy.
func (f Func) Evaluate(ctx context.Context, env Env, req *Request) (Decision, error) {
	return f.fn(ctx, env, req)
}
