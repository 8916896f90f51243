package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/noah-isme/otpas-api/internal/models"
)

//go:embed rbac_model.conf
var rbacModel string

//go:embed permissions.csv
var defaultPermissions string

// Permission identifiers in object:action form.
const (
	PermProjectSubmit         = "project:submit"
	PermProjectReadOwn        = "project:read_own"
	PermProjectUpload         = "project:upload"
	PermProjectReadAssigned   = "project:read_assigned"
	PermProjectReview         = "project:review"
	PermProjectReadDepartment = "project:read_department"
	PermEvaluationCreate      = "evaluation:create"
	PermEvaluationRead        = "evaluation:read"
	PermReportView            = "report:view"
	PermTutorialRead          = "tutorial:read"
	PermTutorialUpload        = "tutorial:upload"
	PermMessageSend           = "message:send"
	PermMessageRead           = "message:read"
	PermUserManage            = "user:manage"
	PermSystemConfigure       = "system:configure"
)

// Permissions is the static role to permission table. It is built once at
// start-up and never modified afterwards.
type Permissions struct {
	enforcer *casbin.Enforcer
	byRole   map[models.Role][]string
}

// DefaultPermissions loads the embedded table.
func DefaultPermissions() (*Permissions, error) {
	return NewPermissions(defaultPermissions)
}

// NewPermissions builds the table from "p, role, object, action" lines.
func NewPermissions(table string) (*Permissions, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load permission model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create permission enforcer: %w", err)
	}

	byRole := make(map[models.Role][]string)
	for n, line := range strings.Split(table, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) != 4 || parts[0] != "p" {
			return nil, fmt.Errorf("permission table line %d: expected \"p, role, object, action\"", n+1)
		}
		role, err := models.ParseRole(parts[1])
		if err != nil {
			return nil, fmt.Errorf("permission table line %d: %w", n+1, err)
		}
		if _, err := enforcer.AddPolicy(role.String(), parts[2], parts[3]); err != nil {
			return nil, fmt.Errorf("permission table line %d: %w", n+1, err)
		}
		byRole[role] = append(byRole[role], parts[2]+":"+parts[3])
	}
	for role := range byRole {
		sort.Strings(byRole[role])
	}

	return &Permissions{enforcer: enforcer, byRole: byRole}, nil
}

// Has reports whether role holds perm ("object:action").
func (p *Permissions) Has(role models.Role, perm string) (bool, error) {
	if p == nil || !role.Valid() {
		return false, nil
	}
	object, action, ok := strings.Cut(perm, ":")
	if !ok {
		return false, fmt.Errorf("malformed permission %q", perm)
	}
	allowed, err := p.enforcer.Enforce(role.String(), object, action)
	if err != nil {
		return false, fmt.Errorf("enforce %s for %s: %w", perm, role, err)
	}
	return allowed, nil
}

// For returns a sorted copy of the permissions granted to role.
func (p *Permissions) For(role models.Role) []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.byRole[role]))
	copy(out, p.byRole[role])
	return out
}
