package policy

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/models"
)

func TestDefaultPermissionsTable(t *testing.T) {
	perms, err := DefaultPermissions()
	require.NoError(t, err)

	for _, role := range models.AllRoles {
		granted := perms.For(role)
		assert.NotEmpty(t, granted, role.String())
		assert.True(t, sort.StringsAreSorted(granted))
	}

	cases := []struct {
		role models.Role
		perm string
		want bool
	}{
		{models.RoleStudent, PermProjectSubmit, true},
		{models.RoleStudent, PermEvaluationCreate, false},
		{models.RoleInstructor, PermEvaluationCreate, true},
		{models.RoleInstructor, PermReportView, false},
		{models.RoleDepartmentHead, PermReportView, true},
		{models.RoleDepartmentHead, PermTutorialUpload, false},
		{models.RoleAdmin, PermTutorialUpload, true},
		{models.RoleAdmin, PermSystemConfigure, false},
		{models.RoleSuperAdmin, PermSystemConfigure, true},
		{models.RoleUnknown, PermTutorialRead, false},
	}
	for _, tc := range cases {
		ok, err := perms.Has(tc.role, tc.perm)
		require.NoError(t, err)
		assert.Equal(t, tc.want, ok, "%s %s", tc.role, tc.perm)
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms, err := DefaultPermissions()
	require.NoError(t, err)

	granted := perms.For(models.RoleStudent)
	granted[0] = "tampered:yes"
	assert.NotContains(t, perms.For(models.RoleStudent), "tampered:yes")
}

func TestNewPermissionsRejectsBadTable(t *testing.T) {
	_, err := NewPermissions("p, dean, project, submit")
	assert.Error(t, err)

	_, err = NewPermissions("p, student, project")
	assert.Error(t, err)

	perms, err := NewPermissions("# only comments\n\np, student, tutorial, read\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"tutorial:read"}, perms.For(models.RoleStudent))

	_, err = perms.Has(models.RoleStudent, "malformed")
	assert.Error(t, err)
}
