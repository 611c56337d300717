package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `{
	"roles": {
		"admin": {
			"description": "Full dashboard access",
			"permissions": ["view_profiles", "moderate_users", "add_notes", "view_audit_log"]
		},
		"moderator": {
			"description": "Read-only review access",
			"permissions": ["view_profiles", "view_audit_log"]
		}
	},
	"users": [
		{"id": "admin-1", "handle": "@root", "role": "admin", "token": "tok-admin"},
		{"id": "mod-1", "handle": "@reviewer", "role": "moderator", "token": "tok-mod"}
	]
}`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roles.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestService_LoadConfig(t *testing.T) {
	s, err := NewService(writeTestConfig(t, testConfig))
	require.NoError(t, err)

	assert.True(t, s.IsEnabled())
	assert.True(t, s.IsAdmin("admin-1"))
	assert.False(t, s.IsAdmin("mod-1"))
	assert.True(t, s.IsModerator("mod-1"))
	assert.True(t, s.IsModerator("admin-1"), "admins count as moderators")
	assert.False(t, s.IsModerator("stranger"))
}

func TestService_HasPermission(t *testing.T) {
	s, err := NewService(writeTestConfig(t, testConfig))
	require.NoError(t, err)

	assert.True(t, s.HasPermission("admin-1", PermissionModerateUsers))
	assert.True(t, s.HasPermission("mod-1", PermissionViewProfiles))
	assert.False(t, s.HasPermission("mod-1", PermissionModerateUsers))
	assert.False(t, s.HasPermission("stranger", PermissionViewProfiles))
}

func TestService_Lookup(t *testing.T) {
	s, err := NewService(writeTestConfig(t, testConfig))
	require.NoError(t, err)

	id, ok := s.Lookup("tok-admin")
	assert.True(t, ok)
	assert.Equal(t, "admin-1", id)

	_, ok = s.Lookup("wrong-token")
	assert.False(t, ok)
}

func TestService_EmptyPathDisablesService(t *testing.T) {
	s, err := NewService("")
	require.NoError(t, err)

	assert.False(t, s.IsEnabled())
	assert.False(t, s.IsAdmin("anyone"))
	assert.False(t, s.HasPermission("anyone", PermissionViewProfiles))
}

func TestService_MissingFileDisablesService(t *testing.T) {
	s, err := NewService(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.False(t, s.IsEnabled())
}

func TestService_UnknownRoleRejected(t *testing.T) {
	path := writeTestConfig(t, `{
		"roles": {},
		"users": [{"id": "u1", "role": "superuser", "token": "t"}]
	}`)

	_, err := NewService(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestService_MalformedConfigRejected(t *testing.T) {
	_, err := NewService(writeTestConfig(t, "{not json"))
	require.Error(t, err)
}

func TestService_GetAdminUserReturnsCopy(t *testing.T) {
	s, err := NewService(writeTestConfig(t, testConfig))
	require.NoError(t, err)

	user, ok := s.GetAdminUser("admin-1")
	require.True(t, ok)
	user.Role = "tampered"

	fresh, ok := s.GetAdminUser("admin-1")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, fresh.Role)
}

func TestService_Reload(t *testing.T) {
	path := writeTestConfig(t, testConfig)
	s, err := NewService(path)
	require.NoError(t, err)
	require.True(t, s.IsAdmin("admin-1"))

	updated := `{
		"roles": {"admin": {"permissions": ["view_profiles"]}},
		"users": [{"id": "admin-2", "role": "admin", "token": "tok-2"}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))
	require.NoError(t, s.Reload())

	assert.False(t, s.IsAdmin("admin-1"))
	assert.True(t, s.IsAdmin("admin-2"))
}

func TestListAdminUsers(t *testing.T) {
	s, err := NewService(writeTestConfig(t, testConfig))
	require.NoError(t, err)

	users := s.ListAdminUsers()
	assert.Len(t, users, 2)
}
