package identity

// Permission represents a dashboard capability that can be granted to a role.
type Permission string

const (
	PermissionViewProfiles  Permission = "view_profiles"
	PermissionModerateUsers Permission = "moderate_users"
	PermissionAddNotes      Permission = "add_notes"
	PermissionViewAuditLog  Permission = "view_audit_log"
)

// AllPermissions returns all available permissions
func AllPermissions() []Permission {
	return []Permission{
		PermissionViewProfiles,
		PermissionModerateUsers,
		PermissionAddNotes,
		PermissionViewAuditLog,
	}
}

// RoleName represents the name of a dashboard role
type RoleName string

const (
	RoleAdmin     RoleName = "admin"
	RoleModerator RoleName = "moderator"
)

// Role defines a set of permissions for dashboard users
type Role struct {
	Name        RoleName     `json:"-"` // Set from map key during loading
	Description string       `json:"description"`
	Permissions []Permission `json:"permissions"`
}

// HasPermission checks if this role has the given permission
func (r *Role) HasPermission(perm Permission) bool {
	for _, p := range r.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// AdminUser represents a user with dashboard privileges
type AdminUser struct {
	ID     string   `json:"id"`
	Handle string   `json:"handle,omitempty"`
	Role   RoleName `json:"role"`
	Token  string   `json:"token"`
	Note   string   `json:"note,omitempty"`
}

// Config represents the identity configuration loaded from JSON
type Config struct {
	Roles map[RoleName]*Role `json:"roles"`
	Users []AdminUser        `json:"users"`
}

// Validate checks that the config is valid
func (c *Config) Validate() error {
	if c.Roles == nil {
		c.Roles = make(map[RoleName]*Role)
	}

	// Validate that all users reference valid roles
	for _, user := range c.Users {
		if _, ok := c.Roles[user.Role]; !ok {
			return &ConfigError{
				Field:   "users",
				Message: "user " + user.ID + " references unknown role: " + string(user.Role),
			}
		}
	}

	// Set role names from map keys
	for name, role := range c.Roles {
		role.Name = name
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "identity config error in " + e.Field + ": " + e.Message
}
