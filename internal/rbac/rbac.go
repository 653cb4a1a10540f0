package rbac

// Role constants
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
)

// Permission constants
const (
	PermAuditRead    = "audit.read"
	PermAuditExport  = "audit.export"
	PermAuditArchive = "audit.archive"
)

// RolePermissions defines what each console role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermAuditRead, PermAuditExport, PermAuditArchive,
	},
	RoleSupport: {
		PermAuditRead, PermAuditExport,
		// Support CANNOT: PermAuditArchive
	},
}

// IsRole reports whether role is a known console role.
func IsRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
