package rbac

// Role names. Keep these stable; they are stored on users and embedded in tokens.
const (
	RoleOwner      = "owner"
	RoleMember     = "member"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleMember, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
