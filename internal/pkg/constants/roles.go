package constants

const (
	NationalAdmin   = "national_admin"
	RegionalManager = "regional_manager"
	BranchManager   = "branch_manager"
	Member          = "member"
)

// ValidRoles is the set of allowed values for organization_members.role.
var ValidRoles = []string{Member, BranchManager, RegionalManager, NationalAdmin}

// IsValidRole returns true if role is one of the allowed enum values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsManagerRole returns true for roles that may issue invite codes.
func IsManagerRole(role string) bool {
	return role == NationalAdmin || role == RegionalManager || role == BranchManager
}
