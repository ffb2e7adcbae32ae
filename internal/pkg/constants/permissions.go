package constants

const (
	IssueInviteCode = "issue_invite_code"
	ViewInviteCodes = "view_invite_codes"
	ViewMembers     = "view_members"
	ManageRegions   = "manage_regions"
)

// PermissionRoles maps each permission to roles allowed to perform it.
var PermissionRoles = map[string][]string{
	IssueInviteCode: {BranchManager, RegionalManager, NationalAdmin},
	ViewInviteCodes: {BranchManager, RegionalManager, NationalAdmin},
	ViewMembers:     {BranchManager, RegionalManager, NationalAdmin},
	ManageRegions:   {NationalAdmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
