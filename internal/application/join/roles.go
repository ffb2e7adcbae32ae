package join

import (
	"strings"

	"soa-backend/internal/pkg/constants"
)

// legacyRoleTypes maps join_requests.requested_role onto member types.
var legacyRoleTypes = map[string]string{
	"youth_member":      "volunteer",
	"youth_volunteer":   "volunteer",
	"youth_leader":      "facilitator",
	"youth_facilitator": "facilitator",
	"student":           "learner",
	"learner":           "learner",
	"mentor":            "mentor",
	"facilitator":       "facilitator",
	"volunteer":         "volunteer",
	"staff":             "staff",
}

// MemberTypeForRole returns the member type for a legacy requested role.
// Unknown roles map to the generic member type.
func MemberTypeForRole(role string) string {
	if t, ok := legacyRoleTypes[strings.ToLower(strings.TrimSpace(role))]; ok {
		return t
	}
	return constants.MemberTypeMember
}
