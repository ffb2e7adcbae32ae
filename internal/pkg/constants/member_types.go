package constants

// Member types a code may allow.
const (
	MemberTypeLearner     = "learner"
	MemberTypeVolunteer   = "volunteer"
	MemberTypeFacilitator = "facilitator"
	MemberTypeMentor      = "mentor"
	MemberTypeStaff       = "staff"
	MemberTypeMember      = "member"
)

var MemberTypes = []string{
	MemberTypeLearner,
	MemberTypeVolunteer,
	MemberTypeFacilitator,
	MemberTypeMentor,
	MemberTypeStaff,
	MemberTypeMember,
}

func IsValidMemberType(t string) bool {
	for _, m := range MemberTypes {
		if m == t {
			return true
		}
	}
	return false
}

const (
	MembershipTierStandard = "standard"
)
