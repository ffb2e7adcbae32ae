package join

import (
	"time"

	"soa-backend/internal/domain"
)

// Kind tells which table an invite was resolved from.
type Kind string

const (
	KindStandard Kind = "standard"
	KindLegacy   Kind = "legacy"
)

// Invite is a verified code normalized across both lookup paths. Exactly
// one of Standard and Legacy is set, matching Kind.
type Invite struct {
	Kind     Kind
	Code     string
	Standard *domain.InviteCode
	Legacy   *domain.JoinRequest

	Organization       domain.Organization
	Region             domain.OrganizationRegion
	AllowedMemberTypes []string
	DefaultMemberType  string
	ExpiresAt          *time.Time
	MemberCount        int64
}

// JoinedVia is the joined_via value recorded on the membership.
func (i *Invite) JoinedVia() string {
	if i.Kind == KindLegacy {
		return domain.JoinedViaJoinRequest
	}
	return domain.JoinedViaInviteCode
}

// Allows reports whether memberType may be used with this invite.
func (i *Invite) Allows(memberType string) bool {
	for _, t := range i.AllowedMemberTypes {
		if t == memberType {
			return true
		}
	}
	return false
}

func fromJoinRequest(jr *domain.JoinRequest, org domain.Organization, region domain.OrganizationRegion) *Invite {
	memberType := MemberTypeForRole(jr.RequestedRole)
	return &Invite{
		Kind:               KindLegacy,
		Code:               jr.InviteCode,
		Legacy:             jr,
		Organization:       org,
		Region:             region,
		AllowedMemberTypes: []string{memberType},
		DefaultMemberType:  memberType,
		ExpiresAt:          jr.ExpiresAt,
	}
}

func fromInviteCode(ic *domain.InviteCode, org domain.Organization, region domain.OrganizationRegion) *Invite {
	types := append([]string(nil), ic.AllowedMemberTypes...)
	var def string
	if len(types) > 0 {
		def = types[0]
	}
	return &Invite{
		Kind:               KindStandard,
		Code:               ic.Code,
		Standard:           ic,
		Organization:       org,
		Region:             region,
		AllowedMemberTypes: types,
		DefaultMemberType:  def,
		ExpiresAt:          ic.ExpiresAt,
	}
}
