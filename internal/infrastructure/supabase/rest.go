package supabase

import (
	"context"
	"net/http"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
)

// RESTClient calls PostgREST remote procedures.
type RESTClient struct {
	*Client
}

// Register calls register_organization_member.
func (r *RESTClient) Register(ctx context.Context, p domain.RegistrationParams) (*domain.RegistrationResult, error) {
	var dob interface{}
	if p.DateOfBirth != nil {
		dob = p.DateOfBirth.Format("2006-01-02")
	}
	body := map[string]interface{}{
		"p_organization_id":   p.OrganizationID,
		"p_user_id":           p.UserID,
		"p_region_id":         p.RegionID,
		"p_member_number":     p.MemberNumber,
		"p_member_type":       p.MemberType,
		"p_membership_tier":   p.MembershipTier,
		"p_membership_status": p.MembershipStatus,
		"p_first_name":        p.FirstName,
		"p_last_name":         p.LastName,
		"p_email":             p.Email,
		"p_phone":             p.Phone,
		"p_id_number":         p.IDNumber,
		"p_date_of_birth":     dob,
		"p_physical_address":  p.PhysicalAddress,
		"p_role":              p.Role,
		"p_invite_code_used":  p.InviteCodeUsed,
		"p_joined_via":        p.JoinedVia,
	}
	var out domain.RegistrationResult
	if err := r.do(ctx, http.MethodPost, "/rest/v1/rpc/register_organization_member", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IncrementUsage calls increment_invite_code_usage. False means the code
// was missing or already at its limit.
func (r *RESTClient) IncrementUsage(ctx context.Context, codeID uuid.UUID) (bool, error) {
	var ok bool
	if err := r.do(ctx, http.MethodPost, "/rest/v1/rpc/increment_invite_code_usage", "", map[string]interface{}{"code_id": codeID}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}
