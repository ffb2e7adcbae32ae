package join

import (
	"context"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
)

// IdentityProvider creates auth identities and reports their visibility.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password string, metadata map[string]interface{}) (uuid.UUID, error)
	UserExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// IdentityRecoverer is implemented by providers that can authenticate an
// existing identity. Redeem uses it to resume an interrupted signup.
type IdentityRecoverer interface {
	SignInWithPassword(ctx context.Context, email, password string) (uuid.UUID, error)
}

// MemberRegistrar runs the register_organization_member contract.
type MemberRegistrar interface {
	Register(ctx context.Context, p domain.RegistrationParams) (*domain.RegistrationResult, error)
}

// UsageCounter increments current_uses; false means the guard rejected it.
type UsageCounter interface {
	IncrementUsage(ctx context.Context, codeID uuid.UUID) (bool, error)
}

// UsageRetryQueue holds code ids whose increment must be re-applied.
type UsageRetryQueue interface {
	Push(ctx context.Context, codeID uuid.UUID) error
}
