package members

import (
	"context"
	"errors"
	"strings"

	"soa-backend/internal/domain"
	"soa-backend/internal/infrastructure/database"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// GormIdentities is the local identity provider used when no Supabase
// project is configured. Passwords are stored as bcrypt hashes.
type GormIdentities struct {
	DB *gorm.DB
}

func (g *GormIdentities) CreateUser(ctx context.Context, email, password string, _ map[string]interface{}) (uuid.UUID, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, err
	}
	id := &domain.Identity{Email: strings.ToLower(strings.TrimSpace(email)), PasswordHash: string(hash)}
	if err := g.DB.WithContext(ctx).Create(id).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return uuid.Nil, domain.ErrIdentityExists
		}
		return uuid.Nil, err
	}
	return id.ID, nil
}

func (g *GormIdentities) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := g.DB.WithContext(ctx).Model(&domain.Identity{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// SignInWithPassword verifies the password and returns the identity id.
func (g *GormIdentities) SignInWithPassword(ctx context.Context, email, password string) (uuid.UUID, error) {
	var id domain.Identity
	err := g.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, domain.ErrInvalidCredentials
		}
		return uuid.Nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)); err != nil {
		return uuid.Nil, domain.ErrInvalidCredentials
	}
	return id.ID, nil
}
