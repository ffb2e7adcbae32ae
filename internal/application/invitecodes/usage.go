package invitecodes

import (
	"context"

	"soa-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUsageCounter increments current_uses in place. The WHERE clause keeps
// current_uses <= max_uses under concurrent redemptions.
type GormUsageCounter struct {
	DB *gorm.DB
}

func (g *GormUsageCounter) IncrementUsage(ctx context.Context, codeID uuid.UUID) (bool, error) {
	res := g.DB.WithContext(ctx).Model(&domain.InviteCode{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", codeID).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
