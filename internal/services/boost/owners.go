package boost

import (
	"context"
	"fmt"

	"standoff-tracker/internal/models"

	"gorm.io/gorm"
)

// DBOwners resolves boost alert recipients from the inventory tables.
type DBOwners struct {
	db *gorm.DB
}

func NewDBOwners(db *gorm.DB) *DBOwners {
	return &DBOwners{db: db}
}

// PremiumOwners returns the distinct users who hold the item in any of their
// portfolio accounts and have a premium subscription.
func (o *DBOwners) PremiumOwners(ctx context.Context, itemID uint) ([]uint, error) {
	var userIDs []uint
	err := o.db.WithContext(ctx).
		Model(&models.User{}).
		Distinct("users.id").
		Joins("JOIN portfolio_accounts ON portfolio_accounts.user_id = users.id").
		Joins("JOIN inventory_items ON inventory_items.portfolio_account_id = portfolio_accounts.id").
		Where("inventory_items.item_id = ? AND users.sub_tier >= ?", itemID, models.SubPremium).
		Pluck("users.id", &userIDs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve item owners: %w", err)
	}
	return userIDs, nil
}
