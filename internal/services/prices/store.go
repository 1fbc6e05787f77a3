package prices

import (
	"context"
	"fmt"
	"time"

	"standoff-tracker/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceUpdate is one staged fetch result: the refreshed current price of an
// item plus the history row to append.
type PriceUpdate struct {
	Item       *models.Item
	Price      decimal.Decimal
	RecordedAt time.Time
}

// Store is the persistence surface of the fetch pipeline.
type Store interface {
	AllItems(ctx context.Context) ([]*models.Item, error)
	OwnedItems(ctx context.Context) ([]*models.Item, error)
	CommitPrices(ctx context.Context, updates []PriceUpdate) error
}

// DBStore is the MySQL-backed store: the relational history table is the
// source of truth for all analytics.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore {
	return &DBStore{db: db}
}

func (s *DBStore) AllItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	if err := s.db.WithContext(ctx).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return items, nil
}

// OwnedItems returns the catalog items currently held in any portfolio,
// used by the tighter-cadence refresh of owned items.
func (s *DBStore) OwnedItems(ctx context.Context) ([]*models.Item, error) {
	var items []*models.Item
	err := s.db.WithContext(ctx).
		Joins("JOIN inventory_items ON inventory_items.item_id = items.id").
		Distinct("items.*").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load owned items: %w", err)
	}
	return items, nil
}

// CommitPrices persists all staged updates of one fetch cycle in a single
// transaction: current prices plus the appended history rows. Workers never
// write here directly.
func (s *DBStore) CommitPrices(ctx context.Context, updates []PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			err := tx.Model(&models.Item{}).Where("id = ?", u.Item.ID).
				Updates(map[string]interface{}{
					"current_price": u.Price,
					"last_update":   u.RecordedAt,
				}).Error
			if err != nil {
				return err
			}
			row := models.MarketHistory{
				ItemID:     u.Item.ID,
				Price:      u.Price,
				RecordedAt: u.RecordedAt,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// PricesSince returns the history prices of one item inside the lookback
// window, ordered by recording time ascending.
func (s *DBStore) PricesSince(ctx context.Context, itemID uint, since time.Time) ([]decimal.Decimal, error) {
	var rows []models.MarketHistory
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND recorded_at >= ?", itemID, since).
		Order("recorded_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	out := make([]decimal.Decimal, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Price)
	}
	return out, nil
}

// Series returns (timestamp, price) pairs for chart rendering, ascending.
func (s *DBStore) Series(ctx context.Context, itemID uint, since time.Time) ([]models.MarketHistory, error) {
	var rows []models.MarketHistory
	err := s.db.WithContext(ctx).
		Where("item_id = ? AND recorded_at >= ?", itemID, since).
		Order("recorded_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load price series: %w", err)
	}
	return rows, nil
}

// LatestTimestamp returns the newest history record time, zero when the
// table is empty. The scheduler reads it to skip still-fresh cycles.
func (s *DBStore) LatestTimestamp(ctx context.Context) (time.Time, error) {
	var row models.MarketHistory
	err := s.db.WithContext(ctx).Order("recorded_at desc").Limit(1).Find(&row).Error
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest history timestamp: %w", err)
	}
	return row.RecordedAt, nil
}
