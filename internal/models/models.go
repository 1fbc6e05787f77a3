package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ItemRarity orders rarities from least to most valuable.
type ItemRarity int

const (
	RarityCommon ItemRarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityArcane
	RarityNameless
)

func (r ItemRarity) String() string {
	switch r {
	case RarityCommon:
		return "Common"
	case RarityUncommon:
		return "Uncommon"
	case RarityRare:
		return "Rare"
	case RarityEpic:
		return "Epic"
	case RarityLegendary:
		return "Legendary"
	case RarityArcane:
		return "Arcane"
	case RarityNameless:
		return "Nameless"
	}
	return "Common"
}

// ParseRarity maps a rarity label from the external source to the enum.
// Unknown labels fall back to Common.
func ParseRarity(s string) ItemRarity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "uncommon":
		return RarityUncommon
	case "rare":
		return RarityRare
	case "epic":
		return RarityEpic
	case "legendary":
		return RarityLegendary
	case "arcane":
		return RarityArcane
	case "nameless":
		return RarityNameless
	}
	return RarityCommon
}

// ItemType categorizes catalog items. Gun is the zero value and acts as the
// "unknown" sentinel: imports only overwrite a type that is still Gun.
type ItemType int

const (
	TypeGun ItemType = iota
	TypeSkin
	TypeSticker
	TypeCharm
	TypeContainer
	TypeGlove
	TypeKnife
	TypeGraffiti
	TypeGrenade
)

func (t ItemType) String() string {
	switch t {
	case TypeGun:
		return "Gun"
	case TypeSkin:
		return "Skin"
	case TypeSticker:
		return "Sticker"
	case TypeCharm:
		return "Charm"
	case TypeContainer:
		return "Container"
	case TypeGlove:
		return "Glove"
	case TypeKnife:
		return "Knife"
	case TypeGraffiti:
		return "Graffiti"
	case TypeGrenade:
		return "Grenade"
	}
	return "Gun"
}

// SubscriptionTier gates premium-only features such as boost notifications.
type SubscriptionTier int

const (
	SubFree SubscriptionTier = iota
	SubBasic
	SubPremium
)

// Collection groups items released together (a case line, an event drop).
type Collection struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"unique;not null"`
	ImageURL  string         `json:"image_url"`
	IsRemoved bool           `json:"is_removed" gorm:"default:false"`
	Items     []Item         `json:"items,omitempty" gorm:"foreignKey:CollectionID"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Item is a catalog entry: one tradable item definition, independent of any
// user's inventory. Identity is (Name, SkinName, IsStatTrack).
type Item struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Name         string          `json:"name" gorm:"not null;index"` // base name, e.g. "AKR" or "Empire Case"
	SkinName     string          `json:"skin_name" gorm:"index"`     // empty for containers and packs
	OriginalName string          `json:"original_name"`              // raw external name, kept for re-matching
	Rarity       ItemRarity      `json:"rarity" gorm:"index"`
	Type         ItemType        `json:"type" gorm:"index"`
	IsStatTrack  bool            `json:"is_stat_track" gorm:"default:false"`
	IsPattern    bool            `json:"is_pattern" gorm:"default:false"`
	CollectionID uint            `json:"collection_id" gorm:"index"`
	Collection   *Collection     `json:"collection,omitempty" gorm:"foreignKey:CollectionID"`
	ImageURL     string          `json:"image_url"`
	CurrentPrice decimal.Decimal `json:"current_price" gorm:"type:decimal(18,2)"`
	LastUpdate   time.Time       `json:"last_update"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"`
}

// IdentityKey builds the deduplication key used by the reconciler.
func IdentityKey(baseName, skinName string, statTrack bool) string {
	return fmt.Sprintf("%s|%s|%t", strings.ToLower(strings.TrimSpace(baseName)), strings.ToLower(strings.TrimSpace(skinName)), statTrack)
}

// Key returns the item's identity key.
func (i *Item) Key() string {
	return IdentityKey(i.Name, i.SkinName, i.IsStatTrack)
}

// FullName is the display/request name: base name plus skin name.
func (i *Item) FullName() string {
	return strings.TrimSpace(i.Name + " " + i.SkinName)
}

// MarketHistory is the authoritative append-only price series.
type MarketHistory struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	ItemID     uint            `json:"item_id" gorm:"not null;index:idx_history_item_time,priority:1"`
	Item       *Item           `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(18,2)"`
	RecordedAt time.Time       `json:"recorded_at" gorm:"index:idx_history_item_time,priority:2"`
}

// User is the minimal identity slice this core needs: a target for
// notifications and a subscription tier. Full identity management lives in
// an external component.
type User struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	Username  string           `json:"username"`
	SubTier   SubscriptionTier `json:"sub_tier" gorm:"default:0"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// PortfolioAccount links a user to a tracked inventory.
type PortfolioAccount struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InventoryItem is a holding of a catalog item inside a portfolio.
type InventoryItem struct {
	ID                 uint              `json:"id" gorm:"primaryKey"`
	PortfolioAccountID uint              `json:"portfolio_account_id" gorm:"not null;index"`
	PortfolioAccount   *PortfolioAccount `json:"portfolio_account,omitempty" gorm:"foreignKey:PortfolioAccountID"`
	ItemID             uint              `json:"item_id" gorm:"not null;index"`
	Item               *Item             `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	IsStatTrack        bool              `json:"is_stat_track"`
	PurchasePrice      decimal.Decimal   `json:"purchase_price" gorm:"type:decimal(18,2)"`
	Quantity           int               `json:"quantity" gorm:"default:1"`
	PurchaseDate       time.Time         `json:"purchase_date"`
}
