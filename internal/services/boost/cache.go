package boost

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"standoff-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// Record is one active boost: a sustained upward price deviation of a
// catalog item against its recent baseline. Records are rebuilt every
// detection cycle and live only in the side cache.
type Record struct {
	ItemID        uint              `json:"item_id"`
	Name          string            `json:"name"`
	SkinName      string            `json:"skin_name,omitempty"`
	ImageURL      string            `json:"image_url,omitempty"`
	Rarity        models.ItemRarity `json:"rarity"`
	BaselinePrice decimal.Decimal   `json:"baseline_price"`
	CurrentPrice  decimal.Decimal   `json:"current_price"`
	GrowthPercent float64           `json:"growth_percent"`
	DetectedAt    time.Time         `json:"detected_at"`
}

// Cache persists the active boost set between detection cycles as a single
// JSON document.
type Cache struct {
	path string
}

func NewCache(dataDir string) (*Cache, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create boost cache dir: %w", err)
	}
	return &Cache{path: filepath.Join(dataDir, "boosts_cache.json")}, nil
}

// Load reads the previously persisted boost set. A missing or corrupt cache
// reads as empty; the next detection cycle rebuilds it from scratch.
func (c *Cache) Load() []Record {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// Save replaces the cache atomically so readers never observe a half-written
// snapshot.
func (c *Cache) Save(records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode boost cache: %w", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write boost cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace boost cache: %w", err)
	}
	return nil
}
