package prices

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"standoff-tracker/internal/logging"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

// CachePoint is one cached daily price of an item.
type CachePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// FileCache keeps one JSON file per item with at most one price point per
// calendar day. It is a read optimization for chart endpoints; the relational
// history table stays authoritative.
type FileCache struct {
	dir string
	log *logrus.Entry
}

func NewFileCache(dataDir string) (*FileCache, error) {
	dir := filepath.Join(dataDir, "price-history")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create price cache dir: %w", err)
	}
	return &FileCache{dir: dir, log: logging.Component("price-cache")}, nil
}

func (c *FileCache) path(itemID uint) string {
	return filepath.Join(c.dir, fmt.Sprintf("item_%d.json", itemID))
}

// Load returns the cached points of an item ordered by date ascending.
// A missing or unreadable file reads as an empty history.
func (c *FileCache) Load(itemID uint) []CachePoint {
	data, err := os.ReadFile(c.path(itemID))
	if err != nil {
		return nil
	}
	var points []CachePoint
	if err := json.Unmarshal(data, &points); err != nil {
		c.log.WithError(err).WithField("item_id", itemID).Warn("Corrupt price cache file, treating as empty")
		return nil
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// Record appends today's price for an item. A second record on the same
// calendar day overwrites the existing point instead of adding one.
func (c *FileCache) Record(itemID uint, price decimal.Decimal, at time.Time) error {
	day := at.Format(dayLayout)
	points := c.Load(itemID)
	replaced := false
	for i := range points {
		if points[i].Date == day {
			points[i].Price = price
			replaced = true
			break
		}
	}
	if !replaced {
		points = append(points, CachePoint{Date: day, Price: price})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return c.write(itemID, points)
}

// Recent returns the last n cached points of an item, oldest first.
func (c *FileCache) Recent(itemID uint, n int) []CachePoint {
	points := c.Load(itemID)
	if n > 0 && len(points) > n {
		points = points[len(points)-n:]
	}
	return points
}

// DailyChange returns the absolute and percent difference between the two
// newest cached days. It reports ok=false with fewer than two points or a
// zero previous price.
func (c *FileCache) DailyChange(itemID uint) (change, percent decimal.Decimal, ok bool) {
	points := c.Load(itemID)
	if len(points) < 2 {
		return decimal.Zero, decimal.Zero, false
	}
	prev := points[len(points)-2].Price
	last := points[len(points)-1].Price
	if prev.IsZero() {
		return decimal.Zero, decimal.Zero, false
	}
	change = last.Sub(prev)
	percent = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
	return change, percent, true
}

// Stats returns min, max and average over the last days cached points.
func (c *FileCache) Stats(itemID uint, days int) (min, max, avg decimal.Decimal, ok bool) {
	points := c.Recent(itemID, days)
	if len(points) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	min = points[0].Price
	max = points[0].Price
	sum := decimal.Zero
	for _, p := range points {
		if p.Price.LessThan(min) {
			min = p.Price
		}
		if p.Price.GreaterThan(max) {
			max = p.Price
		}
		sum = sum.Add(p.Price)
	}
	avg = sum.Div(decimal.NewFromInt(int64(len(points)))).Round(2)
	return min, max, avg, true
}

// Prune drops cached points older than the retention window from every item
// file. The relational history table is never touched.
func (c *FileCache) Prune(retention time.Duration, now time.Time) error {
	cutoff := now.Add(-retention).Format(dayLayout)
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("failed to scan price cache dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var itemID uint
		if _, err := fmt.Sscanf(entry.Name(), "item_%d.json", &itemID); err != nil {
			continue
		}
		points := c.Load(itemID)
		kept := points[:0]
		for _, p := range points {
			if p.Date >= cutoff {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(points) {
			continue
		}
		if err := c.write(itemID, kept); err != nil {
			return err
		}
	}
	return nil
}

func (c *FileCache) write(itemID uint, points []CachePoint) error {
	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode price cache: %w", err)
	}
	tmp := c.path(itemID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write price cache: %w", err)
	}
	if err := os.Rename(tmp, c.path(itemID)); err != nil {
		return fmt.Errorf("failed to replace price cache: %w", err)
	}
	return nil
}
