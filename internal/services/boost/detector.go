package boost

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// History reads the authoritative price series of an item inside a lookback
// window, ordered ascending.
type History interface {
	PricesSince(ctx context.Context, itemID uint, since time.Time) ([]decimal.Decimal, error)
}

// Owners resolves which users hold an item and qualify for boost alerts.
type Owners interface {
	PremiumOwners(ctx context.Context, itemID uint) ([]uint, error)
}

// Notifier delivers a fire-and-forget message to one user.
type Notifier interface {
	NotifyUser(userID uint, message, severity string)
}

// Options tunes the detection thresholds. Entry must sit above exit so the
// band between them absorbs noise instead of toggling the signal.
type Options struct {
	Lookback     time.Duration
	EntryPercent float64
	ExitPercent  float64
	MinHistory   int
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	Freshness    time.Duration
}

// Detector flags items whose current price runs ahead of their recent
// baseline and retires them once the price falls back through the exit
// threshold.
type Detector struct {
	history  History
	owners   Owners
	notifier Notifier
	cache    *Cache
	opts     Options
	log      *logrus.Entry
	now      func() time.Time
}

func NewDetector(history History, owners Owners, notifier Notifier, cache *Cache, opts Options) *Detector {
	return &Detector{
		history:  history,
		owners:   owners,
		notifier: notifier,
		cache:    cache,
		opts:     opts,
		log:      logging.Component("boost-detector"),
		now:      time.Now,
	}
}

// Detect runs one detection cycle over the catalog and returns the active
// boost set ordered by growth descending. The same set replaces the cache
// snapshot atomically.
func (d *Detector) Detect(ctx context.Context, items []*models.Item) ([]Record, error) {
	now := d.now()
	carried := make(map[uint]Record)
	for _, rec := range d.cache.Load() {
		carried[rec.ItemID] = rec
	}

	var candidates []Record
	var fresh []Record
	for _, item := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !d.eligible(item) {
			continue
		}
		if prev, ok := carried[item.ID]; ok {
			// Active boosts are only ever re-checked against the exit
			// condition, never the entry one.
			prev.CurrentPrice = item.CurrentPrice
			prev.Name = item.Name
			prev.SkinName = item.SkinName
			prev.ImageURL = item.ImageURL
			prev.Rarity = item.Rarity
			prev.GrowthPercent = roundGrowth(rawGrowth(prev.BaselinePrice, item.CurrentPrice))
			candidates = append(candidates, prev)
			continue
		}
		rec, ok, err := d.evaluate(ctx, item, now)
		if err != nil {
			d.log.WithError(err).WithField("item", item.FullName()).Warn("Skipping item in boost scan")
			continue
		}
		if ok {
			candidates = append(candidates, rec)
			fresh = append(fresh, rec)
		}
	}

	// The exit check runs on unrounded growth; GrowthPercent is the display
	// value.
	active := candidates[:0]
	for _, rec := range candidates {
		if rawGrowth(rec.BaselinePrice, rec.CurrentPrice) > d.opts.ExitPercent {
			active = append(active, rec)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].GrowthPercent != active[j].GrowthPercent {
			return active[i].GrowthPercent > active[j].GrowthPercent
		}
		return active[i].ItemID < active[j].ItemID
	})

	d.announce(ctx, fresh, active)

	if err := d.cache.Save(active); err != nil {
		return nil, err
	}
	d.log.WithFields(logging.Fields{
		"active": len(active),
		"new":    countSurvivors(fresh, active),
	}).Info("Boost detection cycle finished")
	return active, nil
}

// eligible applies the static filters: a plausible price band and a rarity
// that trades at all.
func (d *Detector) eligible(item *models.Item) bool {
	if item.Rarity == models.RarityNameless {
		return false
	}
	price := item.CurrentPrice
	return price.GreaterThan(d.opts.MinPrice) && price.LessThan(d.opts.MaxPrice)
}

// evaluate checks the entry condition for an item without an active boost.
// Stale prices never open new boosts; only items refreshed inside the
// freshness window are considered.
func (d *Detector) evaluate(ctx context.Context, item *models.Item, now time.Time) (Record, bool, error) {
	if item.LastUpdate.Before(now.Add(-d.opts.Freshness)) {
		return Record{}, false, nil
	}
	prices, err := d.history.PricesSince(ctx, item.ID, now.Add(-d.opts.Lookback))
	if err != nil {
		return Record{}, false, err
	}
	if len(prices) < d.opts.MinHistory {
		return Record{}, false, nil
	}
	sum := decimal.Zero
	for _, p := range prices {
		sum = sum.Add(p)
	}
	baseline := sum.Div(decimal.NewFromInt(int64(len(prices)))).Round(2)
	if baseline.IsZero() {
		return Record{}, false, nil
	}
	growth := rawGrowth(baseline, item.CurrentPrice)
	if growth < d.opts.EntryPercent {
		return Record{}, false, nil
	}
	return Record{
		ItemID:        item.ID,
		Name:          item.Name,
		SkinName:      item.SkinName,
		ImageURL:      item.ImageURL,
		Rarity:        item.Rarity,
		BaselinePrice: baseline,
		CurrentPrice:  item.CurrentPrice,
		GrowthPercent: roundGrowth(growth),
		DetectedAt:    now,
	}, true, nil
}

// announce notifies qualifying owners about boosts created this cycle.
// Carried-over boosts never re-notify.
func (d *Detector) announce(ctx context.Context, fresh, active []Record) {
	if d.notifier == nil || d.owners == nil {
		return
	}
	activeIDs := make(map[uint]bool, len(active))
	for _, rec := range active {
		activeIDs[rec.ItemID] = true
	}
	for _, rec := range fresh {
		if !activeIDs[rec.ItemID] {
			continue
		}
		userIDs, err := d.owners.PremiumOwners(ctx, rec.ItemID)
		if err != nil {
			d.log.WithError(err).WithField("item_id", rec.ItemID).Warn("Failed to resolve boost owners")
			continue
		}
		msg := fmt.Sprintf("Price boost: %s +%.1f%% (%s)", displayName(rec), rec.GrowthPercent, rec.CurrentPrice.StringFixed(2))
		for _, userID := range userIDs {
			d.notifier.NotifyUser(userID, msg, "info")
		}
	}
}

func displayName(rec Record) string {
	if rec.SkinName == "" {
		return rec.Name
	}
	return rec.Name + " " + rec.SkinName
}

// rawGrowth computes the unrounded growth of current over baseline. Threshold
// comparisons always use this value.
func rawGrowth(baseline, current decimal.Decimal) float64 {
	base, _ := baseline.Float64()
	cur, _ := current.Float64()
	if base == 0 {
		return 0
	}
	return (cur - base) / base * 100
}

// roundGrowth rounds growth to one decimal for display.
func roundGrowth(growth float64) float64 {
	return math.Round(growth*10) / 10
}

func countSurvivors(fresh, active []Record) int {
	activeIDs := make(map[uint]bool, len(active))
	for _, rec := range active {
		activeIDs[rec.ItemID] = true
	}
	n := 0
	for _, rec := range fresh {
		if activeIDs[rec.ItemID] {
			n++
		}
	}
	return n
}
