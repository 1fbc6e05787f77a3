package api

import (
	"math/rand"
	"net/http"
	"sort"
	"time"

	"standoff-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	showcaseSize       = 2
	showcaseCandidates = 20
	showcaseTTL        = 24 * time.Hour
	showcaseLookback   = 48 * time.Hour
)

// ShowcaseItem is one row of the daily showcase.
type ShowcaseItem struct {
	Name          string          `json:"name"`
	SkinName      string          `json:"skin_name,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	Price         decimal.Decimal `json:"price"`
	GrowthPercent float64         `json:"growth_percent"`
}

// DailyShowcase serves up to two random expensive items whose price grew over
// the last two days, falling back to the most expensive ones when growth is
// scarce. The result is cached for a day.
func (h *APIHandler) DailyShowcase(c *gin.Context) {
	h.showcaseMu.Lock()
	if h.showcaseItems != nil && time.Since(h.showcaseAt) < showcaseTTL {
		items := h.showcaseItems
		h.showcaseMu.Unlock()
		c.JSON(http.StatusOK, gin.H{"items": items, "cached": true})
		return
	}
	h.showcaseMu.Unlock()

	var candidates []models.Item
	err := h.db.Where("current_price > ?", decimal.NewFromFloat(h.cfg.ShowcaseMinPrice)).Find(&candidates).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	since := time.Now().Add(-showcaseLookback)
	items := pickShowcase(candidates, func(itemID uint) (decimal.Decimal, bool) {
		rows, err := h.store.Series(c.Request.Context(), itemID, since)
		if err != nil || len(rows) == 0 {
			return decimal.Zero, false
		}
		return rows[0].Price, true
	}, rand.New(rand.NewSource(time.Now().UnixNano())))

	h.showcaseMu.Lock()
	h.showcaseItems = items
	h.showcaseAt = time.Now()
	h.showcaseMu.Unlock()
	c.JSON(http.StatusOK, gin.H{"items": items, "cached": false})
}

// pickShowcase walks a shuffled sample of the candidates and keeps those
// whose price grew against their oldest lookback point. Remaining slots are
// filled with the most expensive candidates not already picked.
func pickShowcase(candidates []models.Item, oldPrice func(itemID uint) (decimal.Decimal, bool), rng *rand.Rand) []ShowcaseItem {
	shuffled := make([]models.Item, len(candidates))
	copy(shuffled, candidates)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	if len(shuffled) > showcaseCandidates {
		shuffled = shuffled[:showcaseCandidates]
	}

	result := make([]ShowcaseItem, 0, showcaseSize)
	picked := make(map[uint]bool)
	for _, item := range shuffled {
		if len(result) >= showcaseSize {
			break
		}
		old, ok := oldPrice(item.ID)
		if !ok || !old.IsPositive() {
			continue
		}
		oldF, _ := old.Float64()
		curF, _ := item.CurrentPrice.Float64()
		growth := (curF - oldF) / oldF * 100
		if growth <= 0 {
			continue
		}
		result = append(result, ShowcaseItem{
			Name:          item.Name,
			SkinName:      item.SkinName,
			ImageURL:      item.ImageURL,
			Price:         item.CurrentPrice,
			GrowthPercent: growth,
		})
		picked[item.ID] = true
	}

	if len(result) < showcaseSize {
		fallback := make([]models.Item, 0, len(candidates))
		for _, item := range candidates {
			if !picked[item.ID] {
				fallback = append(fallback, item)
			}
		}
		sort.Slice(fallback, func(i, j int) bool {
			return fallback[i].CurrentPrice.GreaterThan(fallback[j].CurrentPrice)
		})
		for _, item := range fallback {
			if len(result) >= showcaseSize {
				break
			}
			result = append(result, ShowcaseItem{
				Name:     item.Name,
				SkinName: item.SkinName,
				ImageURL: item.ImageURL,
				Price:    item.CurrentPrice,
			})
		}
	}
	return result
}
