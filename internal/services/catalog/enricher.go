package catalog

import (
	"context"
	"fmt"
	"strings"

	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/models"
	"standoff-tracker/internal/services/normalizer"

	"gorm.io/gorm"
)

// WikiEntry is one item extracted from a rendered collection page: the raw
// display name, the rarity CSS class and the preview image URL. Page
// retrieval and HTML extraction happen outside this core.
type WikiEntry struct {
	RawName     string
	RarityClass string
	ImageURL    string
}

// EnrichReport summarizes a collection alignment run.
type EnrichReport struct {
	Updated      int
	Skipped      int
	SkippedNames []string
}

// EnrichCollection aligns existing catalog items of one collection with wiki
// page entries: collection membership, image, rarity (only when still at the
// Common default) and type (only when still at the Gun sentinel). It never
// creates items; unmatched entries are reported for manual review.
func (r *Reconciler) EnrichCollection(ctx context.Context, collectionName, collectionImageURL string, entries []WikiEntry) (EnrichReport, error) {
	var report EnrichReport

	var collection models.Collection
	if err := r.db.WithContext(ctx).Where("name = ?", collectionName).First(&collection).Error; err != nil {
		return report, fmt.Errorf("collection %q not found: %w", collectionName, err)
	}

	var items []*models.Item
	if err := r.db.WithContext(ctx).Find(&items).Error; err != nil {
		return report, fmt.Errorf("failed to load catalog: %w", err)
	}

	changed, collectionChanged := alignCollection(items, &collection, collectionImageURL, entries, &report)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range changed {
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		if collectionChanged {
			if err := tx.Save(&collection).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("failed to commit enrichment: %w", err)
	}

	r.log.WithFields(logging.Fields{
		"collection": collectionName,
		"updated":    report.Updated,
		"skipped":    report.Skipped,
	}).Info("collection enrichment finished")
	return report, nil
}

func alignCollection(items []*models.Item, collection *models.Collection, collectionImageURL string, entries []WikiEntry, report *EnrichReport) ([]*models.Item, bool) {
	collectionChanged := false
	if collectionImageURL != "" && collection.ImageURL != collectionImageURL {
		collection.ImageURL = collectionImageURL
		collectionChanged = true
	}

	var changedItems []*models.Item

	for _, entry := range entries {
		raw := strings.TrimSpace(entry.RawName)
		if raw == "" || strings.Contains(strings.ToLower(raw), "medal") {
			continue
		}

		norm, err := normalizer.Normalize(raw)
		if err != nil {
			report.Skipped++
			report.SkippedNames = append(report.SkippedNames, raw)
			continue
		}

		wikiType := classifyName(norm.BaseName, norm.FullName)
		wikiRarity := rarityFromClass(entry.RarityClass)

		matches := matchWikiEntry(items, collection.ID, norm, wikiType)
		if len(matches) == 0 {
			report.Skipped++
			report.SkippedNames = append(report.SkippedNames, raw)
			continue
		}

		for _, item := range matches {
			changed := false
			if item.CollectionID != collection.ID {
				item.CollectionID = collection.ID
				changed = true
			}
			if entry.ImageURL != "" && item.ImageURL != entry.ImageURL {
				item.ImageURL = entry.ImageURL
				changed = true
			}
			if item.Rarity == models.RarityCommon && wikiRarity != models.RarityCommon {
				item.Rarity = wikiRarity
				changed = true
			}
			if item.Type == models.TypeGun && wikiType != models.TypeGun {
				item.Type = wikiType
				changed = true
			}
			if changed {
				report.Updated++
				changedItems = append(changedItems, item)
			}
		}
	}

	return changedItems, collectionChanged
}

// matchWikiEntry mirrors the reconciler's tiers against an already-loaded
// item slice: exact name+skin, graffiti substring within the collection,
// skin match with type guards, then full name.
func matchWikiEntry(items []*models.Item, collectionID uint, norm normalizer.Result, wikiType models.ItemType) []*models.Item {
	var out []*models.Item
	seen := make(map[uint]bool)
	add := func(item *models.Item) {
		if !seen[item.ID] {
			seen[item.ID] = true
			out = append(out, item)
		}
	}

	for _, item := range items {
		if item.Name == norm.BaseName && item.SkinName == norm.SkinName {
			add(item)
		}
	}
	if len(out) > 0 {
		return out
	}

	if strings.Contains(strings.ToLower(norm.BaseName), "graffiti") {
		candidate := strings.ToLower(strings.TrimSpace(norm.SkinName))
		for _, item := range items {
			if item.CollectionID != collectionID || !strings.Contains(strings.ToLower(item.Name), "graffiti") {
				continue
			}
			existing := strings.ToLower(strings.TrimSpace(item.SkinName))
			if existing == "" || candidate == "" {
				continue
			}
			if strings.Contains(existing, candidate) || strings.Contains(candidate, existing) {
				add(item)
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	if norm.SkinName != "" {
		for _, item := range items {
			if item.CollectionID != collectionID || item.SkinName != norm.SkinName {
				continue
			}
			// Type guards: never cross decorative categories or mix knives
			// with guns.
			if hasKeyword(norm.BaseName, "graffiti") && !hasKeyword(item.Name, "graffiti") {
				continue
			}
			if hasKeyword(norm.BaseName, "sticker") && !hasKeyword(item.Name, "sticker") {
				continue
			}
			if hasKeyword(norm.BaseName, "charm") && !hasKeyword(item.Name, "charm") {
				continue
			}
			if wikiType == models.TypeKnife && item.Type != models.TypeKnife {
				continue
			}
			add(item)
		}
		if len(out) > 0 {
			return out
		}
	}

	for _, item := range items {
		if item.FullName() == norm.FullName || item.OriginalName == norm.FullName {
			add(item)
		}
	}
	return out
}

func hasKeyword(s, keyword string) bool {
	return strings.Contains(strings.ToLower(s), keyword)
}

// rarityFromClass maps the wiki's rarity CSS classes to the enum.
func rarityFromClass(cssClass string) models.ItemRarity {
	c := strings.ToLower(cssClass)
	switch {
	case strings.Contains(c, "uncommon"):
		return models.RarityUncommon
	case strings.Contains(c, "rare"):
		return models.RarityRare
	case strings.Contains(c, "epic"):
		return models.RarityEpic
	case strings.Contains(c, "legendary"):
		return models.RarityLegendary
	case strings.Contains(c, "arcane"):
		return models.RarityArcane
	case strings.Contains(c, "nameless"):
		return models.RarityNameless
	}
	return models.RarityCommon
}
