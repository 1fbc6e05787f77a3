// Package catalog merges imported external records into the persistent item
// catalog. Reconciliation owns all identity decisions: an item is never
// duplicated for the same (base name, skin name, StatTrack) identity, and a
// rename on the source side must land on the existing entry.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/market"
	"standoff-tracker/internal/models"
	"standoff-tracker/internal/services/normalizer"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RawEntry is one imported record: the raw name plus whatever metadata the
// model-info listing carried for it.
type RawEntry struct {
	Name       string
	Type       string
	Rarity     string
	Collection string
	ImageURL   string
}

// Report summarizes one reconciliation run.
type Report struct {
	Added   int
	Updated int
	Skipped int

	// Raw names that could not be parsed or matched, kept for manual review.
	SkippedNames []string
}

func (r Report) String() string {
	return fmt.Sprintf("added=%d updated=%d skipped=%d", r.Added, r.Updated, r.Skipped)
}

// Reconciler imports catalog batches against the database.
type Reconciler struct {
	db     *gorm.DB
	source *market.Client
	log    *logrus.Entry
}

func NewReconciler(db *gorm.DB, source *market.Client) *Reconciler {
	return &Reconciler{
		db:     db,
		source: source,
		log:    logging.Component("catalog"),
	}
}

// ImportFromSource fetches the names and model-info listings from the
// external source, merges them into raw entries and reconciles the batch.
func (r *Reconciler) ImportFromSource(ctx context.Context) (Report, error) {
	names, err := r.source.FetchNames(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch names listing: %w", err)
	}

	infos, err := r.source.FetchModelInfos(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch model info listing: %w", err)
	}

	infoByName := make(map[string]market.ModelInfo, len(infos))
	for _, info := range infos {
		infoByName[strings.ToLower(strings.TrimSpace(info.Name))] = info
	}

	batch := make([]RawEntry, 0, len(names))
	for _, name := range names {
		entry := RawEntry{Name: name}
		if info, ok := infoByName[strings.ToLower(strings.TrimSpace(name))]; ok {
			entry.Type = info.Type
			entry.Rarity = info.Rarity
			entry.Collection = info.Collection
			entry.ImageURL = info.ImageURL
		}
		batch = append(batch, entry)
	}

	return r.Reconcile(ctx, batch)
}

// Reconcile merges a batch of raw entries into the catalog. Per-entry parse
// failures are logged and skipped; only a failed commit aborts the run.
func (r *Reconciler) Reconcile(ctx context.Context, batch []RawEntry) (Report, error) {
	var items []*models.Item
	if err := r.db.WithContext(ctx).Find(&items).Error; err != nil {
		return Report{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	var collections []*models.Collection
	if err := r.db.WithContext(ctx).Find(&collections).Error; err != nil {
		return Report{}, fmt.Errorf("failed to load collections: %w", err)
	}

	state := BuildState(items, collections)
	report := ReconcileBatch(state, batch, r.log)

	if err := r.commit(ctx, state); err != nil {
		return Report{}, fmt.Errorf("failed to commit reconciliation: %w", err)
	}

	r.log.WithFields(logging.Fields{
		"added":   report.Added,
		"updated": report.Updated,
		"skipped": report.Skipped,
	}).Info("catalog reconciliation finished")
	return report, nil
}

// commit persists staged collections, new items and updates in one
// transaction. No partial commit: the next scheduled run retries from
// scratch if this fails.
func (r *Reconciler) commit(ctx context.Context, state *State) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, col := range state.newCollections {
			if err := tx.Create(col).Error; err != nil {
				return err
			}
		}
		for _, item := range state.newItems {
			if item.Collection != nil {
				item.CollectionID = item.Collection.ID
			}
			if err := tx.Create(item).Error; err != nil {
				return err
			}
		}
		for _, item := range state.dirtyItems() {
			if item.Collection != nil && item.CollectionID == 0 {
				item.CollectionID = item.Collection.ID
			}
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReconcileBatch runs the matching tiers over an in-memory state. It never
// touches the database, which keeps identity decisions testable; the caller
// commits the staged changes afterwards.
func ReconcileBatch(state *State, batch []RawEntry, log *logrus.Entry) Report {
	var report Report

	for _, entry := range batch {
		added, updated, err := reconcileEntry(state, entry)
		switch {
		case err != nil:
			report.Skipped++
			report.SkippedNames = append(report.SkippedNames, entry.Name)
			if log != nil {
				log.WithField("raw_name", entry.Name).WithError(err).Warn("skipped catalog entry")
			}
		case added:
			report.Added++
		case updated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	return report
}

func reconcileEntry(state *State, entry RawEntry) (added, updated bool, err error) {
	raw := strings.TrimSpace(entry.Name)
	if raw == "" || isSentinelName(raw) {
		return false, false, fmt.Errorf("invalid raw name")
	}
	// Blocked upstream; guard anyway so a source change cannot pollute the
	// catalog.
	if strings.Contains(strings.ToLower(raw), "medal") {
		return false, false, fmt.Errorf("blocked item name")
	}

	norm, err := normalizer.Normalize(raw)
	if err != nil {
		return false, false, err
	}

	itemType := resolveType(entry.Type, norm.BaseName, norm.FullName)

	// Containers and packs have no skin component: "Empire Case" is one base
	// name, not base "Empire" with skin "Case".
	if itemType == models.TypeContainer && norm.SkinName != "" {
		norm.BaseName = norm.FullName
		norm.SkinName = ""
	}

	item := lookup(state, raw, norm, itemType, entry.Collection)
	if item != nil {
		return false, applyUpdate(state, item, raw, entry, itemType), nil
	}

	created := &models.Item{
		Name:         norm.BaseName,
		SkinName:     norm.SkinName,
		OriginalName: raw,
		IsStatTrack:  norm.IsStatTrack,
		Type:         itemType,
		Rarity:       models.ParseRarity(entry.Rarity),
		ImageURL:     entry.ImageURL,
	}
	if col := state.collection(entry.Collection); col != nil {
		created.Collection = col
		created.CollectionID = col.ID
	}
	state.stage(created)
	return true, false, nil
}

// lookup walks the matching tiers in order; the first hit wins.
func lookup(state *State, raw string, norm normalizer.Result, itemType models.ItemType, collectionName string) *models.Item {
	// Tier 1: the stored raw name. Handles cosmetic renames on the source
	// side without touching identity.
	if item, ok := state.byRawName[strings.ToLower(raw)]; ok {
		return item
	}

	// Tier 2: identity key.
	if item, ok := state.byKey[models.IdentityKey(norm.BaseName, norm.SkinName, norm.IsStatTrack)]; ok {
		return item
	}

	// Tier 3: category-aware fuzzy skin match for free-text-suffix
	// categories, restricted to the entry's collection when it names one.
	if fuzzyType(itemType) && norm.SkinName != "" {
		if item := fuzzyMatch(state, norm, itemType, collectionName); item != nil {
			return item
		}
	}

	// Tier 4: full-name match, for containers and packs that have no skin
	// component.
	if item, ok := state.byFullName[strings.ToLower(norm.FullName)]; ok {
		return item
	}
	return nil
}

// fuzzyType reports whether a category is prone to free-text suffixes on the
// source side (decorative items whose skin names drift between listings).
func fuzzyType(t models.ItemType) bool {
	return t == models.TypeGraffiti || t == models.TypeSticker || t == models.TypeCharm
}

// fuzzyMatch finds an existing item of the same category whose skin name
// contains, or is contained in, the candidate skin name. The source gives no
// disambiguation rule, so the match is made deterministic: the pair with the
// highest overlap ratio wins, ties broken by lowest item ID.
func fuzzyMatch(state *State, norm normalizer.Result, itemType models.ItemType, collectionName string) *models.Item {
	candidate := strings.ToLower(strings.TrimSpace(norm.SkinName))

	// An existing collection narrows the search; unset item collections are
	// still eligible.
	var collectionID uint
	if col, ok := state.collections[strings.ToLower(strings.TrimSpace(collectionName))]; ok {
		collectionID = col.ID
	}

	var best *models.Item
	var bestScore float64

	for _, item := range state.items {
		if item.Type != itemType || item.IsStatTrack != norm.IsStatTrack {
			continue
		}
		if collectionID != 0 && item.CollectionID != 0 && item.CollectionID != collectionID {
			continue
		}
		existing := strings.ToLower(strings.TrimSpace(item.SkinName))
		if existing == "" {
			continue
		}
		if !strings.Contains(existing, candidate) && !strings.Contains(candidate, existing) {
			continue
		}
		shorter, longer := len(existing), len(candidate)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		score := float64(shorter) / float64(longer)
		if score > bestScore {
			best, bestScore = item, score
		}
	}
	return best
}

// applyUpdate refreshes the mutable fields of a matched item. Identity
// fields are never touched; type and collection are only filled in when
// still at their sentinel values. Returns true only when something changed.
func applyUpdate(state *State, item *models.Item, raw string, entry RawEntry, itemType models.ItemType) bool {
	changed := false

	if item.OriginalName != raw {
		item.OriginalName = raw
		changed = true
	}
	if entry.ImageURL != "" && item.ImageURL != entry.ImageURL {
		item.ImageURL = entry.ImageURL
		changed = true
	}
	if item.Type == models.TypeGun && itemType != models.TypeGun {
		item.Type = itemType
		changed = true
	}
	if rarity := models.ParseRarity(entry.Rarity); item.Rarity == models.RarityCommon && rarity != models.RarityCommon {
		item.Rarity = rarity
		changed = true
	}
	if item.CollectionID == 0 && item.Collection == nil {
		if col := state.collection(entry.Collection); col != nil {
			item.Collection = col
			item.CollectionID = col.ID
			changed = true
		}
	}

	if changed {
		state.markDirty(item)
	}
	return changed
}

func isSentinelName(s string) bool {
	switch strings.ToLower(s) {
	case "null", "undefined", "none", "-":
		return true
	}
	return false
}

// resolveType prefers the explicit type from the model-info listing and
// falls back to keyword classification of the name.
func resolveType(explicit, baseName, fullName string) models.ItemType {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case "skin":
		return models.TypeSkin
	case "sticker":
		return models.TypeSticker
	case "charm":
		return models.TypeCharm
	case "container", "case", "box", "pack":
		return models.TypeContainer
	case "glove", "gloves":
		return models.TypeGlove
	case "knife":
		return models.TypeKnife
	case "graffiti":
		return models.TypeGraffiti
	case "grenade":
		return models.TypeGrenade
	case "gun", "guns":
		return models.TypeGun
	}
	return classifyName(baseName, fullName)
}

var knifeNames = []string{
	"karambit", "butterfly", "m9 bayonet", "kunai", "scorpion", "jkommando",
	"dual daggers", "flip", "tanto", "kukri", "stiletto", "fang", "mantis", "sting",
}

// classifyName derives a category from name keywords.
func classifyName(baseName, fullName string) models.ItemType {
	n := strings.ToLower(baseName + " " + fullName)

	for _, k := range knifeNames {
		if strings.Contains(n, k) {
			return models.TypeKnife
		}
	}
	switch {
	case strings.Contains(n, "case"), strings.Contains(n, "box"), strings.Contains(n, "pack"):
		return models.TypeContainer
	case strings.Contains(n, "sticker"), strings.Contains(n, "shield"):
		return models.TypeSticker
	case strings.Contains(n, "charm"):
		return models.TypeCharm
	case strings.Contains(n, "glove"):
		return models.TypeGlove
	case strings.Contains(n, "graffiti"):
		return models.TypeGraffiti
	case strings.Contains(n, "grenade"), strings.Contains(n, "flashbang"),
		strings.Contains(n, "smoke"), strings.Contains(n, "molotov"):
		return models.TypeGrenade
	}
	return models.TypeGun
}
