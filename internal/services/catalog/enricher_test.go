package catalog

import (
	"testing"

	"standoff-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignCollectionUpdatesSentinelFieldsOnly(t *testing.T) {
	collection := &models.Collection{ID: 2, Name: "Origin"}
	item := &models.Item{
		ID: 1, Name: "AKR", SkinName: "Necromancer",
		Type: models.TypeSkin, Rarity: models.RarityEpic,
		CollectionID: 2, ImageURL: "https://img/old.png",
	}

	var report EnrichReport
	changed, _ := alignCollection([]*models.Item{item}, collection, "", []WikiEntry{
		{RawName: "AKR «Necromancer»", RarityClass: "item-name rare", ImageURL: "https://img/new.png"},
	}, &report)

	require.Len(t, changed, 1)
	assert.Equal(t, "https://img/new.png", item.ImageURL)
	// Rarity was already known: the wiki's weaker class must not downgrade it.
	assert.Equal(t, models.RarityEpic, item.Rarity)
	assert.Equal(t, models.TypeSkin, item.Type)
}

func TestAlignCollectionFillsDefaults(t *testing.T) {
	collection := &models.Collection{ID: 2, Name: "Origin"}
	item := &models.Item{
		ID: 1, Name: "Karambit", SkinName: "Cyber",
		Type: models.TypeKnife, Rarity: models.RarityCommon,
	}

	var report EnrichReport
	alignCollection([]*models.Item{item}, collection, "https://img/col.png", []WikiEntry{
		{RawName: "Karambit «Cyber»", RarityClass: "legendary"},
	}, &report)

	assert.Equal(t, uint(2), item.CollectionID)
	assert.Equal(t, models.RarityLegendary, item.Rarity)
	assert.Equal(t, "https://img/col.png", collection.ImageURL)
	assert.Equal(t, 1, report.Updated)
}

func TestAlignCollectionReportsUnmatched(t *testing.T) {
	collection := &models.Collection{ID: 2, Name: "Origin"}

	var report EnrichReport
	changed, _ := alignCollection(nil, collection, "", []WikiEntry{
		{RawName: "USP «Ghost»"},
		{RawName: "Champion Medal"}, // blocked upstream, silently ignored
	}, &report)

	assert.Empty(t, changed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"USP «Ghost»"}, report.SkippedNames)
}

func TestRarityFromClass(t *testing.T) {
	assert.Equal(t, models.RarityUncommon, rarityFromClass("item-name uncommon"))
	assert.Equal(t, models.RarityArcane, rarityFromClass("arcane"))
	assert.Equal(t, models.RarityCommon, rarityFromClass("none"))
}
