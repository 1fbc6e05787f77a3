package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeQuotedSkin(t *testing.T) {
	res, err := Normalize("AKR «Necromancer»")
	require.NoError(t, err)
	assert.Equal(t, "AKR", res.BaseName)
	assert.Equal(t, "Necromancer", res.SkinName)
	assert.False(t, res.IsStatTrack)
	assert.Equal(t, "AKR Necromancer", res.FullName)
}

func TestNormalizeQuotedSkinWithSuffix(t *testing.T) {
	res, err := Normalize(`Graffiti «Victory Bubble» Packed`)
	require.NoError(t, err)
	assert.Equal(t, "Graffiti", res.BaseName)
	assert.Equal(t, "Victory Bubble Packed", res.SkinName)
}

func TestNormalizeStraightQuotes(t *testing.T) {
	res, err := Normalize(`AKR "Necromancer"`)
	require.NoError(t, err)
	assert.Equal(t, "AKR", res.BaseName)
	assert.Equal(t, "Necromancer", res.SkinName)
}

func TestNormalizeStatTrackMarker(t *testing.T) {
	res, err := Normalize("StatTrack AKR «Necromancer»")
	require.NoError(t, err)
	assert.True(t, res.IsStatTrack)
	assert.Equal(t, "AKR", res.BaseName)
	assert.Equal(t, "Necromancer", res.SkinName)

	// Marker can appear mid-string too.
	res, err = Normalize("AKR StatTrack «Necromancer»")
	require.NoError(t, err)
	assert.True(t, res.IsStatTrack)
	assert.Equal(t, "AKR", res.BaseName)
}

func TestNormalizeCompoundBase(t *testing.T) {
	res, err := Normalize("Desert Eagle Sunrise")
	require.NoError(t, err)
	assert.Equal(t, "Desert Eagle", res.BaseName)
	assert.Equal(t, "Sunrise", res.SkinName)

	res, err = Normalize("Dual Daggers Inferno")
	require.NoError(t, err)
	assert.Equal(t, "Dual Daggers", res.BaseName)
	assert.Equal(t, "Inferno", res.SkinName)
}

func TestNormalizeFirstSpaceSplit(t *testing.T) {
	res, err := Normalize("AKR Elite Stealth")
	require.NoError(t, err)
	assert.Equal(t, "AKR", res.BaseName)
	assert.Equal(t, "Elite Stealth", res.SkinName)
}

func TestNormalizeSingleToken(t *testing.T) {
	res, err := Normalize("Flashbang")
	require.NoError(t, err)
	assert.Equal(t, "Flashbang", res.BaseName)
	assert.Empty(t, res.SkinName)
}

func TestNormalizeUnpairedQuote(t *testing.T) {
	res, err := Normalize(`Empire Case»`)
	require.NoError(t, err)
	assert.Equal(t, "Empire Case", res.BaseName)
	assert.Empty(t, res.SkinName)
}

func TestNormalizeEmpty(t *testing.T) {
	_, err := Normalize("   ")
	assert.ErrorIs(t, err, ErrEmptyName)

	// Nothing left once the marker is stripped.
	_, err = Normalize("StatTrack")
	assert.ErrorIs(t, err, ErrEmptyName)
}
