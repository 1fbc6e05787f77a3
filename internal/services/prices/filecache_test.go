package prices

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *FileCache {
	t.Helper()
	cache, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	return cache
}

func day(s string) time.Time {
	d, err := time.Parse(dayLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRecordOverwritesSameDay(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Record(1, decimal.RequireFromString("10.00"), day("2026-08-28")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("12.00"), day("2026-08-28")))

	points := cache.Load(1)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-08-28", points[0].Date)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("12.00")))
}

func TestRecordKeepsDaysOrdered(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Record(1, decimal.RequireFromString("11.00"), day("2026-08-28")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("10.00"), day("2026-08-26")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("10.50"), day("2026-08-27")))

	points := cache.Load(1)
	require.Len(t, points, 3)
	assert.Equal(t, "2026-08-26", points[0].Date)
	assert.Equal(t, "2026-08-28", points[2].Date)
}

func TestCorruptCacheReadsAsEmpty(t *testing.T) {
	cache := newTestCache(t)
	path := filepath.Join(cache.dir, "item_1.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	assert.Empty(t, cache.Load(1))

	// A fresh record replaces the corrupt file.
	require.NoError(t, cache.Record(1, decimal.RequireFromString("5.00"), day("2026-08-28")))
	assert.Len(t, cache.Load(1), 1)
}

func TestDailyChange(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Record(1, decimal.RequireFromString("10.00"), day("2026-08-27")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("12.50"), day("2026-08-28")))

	change, percent, ok := cache.DailyChange(1)
	require.True(t, ok)
	assert.True(t, change.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, percent.Equal(decimal.RequireFromString("25")))

	_, _, ok = cache.DailyChange(2)
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	cache := newTestCache(t)
	require.NoError(t, cache.Record(1, decimal.RequireFromString("10.00"), day("2026-08-26")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("20.00"), day("2026-08-27")))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("30.00"), day("2026-08-28")))

	min, max, avg, ok := cache.Stats(1, 30)
	require.True(t, ok)
	assert.True(t, min.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, max.Equal(decimal.RequireFromString("30.00")))
	assert.True(t, avg.Equal(decimal.RequireFromString("20")))
}

func TestPruneDropsOldPoints(t *testing.T) {
	cache := newTestCache(t)
	now := day("2026-08-28")
	require.NoError(t, cache.Record(1, decimal.RequireFromString("1.00"), now.AddDate(0, 0, -200)))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("2.00"), now.AddDate(0, 0, -10)))
	require.NoError(t, cache.Record(1, decimal.RequireFromString("3.00"), now))

	require.NoError(t, cache.Prune(180*24*time.Hour, now))

	points := cache.Load(1)
	require.Len(t, points, 2)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("2.00")))
}
