package prices

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"standoff-tracker/internal/market"
	"standoff-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	prices  map[string]string
	failing map[string]bool
}

func (s *fakeSource) FetchPriceHistory(ctx context.Context, name string) ([]market.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[name] {
		return nil, fmt.Errorf("source unavailable")
	}
	price, ok := s.prices[name]
	if !ok {
		return nil, nil
	}
	return []market.PricePoint{
		{Date: "2026-08-27", PurchasePrice: "1,00"},
		{Date: "2026-08-28", PurchasePrice: price},
	}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	items     []*models.Item
	owned     []*models.Item
	committed [][]PriceUpdate
}

func (s *fakeStore) AllItems(ctx context.Context) ([]*models.Item, error)   { return s.items, nil }
func (s *fakeStore) OwnedItems(ctx context.Context) ([]*models.Item, error) { return s.owned, nil }

func (s *fakeStore) CommitPrices(ctx context.Context, updates []PriceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, updates)
	return nil
}

func (s *fakeStore) all() []PriceUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []PriceUpdate
	for _, batch := range s.committed {
		out = append(out, batch...)
	}
	return out
}

func testItems(n int) []*models.Item {
	items := make([]*models.Item, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, &models.Item{
			ID:   uint(i),
			Name: fmt.Sprintf("USP %d", i),
		})
	}
	return items
}

func TestFetchItemsCommitsAllResults(t *testing.T) {
	items := testItems(10)
	source := &fakeSource{prices: map[string]string{}}
	for _, item := range items {
		source.prices[item.FullName()] = "42.50"
	}
	store := &fakeStore{items: items}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	report, err := fetcher.FetchAll(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Success)
	assert.Equal(t, 0, report.Errors)

	updates := store.all()
	require.Len(t, updates, 10)
	for _, u := range updates {
		assert.True(t, u.Price.Equal(decimal.RequireFromString("42.50")))
		assert.False(t, u.RecordedAt.IsZero())
	}
}

func TestFetchItemsSurvivesPartialFailure(t *testing.T) {
	items := testItems(50)
	source := &fakeSource{prices: map[string]string{}, failing: map[string]bool{}}
	for i, item := range items {
		if i < 3 {
			source.failing[item.FullName()] = true
			continue
		}
		source.prices[item.FullName()] = "10.00"
	}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	report, err := fetcher.FetchItems(context.Background(), items, 10)
	require.NoError(t, err)
	assert.Equal(t, 47, report.Success)
	assert.Equal(t, 3, report.Errors)
	assert.Len(t, store.all(), 47)
}

func TestFetchItemsParsesCommaDecimals(t *testing.T) {
	item := &models.Item{ID: 1, Name: "AKR", SkinName: "Necromancer"}
	source := &fakeSource{prices: map[string]string{
		item.FullName(): "1234,56",
	}}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	_, err := fetcher.FetchItems(context.Background(), []*models.Item{item}, 1)
	require.NoError(t, err)

	updates := store.all()
	require.Len(t, updates, 1)
	assert.True(t, updates[0].Price.Equal(decimal.RequireFromString("1234.56")))
}

func TestFetchItemsPrefersOriginalListingName(t *testing.T) {
	item := &models.Item{ID: 1, Name: "USP", SkinName: "Ghost", OriginalName: "USP «Ghost»"}
	source := &fakeSource{prices: map[string]string{
		"USP «Ghost»": "5.00",
	}}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	report, err := fetcher.FetchItems(context.Background(), []*models.Item{item}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
}

func TestFetchItemsEmptyHistoryCountsAsError(t *testing.T) {
	item := &models.Item{ID: 1, Name: "Delisted"}
	source := &fakeSource{prices: map[string]string{}}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	report, err := fetcher.FetchItems(context.Background(), []*models.Item{item}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Success)
	assert.Equal(t, 1, report.Errors)
	assert.Empty(t, store.all())
}

func TestFetchOneRefreshesSingleItem(t *testing.T) {
	item := &models.Item{ID: 7, Name: "G22"}
	source := &fakeSource{prices: map[string]string{"G22": "3.25"}}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	require.NoError(t, fetcher.FetchOne(context.Background(), item))

	updates := store.all()
	require.Len(t, updates, 1)
	assert.Equal(t, uint(7), updates[0].Item.ID)
	assert.True(t, updates[0].Price.Equal(decimal.RequireFromString("3.25")))
}

type cancellingSource struct {
	cancel      context.CancelFunc
	successName string
}

func (s *cancellingSource) FetchPriceHistory(ctx context.Context, name string) ([]market.PricePoint, error) {
	if name == s.successName {
		s.cancel()
		return []market.PricePoint{{Date: "2026-08-28", PurchasePrice: "7.00"}}, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFetchItemsCommitsStagedResultsAfterCancellation(t *testing.T) {
	items := testItems(5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The last item succeeds and cancels the context; the in-flight workers
	// for the other four only unblock on cancellation and fail.
	source := &cancellingSource{cancel: cancel, successName: items[4].FullName()}
	store := &fakeStore{}
	fetcher := NewFetcher(store, source, nil, time.Millisecond)

	report, err := fetcher.FetchItems(ctx, items, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 4, report.Errors)

	updates := store.all()
	require.Len(t, updates, 1)
	assert.Equal(t, items[4].ID, updates[0].Item.ID)
	assert.True(t, updates[0].Price.Equal(decimal.RequireFromString("7.00")))
}
