package prices

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/market"
	"standoff-tracker/internal/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// PriceSource fetches the market price history of one item by its market
// listing name.
type PriceSource interface {
	FetchPriceHistory(ctx context.Context, name string) ([]market.PricePoint, error)
}

// FetchReport summarizes one fetch cycle.
type FetchReport struct {
	Success int
	Errors  int
}

func (r FetchReport) String() string {
	return fmt.Sprintf("success=%d errors=%d", r.Success, r.Errors)
}

// Fetcher refreshes catalog prices from the market source. Workers fan out
// under a concurrency bound, stage their results in memory and a single
// transaction commits the whole batch, so one failed item never loses the
// rest of the cycle.
type Fetcher struct {
	store   Store
	source  PriceSource
	cache   *FileCache
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewFetcher(store Store, source PriceSource, cache *FileCache, singleDelay time.Duration) *Fetcher {
	return &Fetcher{
		store:   store,
		source:  source,
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(singleDelay), 1),
		log:     logging.Component("price-fetcher"),
	}
}

// FetchAll refreshes every catalog item.
func (f *Fetcher) FetchAll(ctx context.Context, concurrency int) (FetchReport, error) {
	items, err := f.store.AllItems(ctx)
	if err != nil {
		return FetchReport{}, err
	}
	return f.FetchItems(ctx, items, concurrency)
}

// FetchOwned refreshes only the items held in portfolios, allowing a tighter
// cadence for the prices users actually watch.
func (f *Fetcher) FetchOwned(ctx context.Context, concurrency int) (FetchReport, error) {
	items, err := f.store.OwnedItems(ctx)
	if err != nil {
		return FetchReport{}, err
	}
	return f.FetchItems(ctx, items, concurrency)
}

// FetchItems refreshes the given items with at most concurrency requests in
// flight. Per-item failures are counted and logged, never propagated; results
// staged before a cancellation are still committed.
func (f *Fetcher) FetchItems(ctx context.Context, items []*models.Item, concurrency int) (FetchReport, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		staged  []PriceUpdate
		errCnt  int64
		sem     = make(chan struct{}, concurrency)
	)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(item *models.Item) {
			defer wg.Done()
			defer func() { <-sem }()

			update, err := f.fetchCurrent(ctx, item)
			if err != nil {
				atomic.AddInt64(&errCnt, 1)
				f.log.WithError(err).WithField("item", item.FullName()).Debug("Price fetch failed")
				return
			}
			mu.Lock()
			staged = append(staged, update)
			mu.Unlock()
		}(item)
	}
	wg.Wait()

	if err := f.commit(ctx, staged); err != nil {
		return FetchReport{Errors: len(items)}, err
	}
	report := FetchReport{Success: len(staged), Errors: int(errCnt)}
	f.log.WithFields(logging.Fields{
		"total":   len(items),
		"success": report.Success,
		"errors":  report.Errors,
	}).Info("Price fetch cycle finished")
	return report, nil
}

// FetchOne refreshes a single item sequentially. Calls share a rate limiter
// so on-demand refreshes stay polite to the source.
func (f *Fetcher) FetchOne(ctx context.Context, item *models.Item) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	update, err := f.fetchCurrent(ctx, item)
	if err != nil {
		return err
	}
	return f.commit(ctx, []PriceUpdate{update})
}

func (f *Fetcher) fetchCurrent(ctx context.Context, item *models.Item) (PriceUpdate, error) {
	name := item.OriginalName
	if name == "" {
		name = item.FullName()
	}
	points, err := f.source.FetchPriceHistory(ctx, name)
	if err != nil {
		return PriceUpdate{}, fmt.Errorf("failed to fetch history for %q: %w", name, err)
	}
	if len(points) == 0 {
		return PriceUpdate{}, fmt.Errorf("no price points for %q", name)
	}
	last := points[len(points)-1]
	price, err := market.ParsePrice(last.PurchasePrice)
	if err != nil {
		return PriceUpdate{}, fmt.Errorf("bad price %q for %q: %w", last.PurchasePrice, name, err)
	}
	return PriceUpdate{Item: item, Price: price, RecordedAt: time.Now()}, nil
}

// commit persists the batch through the store, then mirrors each point into
// the file cache. The commit uses a background context so a cancelled cycle
// still lands the results it already gathered.
func (f *Fetcher) commit(ctx context.Context, staged []PriceUpdate) error {
	if len(staged) == 0 {
		return nil
	}
	commitCtx := ctx
	if ctx.Err() != nil {
		commitCtx = context.Background()
	}
	if err := f.store.CommitPrices(commitCtx, staged); err != nil {
		return fmt.Errorf("failed to commit price batch: %w", err)
	}
	if f.cache != nil {
		for _, u := range staged {
			if err := f.cache.Record(u.Item.ID, u.Price, u.RecordedAt); err != nil {
				f.log.WithError(err).WithField("item_id", u.Item.ID).Warn("Failed to update price cache")
			}
		}
	}
	return nil
}
