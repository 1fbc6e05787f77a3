package api

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"standoff-tracker/internal/config"
	"standoff-tracker/internal/logging"
	"standoff-tracker/internal/models"
	"standoff-tracker/internal/notify"
	"standoff-tracker/internal/services/boost"
	"standoff-tracker/internal/services/catalog"
	"standoff-tracker/internal/services/prices"
	"standoff-tracker/internal/status"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type APIHandler struct {
	db         *gorm.DB
	cfg        *config.Config
	store      *prices.DBStore
	cache      *prices.FileCache
	fetcher    *prices.Fetcher
	reconciler *catalog.Reconciler
	detector   *boost.Detector
	boostCache *boost.Cache
	hub        *notify.Hub
	tracker    *status.Tracker
	log        *logrus.Entry

	refreshMu      sync.Mutex
	refreshRunning bool

	showcaseMu    sync.Mutex
	showcaseAt    time.Time
	showcaseItems []ShowcaseItem
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, cfg *config.Config, store *prices.DBStore, cache *prices.FileCache,
	fetcher *prices.Fetcher, reconciler *catalog.Reconciler, detector *boost.Detector, boostCache *boost.Cache,
	hub *notify.Hub, tracker *status.Tracker) *APIHandler {

	handler := &APIHandler{
		db:         db,
		cfg:        cfg,
		store:      store,
		cache:      cache,
		fetcher:    fetcher,
		reconciler: reconciler,
		detector:   detector,
		boostCache: boostCache,
		hub:        hub,
		tracker:    tracker,
		log:        logging.Component("api"),
	}

	r.GET("/health", handler.Health)
	r.GET("/status", handler.GetStatus)
	r.GET("/ws", handler.ServeWebsocket)

	items := r.Group("/items")
	{
		items.GET("", handler.ListItems)
		items.GET("/:id", handler.GetItem)
		items.GET("/:id/history", handler.GetItemHistory)
		items.GET("/:id/stats", handler.GetItemStats)
		items.POST("/:id/refresh", handler.RefreshItem)
	}

	r.GET("/collections", handler.ListCollections)
	r.GET("/showcase/daily", handler.DailyShowcase)

	boosts := r.Group("/boosts")
	{
		boosts.GET("", handler.ListBoosts)
		boosts.POST("/check", handler.CheckBoosts)
	}

	admin := r.Group("/admin")
	{
		admin.POST("/import", handler.ImportCatalog)
		admin.POST("/refresh-prices", handler.RefreshPrices)
		admin.POST("/refresh-owned", handler.RefreshOwnedPrices)
		admin.POST("/enrich-collection", handler.EnrichCollection)
		admin.POST("/prune-cache", handler.PruneCache)
		admin.GET("/export", handler.ExportCatalog)
	}

	return handler
}

func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
}

func (h *APIHandler) GetStatus(c *gin.Context) {
	snap := h.tracker.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"pipeline":        snap,
		"connected_users": h.hub.ConnectedUsers(),
	})
}

func (h *APIHandler) ServeWebsocket(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	h.hub.Serve(c.Writer, c.Request, uint(userID))
}

func (h *APIHandler) ListItems(c *gin.Context) {
	query := h.db.Model(&models.Item{})

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR skin_name LIKE ? OR original_name LIKE ?", like, like, like)
	}
	if typ := c.Query("type"); typ != "" {
		t, err := strconv.Atoi(typ)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
			return
		}
		query = query.Where("type = ?", t)
	}
	if rarity := c.Query("rarity"); rarity != "" {
		query = query.Where("rarity = ?", int(models.ParseRarity(rarity)))
	}
	if collection := c.Query("collection_id"); collection != "" {
		query = query.Where("collection_id = ?", collection)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var items []models.Item
	err := query.Order("id asc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *APIHandler) GetItem(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetItemHistory serves chart data from the per-item file cache; the
// relational table stays reserved for analytics.
func (h *APIHandler) GetItemHistory(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 {
		days = 30
	}
	points := h.cache.Recent(item.ID, days)
	c.JSON(http.StatusOK, gin.H{
		"item_id": item.ID,
		"name":    item.FullName(),
		"points":  points,
	})
}

func (h *APIHandler) GetItemStats(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 {
		days = 30
	}

	resp := gin.H{
		"item_id":       item.ID,
		"name":          item.FullName(),
		"current_price": item.CurrentPrice,
		"last_update":   item.LastUpdate,
	}
	if change, percent, ok := h.cache.DailyChange(item.ID); ok {
		resp["daily_change"] = change
		resp["daily_change_percent"] = percent
	}
	if min, max, avg, ok := h.cache.Stats(item.ID, days); ok {
		resp["min_price"] = min
		resp["max_price"] = max
		resp["avg_price"] = avg
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshItem fetches the current price of one item on demand.
func (h *APIHandler) RefreshItem(c *gin.Context) {
	item, ok := h.loadItem(c)
	if !ok {
		return
	}
	if err := h.fetcher.FetchOne(c.Request.Context(), item); err != nil {
		h.tracker.RecordError(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	var refreshed models.Item
	if err := h.db.First(&refreshed, item.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, refreshed)
}

func (h *APIHandler) ListCollections(c *gin.Context) {
	var collections []models.Collection
	if err := h.db.Where("is_removed = ?", false).Order("name asc").Find(&collections).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collections": collections})
}

func (h *APIHandler) ListBoosts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"boosts": h.boostCache.Load()})
}

// CheckBoosts runs one detection cycle immediately.
func (h *APIHandler) CheckBoosts(c *gin.Context) {
	items, err := h.store.AllItems(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	active, err := h.detector.Detect(c.Request.Context(), items)
	if err != nil {
		h.tracker.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.tracker.MarkBoostCheck(len(active))
	c.JSON(http.StatusOK, gin.H{"boosts": active, "count": len(active)})
}

// ImportCatalog pulls the full catalog listing from the market source and
// reconciles it synchronously.
func (h *APIHandler) ImportCatalog(c *gin.Context) {
	report, err := h.reconciler.ImportFromSource(c.Request.Context())
	if err != nil {
		h.tracker.RecordError(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.tracker.MarkCatalogImport()
	c.JSON(http.StatusOK, gin.H{
		"added":   report.Added,
		"updated": report.Updated,
		"skipped": report.Skipped,
		"summary": report.String(),
	})
}

// RefreshPrices starts a full price refresh in the background. Only one
// refresh runs at a time.
func (h *APIHandler) RefreshPrices(c *gin.Context) {
	h.startRefresh(c, func(ctx context.Context) (prices.FetchReport, error) {
		return h.fetcher.FetchAll(ctx, h.cfg.FetchConcurrency)
	})
}

// RefreshOwnedPrices refreshes only items held in portfolios.
func (h *APIHandler) RefreshOwnedPrices(c *gin.Context) {
	h.startRefresh(c, func(ctx context.Context) (prices.FetchReport, error) {
		return h.fetcher.FetchOwned(ctx, h.cfg.OwnedFetchConcurrency)
	})
}

func (h *APIHandler) startRefresh(c *gin.Context, run func(ctx context.Context) (prices.FetchReport, error)) {
	h.refreshMu.Lock()
	if h.refreshRunning {
		h.refreshMu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a price refresh is already running"})
		return
	}
	h.refreshRunning = true
	h.refreshMu.Unlock()

	h.tracker.SetPriceUpdateRunning(true)
	go func() {
		defer func() {
			h.refreshMu.Lock()
			h.refreshRunning = false
			h.refreshMu.Unlock()
			h.tracker.SetPriceUpdateRunning(false)
		}()
		report, err := run(context.Background())
		if err != nil {
			h.tracker.RecordError(err)
			h.log.WithError(err).Error("Price refresh failed")
			return
		}
		h.log.WithField("report", report.String()).Info("Price refresh finished")
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

type enrichRequest struct {
	Collection string              `json:"collection" binding:"required"`
	ImageURL   string              `json:"image_url"`
	Entries    []catalog.WikiEntry `json:"entries" binding:"required"`
}

// EnrichCollection aligns one collection's items against externally curated
// entries (rarity classes, images).
func (h *APIHandler) EnrichCollection(c *gin.Context) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.reconciler.EnrichCollection(c.Request.Context(), req.Collection, req.ImageURL, req.Entries)
	if err != nil {
		h.tracker.RecordError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// PruneCache drops file-cache points older than the retention window.
func (h *APIHandler) PruneCache(c *gin.Context) {
	if err := h.cache.Prune(h.cfg.HistoryRetention, time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "pruned"})
}

func (h *APIHandler) loadItem(c *gin.Context) (*models.Item, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return nil, false
	}
	var item models.Item
	if err := h.db.First(&item, uint(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &item, true
}
