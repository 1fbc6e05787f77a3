package status

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the background pipelines.
type Snapshot struct {
	PriceUpdateRunning bool      `json:"price_update_running"`
	LastPriceUpdate    time.Time `json:"last_price_update"`
	LastBoostCheck     time.Time `json:"last_boost_check"`
	LastCatalogImport  time.Time `json:"last_catalog_import"`
	ActiveBoosts       int       `json:"active_boosts"`
	LastError          string    `json:"last_error,omitempty"`
	LastErrorAt        time.Time `json:"last_error_at,omitempty"`
}

// Tracker records pipeline progress for the status endpoint.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) SetPriceUpdateRunning(running bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.PriceUpdateRunning = running
	if !running {
		t.snap.LastPriceUpdate = time.Now()
	}
}

func (t *Tracker) MarkBoostCheck(activeBoosts int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastBoostCheck = time.Now()
	t.snap.ActiveBoosts = activeBoosts
}

func (t *Tracker) MarkCatalogImport() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastCatalogImport = time.Now()
}

func (t *Tracker) RecordError(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastError = err.Error()
	t.snap.LastErrorAt = time.Now()
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
