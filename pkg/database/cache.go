package database

import (
	"context"
	"sync"
	"time"

	"cohort-retention/pkg/calculator"
	"cohort-retention/pkg/logging"
	"cohort-retention/pkg/metrics"
	"cohort-retention/pkg/models"
)

// Table is a normalized snapshot of the order items table. Callers share it and
// must not modify Lines.
type Table struct {
	Lines       []models.OrderLine
	Diagnostics models.NormalizeReport
	LoadedAt    time.Time
}

// Cache keeps one normalized table in memory until Refresh is called.
type Cache struct {
	src calculator.Loader

	mu    sync.RWMutex
	table *Table
}

func NewCache(src calculator.Loader) *Cache {
	return &Cache{src: src}
}

// Get returns the cached table, loading it on first use. Load errors are not cached.
func (c *Cache) Get(ctx context.Context) (*Table, error) {
	c.mu.RLock()
	t := c.table
	c.mu.RUnlock()
	if t != nil {
		metrics.CacheHits.Inc()
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.table != nil {
		metrics.CacheHits.Inc()
		return c.table, nil
	}
	metrics.CacheMisses.Inc()
	t, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.table = t
	return t, nil
}

// Refresh reloads the table. On error the previous snapshot stays in place.
func (c *Cache) Refresh(ctx context.Context) (*Table, error) {
	metrics.CacheRefreshes.Inc()
	t, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
	return t, nil
}

func (c *Cache) load(ctx context.Context) (*Table, error) {
	raw, err := c.src.LoadOrderLines(ctx)
	if err != nil {
		return nil, err
	}
	lines, diag := calculator.Normalize(raw)
	metrics.RecordNormalize(diag.DroppedByReason, diag.UnknownStatus)
	logging.Info().
		Int("input", diag.Input).
		Int("kept", diag.Kept).
		Int("dropped", diag.Dropped).
		Int("unknown_status", diag.UnknownStatus).
		Msg("order table cached")
	return &Table{Lines: lines, Diagnostics: diag, LoadedAt: time.Now().UTC()}, nil
}
