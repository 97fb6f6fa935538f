package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/usecase"
)

// Harvester is the part of the harvest service the API drives.
type Harvester interface {
	StartRefresh(ctx context.Context, opts usecase.HarvestOptions) (<-chan error, error)
	Running() bool
	LastReport() *usecase.RunReport
}

// HandlerConfig holds optional handler settings.
type HandlerConfig struct {
	// Jobs is the parent context of background refreshes; defaults to
	// context.Background().
	Jobs context.Context
	// Workers bounds concurrent upstream calls of batch lookups.
	Workers int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	client    domain.BKClient
	harvester Harvester
	items     domain.ItemCache
	jobs      context.Context
	workers   int
	now       func() time.Time
}

// NewHandler creates a new HTTP handler. items may be nil to disable caching.
func NewHandler(client domain.BKClient, harvester Harvester, items domain.ItemCache, cfg HandlerConfig) *Handler {
	jobs := cfg.Jobs
	if jobs == nil {
		jobs = context.Background()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 10
	}
	return &Handler{
		client:    client,
		harvester: harvester,
		items:     items,
		jobs:      jobs,
		workers:   workers,
		now:       time.Now,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "bkharvest",
		"version": "1.0.0",
	})
}

// GetRestaurant looks up one restaurant by its restaurant ID and returns it
// as a normalized restaurant row.
func (h *Handler) GetRestaurant(c *gin.Context) {
	id := c.Param("restaurantId")
	record, ok := respondAbsent(c, h.client.FetchStoreInfo(c.Request.Context(), id))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, usecase.SimpleRestaurant(record))
}

// GetRestaurants looks up a comma separated list of restaurant IDs
// concurrently. IDs that resolve to nothing are listed under "skipped" with
// their absence.
func (h *Handler) GetRestaurants(c *gin.Context) {
	var ids []string
	seen := make(map[string]bool)
	for _, id := range strings.Split(c.Query("ids"), ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'ids' is required"})
		return
	}

	found := usecase.FanOut(c.Request.Context(), ids, h.workers, h.client.FetchStoreInfo)

	rows := make([]domain.RestaurantRow, 0, len(found.Values))
	for _, id := range ids {
		if record, ok := found.Values[id]; ok {
			rows = append(rows, usecase.SimpleRestaurant(record))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(rows),
		"restaurants": rows,
		"skipped":     found.Skipped,
	})
}

// GetStoreMenu fetches a store's live menu and returns the rows a harvest
// would write for it today.
func (h *Handler) GetStoreMenu(c *gin.Context) {
	storeID := c.Param("storeId")
	menu, ok := respondAbsent(c, h.client.FetchMenu(c.Request.Context(), storeID))
	if !ok {
		return
	}
	rows := usecase.SimpleMenu(storeID, menu, usecase.DateOf(h.now()))
	if rows == nil {
		rows = []domain.MenuItemRow{}
	}
	c.JSON(http.StatusOK, gin.H{
		"store_id": storeID,
		"entries":  len(menu),
		"count":    len(rows),
		"items":    rows,
	})
}

// GetItem resolves one item, answering from the item cache when possible.
func (h *Handler) GetItem(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("itemId")

	if h.items != nil {
		if info, err := h.items.Get(ctx, id); err == nil {
			c.Header("X-Cache", "HIT")
			c.JSON(http.StatusOK, info)
			return
		}
	}

	info, ok := respondAbsent(c, h.client.FetchItemInfo(ctx, id))
	if !ok {
		return
	}
	if h.items != nil {
		if err := h.items.Set(ctx, id, info); err != nil {
			slog.WarnContext(ctx, "failed to cache item info", "item", id, "err", err)
		}
	}
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, info)
}

// StartRefresh kicks off an incremental menu refresh in the background.
// Pass upload=true to upload the new menu file when it finishes.
func (h *Handler) StartRefresh(c *gin.Context) {
	opts := usecase.HarvestOptions{Upload: c.Query("upload") == "true"}

	_, err := h.harvester.StartRefresh(h.jobs, opts)
	switch {
	case errors.Is(err, domain.ErrHarvestRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, domain.ErrUploadNotConfigured):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "upload": opts.Upload})
}

// HarvestStatus reports whether a run is in progress and the last run's report.
func (h *Handler) HarvestStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":     h.harvester.Running(),
		"last_report": h.harvester.LastReport(),
	})
}

// respondAbsent writes a 404 for absent results and reports whether the
// caller should continue with the value.
func respondAbsent[T any](c *gin.Context, result domain.Result[T]) (T, bool) {
	value, ok := result.Get()
	if ok {
		return value, true
	}
	absence, _ := result.Absence()
	c.JSON(http.StatusNotFound, gin.H{
		"error":  "not found",
		"reason": absence.Reason.String(),
		"detail": absence.Detail,
	})
	return value, false
}
