package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

// Stage names used in run reports.
const (
	StageDiscover    = "discover"
	StageRestaurants = "restaurants"
	StageMenus       = "menus"
	StageItems       = "items"
)

// Run modes.
const (
	ModeAll   = "all"
	ModeMenus = "menus"
)

// HarvestServiceConfig holds configuration for the harvest service
type HarvestServiceConfig struct {
	Concurrency   int
	MenuBatchSize int
	SweepStep     float64
	Regions       []domain.Region
}

// HarvestOptions are per-run switches.
type HarvestOptions struct {
	Upload bool
}

// Uploader pushes finished CSV files to the database.
type Uploader interface {
	Upload(ctx context.Context, files domain.HarvestFiles) error
}

// StageReport describes one pipeline stage.
type StageReport struct {
	Name     string                       `json:"name"`
	Units    int                          `json:"units"`
	Fetched  int                          `json:"fetched"`
	Skipped  map[domain.AbsenceReason]int `json:"skipped,omitempty"`
	Rows     int                          `json:"rows"`
	Path     string                       `json:"path,omitempty"`
	Duration time.Duration                `json:"duration_ns"`
}

// RunReport describes one harvest run.
type RunReport struct {
	Mode      string              `json:"mode"`
	StartedAt time.Time           `json:"started_at"`
	Stages    []StageReport       `json:"stages"`
	Files     domain.HarvestFiles `json:"files"`
	Uploaded  bool                `json:"uploaded"`
}

// HarvestService sequences discover → restaurants → menus → items. Each stage
// finishes completely before the next one starts.
type HarvestService struct {
	client    domain.BKClient
	store     domain.HarvestStore
	uploader  Uploader
	itemCache domain.ItemCache

	concurrency   int
	menuBatchSize int
	regions       []domain.Region
	discoverer    *Discoverer
	now           func() time.Time

	running atomic.Bool
	mu      sync.RWMutex
	last    *RunReport
}

// NewHarvestService creates a new harvest service with dependencies.
// uploader and itemCache may be nil.
func NewHarvestService(
	client domain.BKClient,
	store domain.HarvestStore,
	uploader Uploader,
	itemCache domain.ItemCache,
	config HarvestServiceConfig,
) *HarvestService {
	concurrency := config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	batchSize := config.MenuBatchSize
	if batchSize < 1 {
		batchSize = 100
	}

	regions := config.Regions
	if len(regions) == 0 {
		regions = USRegions()
	}

	return &HarvestService{
		client:        client,
		store:         store,
		uploader:      uploader,
		itemCache:     itemCache,
		concurrency:   concurrency,
		menuBatchSize: batchSize,
		regions:       regions,
		discoverer:    NewDiscoverer(client, concurrency, config.SweepStep),
		now:           time.Now,
	}
}

// LastReport returns the report of the most recent finished run, or nil.
func (s *HarvestService) LastReport() *RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Running reports whether a run is in progress.
func (s *HarvestService) Running() bool {
	return s.running.Load()
}

// RunAll performs the whole harvest: discover stores, write restaurants,
// stream menus batch by batch, then resolve every distinct item once.
func (s *HarvestService) RunAll(ctx context.Context, opts HarvestOptions) (*RunReport, error) {
	if err := s.acquire(opts); err != nil {
		return nil, err
	}
	defer s.running.Store(false)

	report := &RunReport{Mode: ModeAll, StartedAt: s.now()}
	createdDate := DateOf(report.StartedAt)

	// 1. discover
	start := time.Now()
	stores, discovery := s.discoverer.Discover(ctx, s.regions...)
	report.Stages = append(report.Stages, StageReport{
		Name:     StageDiscover,
		Units:    discovery.Samples,
		Fetched:  discovery.Fetched,
		Skipped:  discovery.Skipped,
		Rows:     discovery.Stores,
		Duration: time.Since(start),
	})
	slog.InfoContext(ctx, "discovered stores", "stores", discovery.Stores, "samples", discovery.Samples)
	if err := ctx.Err(); err != nil {
		return s.finish(report), fmt.Errorf("harvest stopped after discovery: %w", err)
	}

	// 2. restaurants
	start = time.Now()
	storeIDs := sortedKeys(stores)
	restaurants := make([]domain.RestaurantRow, 0, len(storeIDs))
	for _, id := range storeIDs {
		restaurants = append(restaurants, SimpleRestaurant(stores[id]))
	}

	path, err := s.store.WriteRestaurants(ctx, createdDate, restaurants)
	if err != nil {
		return s.finish(report), fmt.Errorf("failed to write restaurants: %w", err)
	}
	report.Files.Restaurants = path
	report.Stages = append(report.Stages, StageReport{
		Name:     StageRestaurants,
		Units:    len(storeIDs),
		Rows:     len(restaurants),
		Path:     path,
		Duration: time.Since(start),
	})

	// 3. menus
	itemIDs, menuStage, err := s.harvestMenus(ctx, storeIDs, createdDate)
	report.Stages = append(report.Stages, menuStage)
	report.Files.MenuItems = menuStage.Path
	if err != nil {
		return s.finish(report), err
	}

	if opts.Upload {
		if err := s.uploader.Upload(ctx, domain.HarvestFiles{Restaurants: report.Files.Restaurants, MenuItems: report.Files.MenuItems}); err != nil {
			return s.finish(report), fmt.Errorf("failed to upload menus: %w", err)
		}
	}

	slog.InfoContext(ctx, "finished all stores")

	// 4. items
	itemStage, err := s.harvestItems(ctx, itemIDs, createdDate)
	report.Stages = append(report.Stages, itemStage)
	report.Files.Items = itemStage.Path
	if err != nil {
		return s.finish(report), err
	}

	slog.InfoContext(ctx, "finished all items")

	if opts.Upload {
		if err := s.uploader.Upload(ctx, domain.HarvestFiles{Items: report.Files.Items}); err != nil {
			return s.finish(report), fmt.Errorf("failed to upload items: %w", err)
		}
		report.Uploaded = true
	}

	return s.finish(report), nil
}

// RefreshMenus re-harvests menus for the stores listed in the newest
// restaurants file. Without such a file it does nothing and returns a report
// with no stages.
func (s *HarvestService) RefreshMenus(ctx context.Context, opts HarvestOptions) (*RunReport, error) {
	if err := s.acquire(opts); err != nil {
		return nil, err
	}
	defer s.running.Store(false)
	return s.refreshMenus(ctx, opts)
}

// StartRefresh claims the run slot and performs RefreshMenus in the
// background. The returned channel yields the run's error (nil on success)
// and is then closed. ErrHarvestRunning is returned synchronously.
func (s *HarvestService) StartRefresh(ctx context.Context, opts HarvestOptions) (<-chan error, error) {
	if err := s.acquire(opts); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.refreshMenus(ctx, opts)
		s.running.Store(false)
		if err != nil {
			slog.ErrorContext(ctx, "menu refresh failed", "err", err)
		}
		done <- err
		close(done)
	}()
	return done, nil
}

func (s *HarvestService) acquire(opts HarvestOptions) error {
	if opts.Upload && s.uploader == nil {
		return domain.ErrUploadNotConfigured
	}
	if !s.running.CompareAndSwap(false, true) {
		return domain.ErrHarvestRunning
	}
	return nil
}

func (s *HarvestService) refreshMenus(ctx context.Context, opts HarvestOptions) (*RunReport, error) {
	report := &RunReport{Mode: ModeMenus, StartedAt: s.now()}

	path, storeIDs, err := s.store.LatestRestaurants(ctx)
	if errors.Is(err, domain.ErrNoRestaurantsFile) {
		slog.WarnContext(ctx, "no restaurants files found")
		return s.finish(report), nil
	}
	if err != nil {
		return s.finish(report), fmt.Errorf("failed to read restaurants: %w", err)
	}
	report.Files.Restaurants = path
	slog.InfoContext(ctx, "refreshing menus", "restaurants", path, "stores", len(storeIDs))

	_, menuStage, err := s.harvestMenus(ctx, storeIDs, DateOf(report.StartedAt))
	report.Stages = append(report.Stages, menuStage)
	report.Files.MenuItems = menuStage.Path
	if err != nil {
		return s.finish(report), err
	}

	if opts.Upload {
		if err := s.uploader.Upload(ctx, domain.HarvestFiles{MenuItems: report.Files.MenuItems}); err != nil {
			return s.finish(report), fmt.Errorf("failed to upload menus: %w", err)
		}
		report.Uploaded = true
	}

	return s.finish(report), nil
}

// harvestMenus fetches menus in fixed-size batches and appends each batch's
// rows before the next batch is dispatched. It returns the distinct item IDs
// of every written row.
func (s *HarvestService) harvestMenus(ctx context.Context, storeIDs []string, createdDate time.Time) (map[string]struct{}, StageReport, error) {
	start := time.Now()
	stage := StageReport{Name: StageMenus, Units: len(storeIDs), Skipped: make(map[domain.AbsenceReason]int)}
	itemIDs := make(map[string]struct{})

	if err := ctx.Err(); err != nil {
		return itemIDs, stage, fmt.Errorf("harvest stopped before menus: %w", err)
	}
	appender, err := s.store.OpenMenuItems(ctx, createdDate)
	if err != nil {
		return itemIDs, stage, fmt.Errorf("failed to open menu items: %w", err)
	}
	stage.Path = appender.Path()

	total := len(storeIDs)
	for cur := 0; cur < total; cur += s.menuBatchSize {
		end := min(cur+s.menuBatchSize, total)
		batch := storeIDs[cur:end]
		slog.InfoContext(ctx, fmt.Sprintf("Starting %d of %d", cur, total))

		menus := FanOut(ctx, batch, s.concurrency, s.client.FetchMenu)
		// a cancelled batch is not written
		if err := ctx.Err(); err != nil {
			appender.Close()
			stage.Duration = time.Since(start)
			return itemIDs, stage, fmt.Errorf("harvest stopped at %d of %d: %w", cur, total, err)
		}
		stage.Fetched += len(menus.Values)
		for reason, n := range menus.SkippedByReason() {
			stage.Skipped[reason] += n
		}

		var rows []domain.MenuItemRow
		for _, storeID := range batch {
			menu, ok := menus.Values[storeID]
			if !ok {
				continue
			}
			rows = append(rows, SimpleMenu(storeID, menu, createdDate)...)
		}

		if err := appender.Append(ctx, rows); err != nil {
			appender.Close()
			stage.Duration = time.Since(start)
			return itemIDs, stage, fmt.Errorf("failed to append menu items: %w", err)
		}
		stage.Rows += len(rows)

		for _, row := range rows {
			itemIDs[row.ItemID] = struct{}{}
		}

		slog.InfoContext(ctx, fmt.Sprintf("Finished %d of %d", end, total))
	}

	stage.Duration = time.Since(start)
	if err := appender.Close(); err != nil {
		return itemIDs, stage, fmt.Errorf("failed to close menu items: %w", err)
	}
	return itemIDs, stage, nil
}

// harvestItems resolves each distinct item once, consulting the item cache
// first when one is configured.
func (s *HarvestService) harvestItems(ctx context.Context, itemIDs map[string]struct{}, createdDate time.Time) (StageReport, error) {
	start := time.Now()
	stage := StageReport{Name: StageItems, Units: len(itemIDs), Skipped: make(map[domain.AbsenceReason]int)}

	infos := make(map[string]domain.ItemInfo, len(itemIDs))
	var toFetch []string
	for _, id := range sortedKeys(itemIDs) {
		if s.itemCache != nil {
			if info, err := s.itemCache.Get(ctx, id); err == nil {
				infos[id] = info
				continue
			}
		}
		toFetch = append(toFetch, id)
	}

	fetched := FanOut(ctx, toFetch, s.concurrency, s.client.FetchItemInfo)
	if err := ctx.Err(); err != nil {
		stage.Duration = time.Since(start)
		return stage, fmt.Errorf("harvest stopped before writing items: %w", err)
	}
	stage.Skipped = fetched.SkippedByReason()
	for id, info := range fetched.Values {
		infos[id] = info
		if s.itemCache != nil {
			if err := s.itemCache.Set(ctx, id, info); err != nil {
				slog.WarnContext(ctx, "failed to cache item info", "item", id, "err", err)
			}
		}
	}
	stage.Fetched = len(infos)

	rows := make([]domain.ItemRow, 0, len(infos))
	for _, id := range sortedKeys(infos) {
		rows = append(rows, SimpleItem(infos[id]))
	}

	path, err := s.store.WriteItems(ctx, createdDate, rows)
	stage.Path = path
	stage.Duration = time.Since(start)
	if err != nil {
		return stage, fmt.Errorf("failed to write items: %w", err)
	}
	stage.Rows = len(rows)
	return stage, nil
}

func (s *HarvestService) finish(report *RunReport) *RunReport {
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report
}

// DateOf returns the UTC midnight of t's calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
