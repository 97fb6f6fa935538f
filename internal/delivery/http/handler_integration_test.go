package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkharvest/harvester/config"
	"github.com/bkharvest/harvester/internal/domain"
	"github.com/bkharvest/harvester/internal/infrastructure/cache"
	"github.com/bkharvest/harvester/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeClient struct {
	mu        sync.Mutex
	stores    map[string]domain.StoreRecord
	menus     map[string][]domain.MenuEntry
	items     map[string]domain.ItemInfo
	itemCalls int
}

func (f *fakeClient) FetchNearbyStores(ctx context.Context, at domain.Coordinate) domain.Result[[]domain.StoreRecord] {
	return domain.Absent[[]domain.StoreRecord](domain.AbsenceEmpty, "not used")
}

func (f *fakeClient) FetchStoreInfo(ctx context.Context, id string) domain.Result[domain.StoreRecord] {
	if rec, ok := f.stores[id]; ok {
		return domain.Present(rec)
	}
	return domain.Absent[domain.StoreRecord](domain.AbsenceEmpty, "data.allRestaurants is empty")
}

func (f *fakeClient) FetchMenu(ctx context.Context, storeID string) domain.Result[[]domain.MenuEntry] {
	if menu, ok := f.menus[storeID]; ok {
		return domain.Present(menu)
	}
	return domain.Absent[[]domain.MenuEntry](domain.AbsenceStatus, "500 Internal Server Error")
}

func (f *fakeClient) FetchItemInfo(ctx context.Context, id string) domain.Result[domain.ItemInfo] {
	f.mu.Lock()
	f.itemCalls++
	f.mu.Unlock()
	if info, ok := f.items[id]; ok {
		return domain.Present(info)
	}
	return domain.Absent[domain.ItemInfo](domain.AbsenceShape, "missing data")
}

type fakeHarvester struct {
	running  bool
	startErr error
	started  []usecase.HarvestOptions
	last     *usecase.RunReport
}

func (f *fakeHarvester) StartRefresh(ctx context.Context, opts usecase.HarvestOptions) (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, opts)
	done := make(chan error, 1)
	done <- nil
	close(done)
	return done, nil
}

func (f *fakeHarvester) Running() bool                  { return f.running }
func (f *fakeHarvester) LastReport() *usecase.RunReport { return f.last }

func ptr[T any](v T) *T { return &v }

// setupTestRouter creates a test router with canned upstream data
func setupTestRouter(t *testing.T) (*gin.Engine, *fakeClient, *fakeHarvester) {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{Port: "8080", Environment: "test"}}

	client := &fakeClient{
		stores: map[string]domain.StoreRecord{
			"restaurant_42": {SanityID: ptr("restaurant_42"), Number: "42", Pos: &domain.POS{Vendor: ptr("NCR")}},
		},
		menus: map[string][]domain.MenuEntry{
			"42": {
				{ID: "item_a", IsAvailable: ptr(true), Price: &domain.PriceRange{Min: ptr(1.0), Max: ptr(2.0), Default: ptr(1.5)}, Calories: &domain.CalorieRange{Min: ptr(5.0), Max: ptr(10.0)}},
				{ID: "item_b"},
			},
			"43": {{ID: "item_c"}},
		},
		items: map[string]domain.ItemInfo{
			"picker_1": {ID: "picker_1", Name: ptr("Whopper")},
		},
	}
	harvester := &fakeHarvester{}
	items := cache.NewMemoryCache[domain.ItemInfo](100, time.Minute)

	handler := NewHandler(client, harvester, items, HandlerConfig{})
	handler.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }

	return SetupRouter(cfg, handler), client, harvester
}

func do(router *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestHealthCheckEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w, body := do(router, "GET", "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "bkharvest", body["service"])
}

func TestGetRestaurant(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	t.Run("normalizes the sanity document", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/restaurants/restaurant_42")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "restaurant_42", body["restaurant_id"])
		assert.Equal(t, "42", body["store_id"])
		assert.Equal(t, "NCR", body["pos_vendor"])
		assert.Nil(t, body["city"])
	})

	t.Run("absent restaurant is 404 with reason", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/restaurants/restaurant_missing")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "empty", body["reason"])
		assert.Equal(t, "data.allRestaurants is empty", body["detail"])
	})
}

func TestGetRestaurants(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	t.Run("resolves known ids and reports the rest", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/restaurants?ids=restaurant_42,restaurant_missing,restaurant_42")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), body["count"])

		rows := body["restaurants"].([]any)
		require.Len(t, rows, 1)
		assert.Equal(t, "42", rows[0].(map[string]any)["store_id"])

		skipped := body["skipped"].(map[string]any)
		require.Contains(t, skipped, "restaurant_missing")
		assert.Equal(t, "empty", skipped["restaurant_missing"].(map[string]any)["reason"])
	})

	t.Run("missing ids is a bad request", func(t *testing.T) {
		w, _ := do(router, "GET", "/api/v1/restaurants")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetStoreMenu(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	t.Run("returns only valid rows", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/stores/42/menu")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "42", body["store_id"])
		assert.Equal(t, float64(2), body["entries"])
		assert.Equal(t, float64(1), body["count"])

		items := body["items"].([]any)
		require.Len(t, items, 1)
		row := items[0].(map[string]any)
		assert.Equal(t, "item_a", row["item_id"])
		assert.Equal(t, 7.5, row["avg_calories"])
		assert.Equal(t, true, row["isAvailable"])
		assert.Equal(t, "2026-10-19T00:00:00Z", row["created_date"])
	})

	t.Run("menu without valid rows is an empty list", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/stores/43/menu")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []any{}, body["items"])
	})

	t.Run("upstream failure is 404 with reason", func(t *testing.T) {
		w, body := do(router, "GET", "/api/v1/stores/99/menu")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "status", body["reason"])
	})
}

func TestGetItem_CachesLookups(t *testing.T) {
	router, client, _ := setupTestRouter(t)

	w, body := do(router, "GET", "/api/v1/items/picker_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "Whopper", body["name"])

	w, body = do(router, "GET", "/api/v1/items/picker_1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, "Whopper", body["name"])

	assert.Equal(t, 1, client.itemCalls)

	w, body = do(router, "GET", "/api/v1/items/picker_404")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "shape", body["reason"])
	assert.Equal(t, 2, client.itemCalls)
}

func TestStartRefresh(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		startErr   error
		wantStatus int
	}{
		{name: "starts refresh", path: "/api/v1/harvest/refresh", wantStatus: http.StatusAccepted},
		{name: "starts refresh with upload", path: "/api/v1/harvest/refresh?upload=true", wantStatus: http.StatusAccepted},
		{name: "already running", path: "/api/v1/harvest/refresh", startErr: domain.ErrHarvestRunning, wantStatus: http.StatusConflict},
		{name: "upload without database", path: "/api/v1/harvest/refresh?upload=true", startErr: domain.ErrUploadNotConfigured, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, harvester := setupTestRouter(t)
			harvester.startErr = tt.startErr

			w, body := do(router, "POST", tt.path)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.startErr != nil {
				assert.Equal(t, tt.startErr.Error(), body["error"])
				assert.Empty(t, harvester.started)
				return
			}
			require.Len(t, harvester.started, 1)
			assert.Equal(t, "started", body["status"])
			assert.Equal(t, harvester.started[0].Upload, body["upload"])
		})
	}
}

func TestHarvestStatus(t *testing.T) {
	router, _, harvester := setupTestRouter(t)

	w, body := do(router, "GET", "/api/v1/harvest/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["running"])
	assert.Nil(t, body["last_report"])

	harvester.running = true
	harvester.last = &usecase.RunReport{
		Mode: usecase.ModeMenus,
		Stages: []usecase.StageReport{{
			Name:    usecase.StageMenus,
			Units:   3,
			Fetched: 2,
			Skipped: map[domain.AbsenceReason]int{domain.AbsenceStatus: 1},
			Rows:    40,
		}},
	}

	w, body = do(router, "GET", "/api/v1/harvest/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["running"])

	report := body["last_report"].(map[string]any)
	assert.Equal(t, "menus", report["mode"])
	stage := report["stages"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(40), stage["rows"])
	assert.Equal(t, map[string]any{"status": float64(1)}, stage["skipped"])
}

func TestUnknownRoute(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w, _ := do(router, "GET", "/api/v1/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
