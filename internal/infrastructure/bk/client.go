package bk

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/bkharvest/harvester/internal/domain"
)

var _ domain.BKClient = (*Client)(nil)

// ClientConfig holds the upstream endpoints and transport settings
type ClientConfig struct {
	GatewayURL        string
	SanityURL         string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// Client issues the four upstream queries. A single Client is shared by all
// workers of a fan-out; resty clients are safe for concurrent requests.
type Client struct {
	http        *resty.Client
	gatewayURL  string
	sanityURL   string
	rateLimiter *rate.Limiter
}

// NewClient creates a new upstream client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "bkharvest/1.0"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)

	return &Client{
		http:        httpClient,
		gatewayURL:  strings.TrimRight(cfg.GatewayURL, "/"),
		sanityURL:   strings.TrimRight(cfg.SanityURL, "/"),
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// get runs one GET and decodes the envelope. Every failure is reported as an
// Absence; ok is true only for a 200 with a JSON body.
func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) (Node, domain.Absence, bool) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Node{}, domain.Absence{Reason: domain.AbsenceTransport, Detail: err.Error()}, false
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return Node{}, domain.Absence{Reason: domain.AbsenceTransport, Detail: err.Error()}, false
	}

	if resp.StatusCode() != http.StatusOK {
		return Node{}, domain.Absence{Reason: domain.AbsenceStatus, Detail: resp.Status()}, false
	}

	node, err := ParseNode(resp.Body())
	if err != nil {
		return Node{}, domain.Absence{Reason: domain.AbsenceDecode, Detail: err.Error()}, false
	}

	return node, domain.Absence{}, true
}

// FetchMenu returns the menu of a store. Present only when the body carries
// data.storeMenu with at least one decodable entry.
func (c *Client) FetchMenu(ctx context.Context, storeID string) domain.Result[[]domain.MenuEntry] {
	node, absence, ok := c.get(ctx, c.gatewayURL+gatewayGraphQLPath, storeMenuParams(storeID))
	if !ok {
		return absentFrom[[]domain.MenuEntry](ctx, "menu", storeID, absence)
	}

	menu, found := node.Lookup("data", "storeMenu")
	if !found {
		return absentFrom[[]domain.MenuEntry](ctx, "menu", storeID, shape("data.storeMenu"))
	}

	entries := make([]domain.MenuEntry, 0, menu.Len())
	for _, item := range menu.Items() {
		var entry domain.MenuEntry
		if err := item.Decode(&entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return absentFrom[[]domain.MenuEntry](ctx, "menu", storeID, empty("data.storeMenu"))
	}

	return domain.Present(entries)
}

// FetchNearbyStores returns the stores the gateway lists around a coordinate.
func (c *Client) FetchNearbyStores(ctx context.Context, at domain.Coordinate) domain.Result[[]domain.StoreRecord] {
	key := formatCoordinate(at.Lat).String() + "," + formatCoordinate(at.Lon).String()

	node, absence, ok := c.get(ctx, c.gatewayURL+gatewayGraphQLPath, nearbyStoresParams(at.Lat, at.Lon))
	if !ok {
		return absentFrom[[]domain.StoreRecord](ctx, "nearby stores", key, absence)
	}

	nodes, found := node.Lookup("data", "restaurantsV2", "nearby", "nodes")
	if !found {
		return absentFrom[[]domain.StoreRecord](ctx, "nearby stores", key, shape("data.restaurantsV2.nearby.nodes"))
	}

	stores := make([]domain.StoreRecord, 0, nodes.Len())
	for _, item := range nodes.Items() {
		var store domain.StoreRecord
		if err := item.Decode(&store); err != nil {
			continue
		}
		if store.Key() == "" {
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return absentFrom[[]domain.StoreRecord](ctx, "nearby stores", key, empty("data.restaurantsV2.nearby.nodes"))
	}

	return domain.Present(stores)
}

// FetchStoreInfo looks a restaurant up by its document id
// (usually "restaurant_<number>") and returns the first match.
func (c *Client) FetchStoreInfo(ctx context.Context, restaurantID string) domain.Result[domain.StoreRecord] {
	node, absence, ok := c.get(ctx, c.sanityURL+sanityGraphQLPath, restaurantInfoParams(restaurantID))
	if !ok {
		return absentFrom[domain.StoreRecord](ctx, "store info", restaurantID, absence)
	}

	first, found := node.Lookup("data", "allRestaurants", 0)
	if !found {
		if _, listed := node.Lookup("data", "allRestaurants"); listed {
			return absentFrom[domain.StoreRecord](ctx, "store info", restaurantID, empty("data.allRestaurants"))
		}
		return absentFrom[domain.StoreRecord](ctx, "store info", restaurantID, shape("data.allRestaurants"))
	}

	var store domain.StoreRecord
	if err := first.Decode(&store); err != nil {
		return absentFrom[domain.StoreRecord](ctx, "store info", restaurantID, domain.Absence{Reason: domain.AbsenceShape, Detail: err.Error()})
	}

	return domain.Present(store)
}

// FetchItemInfo resolves a menu item through the GetPicker query.
func (c *Client) FetchItemInfo(ctx context.Context, itemID string) domain.Result[domain.ItemInfo] {
	node, absence, ok := c.get(ctx, c.sanityURL+sanityGraphQLPath, itemInfoParams(itemID))
	if !ok {
		return absentFrom[domain.ItemInfo](ctx, "item info", itemID, absence)
	}

	data, found := node.Lookup("data")
	if !found || data.Kind() != KindMapping {
		return absentFrom[domain.ItemInfo](ctx, "item info", itemID, shape("data"))
	}

	if _, found := data.Lookup("Picker"); !found {
		return absentFrom[domain.ItemInfo](ctx, "item info", itemID, empty("data.Picker"))
	}

	return domain.Present(ResolveItem(itemID, data))
}

func absentFrom[T any](ctx context.Context, op, key string, absence domain.Absence) domain.Result[T] {
	slog.DebugContext(ctx, "upstream fetch absent",
		"op", op,
		"key", key,
		"reason", absence.Reason.String(),
		"detail", absence.Detail,
	)
	return domain.Absent[T](absence.Reason, "%s", absence.Detail)
}

func shape(path string) domain.Absence {
	return domain.Absence{Reason: domain.AbsenceShape, Detail: "missing " + path}
}

func empty(path string) domain.Absence {
	return domain.Absence{Reason: domain.AbsenceEmpty, Detail: path + " is empty"}
}
