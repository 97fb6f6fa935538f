package domain

import (
	"context"
	"time"
)

// BKClient defines the upstream fetch operations. Implementations never
// return errors; every failure collapses to an absent Result.
type BKClient interface {
	FetchMenu(ctx context.Context, storeID string) Result[[]MenuEntry]
	FetchNearbyStores(ctx context.Context, at Coordinate) Result[[]StoreRecord]
	FetchStoreInfo(ctx context.Context, restaurantID string) Result[StoreRecord]
	FetchItemInfo(ctx context.Context, itemID string) Result[ItemInfo]
}

// MenuItemAppender streams menu-item rows batch by batch.
type MenuItemAppender interface {
	Append(ctx context.Context, rows []MenuItemRow) error
	Path() string
	Close() error
}

// HarvestStore persists the rows of a run and locates earlier runs. day is
// the run's start date and names every file the run writes.
type HarvestStore interface {
	WriteRestaurants(ctx context.Context, day time.Time, rows []RestaurantRow) (string, error)
	OpenMenuItems(ctx context.Context, day time.Time) (MenuItemAppender, error)
	WriteItems(ctx context.Context, day time.Time, rows []ItemRow) (string, error)
	// LatestRestaurants returns the newest restaurants file and the distinct
	// store IDs it lists, or ErrNoRestaurantsFile.
	LatestRestaurants(ctx context.Context) (string, []string, error)
}

// RowWriter inserts typed rows inside a transaction.
type RowWriter interface {
	InsertRestaurants(ctx context.Context, rows []RestaurantRow, createdDate time.Time) error
	InsertMenuItems(ctx context.Context, rows []MenuItemRow) error
	InsertItems(ctx context.Context, rows []ItemRow) error
}

// RowStore is the relational sink. InTx commits when fn returns nil and
// rolls back otherwise.
type RowStore interface {
	InTx(ctx context.Context, fn func(RowWriter) error) error
	Close() error
}

// ItemCache defines the cache used for resolved item info. Entry lifetime
// is a property of the cache, not of each Set.
type ItemCache interface {
	Get(ctx context.Context, itemID string) (ItemInfo, error)
	Set(ctx context.Context, itemID string, item ItemInfo) error
}
