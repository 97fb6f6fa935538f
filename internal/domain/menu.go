package domain

import "time"

// PriceRange is the min/max/default price of a menu entry.
type PriceRange struct {
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Default *float64 `json:"default"`
}

// CalorieRange is the calorie span of a menu entry.
type CalorieRange struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// MenuEntry is a single element of a store's menu.
type MenuEntry struct {
	ID          string        `json:"id"`
	IsAvailable *bool         `json:"isAvailable"`
	Price       *PriceRange   `json:"price"`
	Calories    *CalorieRange `json:"calories"`
}

// MenuItemRow is one line of bk_data.csv.
type MenuItemRow struct {
	StoreID      string    `json:"store_id"`
	ItemID       string    `json:"item_id"`
	IsAvailable  bool      `json:"isAvailable"`
	PriceMin     float64   `json:"price_min"`
	PriceMax     float64   `json:"price_max"`
	PriceDefault float64   `json:"price_default"`
	AvgCalories  float64   `json:"avg_calories"`
	CreatedDate  time.Time `json:"created_date"`
}

// HarvestFiles names the CSV outputs of a run. Empty paths are skipped.
type HarvestFiles struct {
	Restaurants string `json:"restaurants,omitempty"`
	MenuItems   string `json:"menu_items,omitempty"`
	Items       string `json:"items,omitempty"`
}
