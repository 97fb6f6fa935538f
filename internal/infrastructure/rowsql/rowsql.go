// Package rowsql holds the table layout shared by the relational sinks and
// converts harvest rows into statement arguments.
package rowsql

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

//go:embed schema.sql
var Schema string

// Statements splits Schema into individual CREATE statements.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(Schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Table describes an upsert target.
type Table struct {
	Name    string
	Columns []string
	Key     []string
}

var (
	Restaurants = Table{
		Name: "bk_restaurants",
		Columns: []string{
			"restaurant_id", "store_id", "city", "state", "postal_code", "latitude", "longitude",
			"status", "has_breakfast", "has_delivery", "has_dine_in", "has_drive_thru",
			"has_mobile_ordering", "has_take_out", "pos_vendor", "total_weekly_hours", "created_date",
		},
		Key: []string{"store_id", "created_date"},
	}
	MenuItems = Table{
		Name: "bk_menuitems",
		Columns: []string{
			"store_id", "item_id", "isavailable", "price_min", "price_max", "price_default",
			"avg_calories", "created_date",
		},
		Key: []string{"store_id", "item_id", "created_date"},
	}
	Items = Table{
		Name: "bk_items",
		Columns: []string{
			"item_id", "name", "image_url", "calories", "fat", "saturatedfat", "transfat",
			"cholesterol", "sodium", "carbohydrates", "fiber", "sugar", "proteins", "is_dummy",
			"category",
		},
		Key: []string{"item_id"},
	}
)

// Dialect captures the differences between the supported databases.
type Dialect struct {
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Date converts a created date into a driver value.
	Date func(t time.Time) any
}

var (
	Postgres = Dialect{
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Date:        func(t time.Time) any { return t },
	}
	SQLite = Dialect{
		Placeholder: func(int) string { return "?" },
		Date:        func(t time.Time) any { return t.Format("2006-01-02") },
	}
)

// Upsert returns an INSERT that overwrites the non-key columns of an
// existing row with the same key.
func (d Dialect) Upsert(t Table) string {
	params := make([]string, len(t.Columns))
	for i := range t.Columns {
		params[i] = d.Placeholder(i + 1)
	}

	key := make(map[string]bool, len(t.Key))
	for _, k := range t.Key {
		key[k] = true
	}
	var sets []string
	for _, c := range t.Columns {
		if !key[c] {
			sets = append(sets, c+" = excluded."+c)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s)",
		t.Name, strings.Join(t.Columns, ", "), strings.Join(params, ", "), strings.Join(t.Key, ", "))
	if len(sets) == 0 {
		b.WriteString(" DO NOTHING")
	} else {
		b.WriteString(" DO UPDATE SET " + strings.Join(sets, ", "))
	}
	return b.String()
}

// StoreNumber parses a store identifier into the integer key column.
func StoreNumber(storeID string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(storeID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: store_id %q is not numeric", domain.ErrInvalidRow, storeID)
	}
	return n, nil
}

// RestaurantArgs returns the arguments of a Restaurants upsert.
func (d Dialect) RestaurantArgs(r domain.RestaurantRow, createdDate time.Time) ([]any, error) {
	store, err := StoreNumber(r.StoreID)
	if err != nil {
		return nil, err
	}
	return []any{
		r.RestaurantID, store, r.City, r.State, r.PostalCode, r.Latitude, r.Longitude,
		r.Status, r.HasBreakfast, r.HasDelivery, r.HasDineIn, r.HasDriveThru,
		r.HasMobileOrdering, r.HasTakeOut, r.PosVendor, r.TotalWeeklyHours, d.Date(createdDate),
	}, nil
}

// MenuItemArgs returns the arguments of a MenuItems upsert.
func (d Dialect) MenuItemArgs(r domain.MenuItemRow) ([]any, error) {
	store, err := StoreNumber(r.StoreID)
	if err != nil {
		return nil, err
	}
	return []any{
		store, r.ItemID, r.IsAvailable, r.PriceMin, r.PriceMax, r.PriceDefault,
		r.AvgCalories, d.Date(r.CreatedDate),
	}, nil
}

// ItemArgs returns the arguments of an Items upsert.
func (d Dialect) ItemArgs(r domain.ItemRow) []any {
	args := make([]any, 0, len(Items.Columns))
	args = append(args, r.ItemID, r.Name, r.ImageURL)
	for _, v := range r.Nutrition.Values() {
		args = append(args, v)
	}
	return append(args, r.IsDummy, r.Category)
}
