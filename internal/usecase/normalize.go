package usecase

import (
	"strconv"
	"strings"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

// weekdays are the day prefixes used by HoursOfOperation documents.
var weekdays = []string{"mon", "tue", "wed", "thr", "fri", "sat", "sun"}

// SimpleMenuItem turns a menu entry into a row. It reports false when any
// price field is missing or zero, or when the calorie range is missing or zero.
func SimpleMenuItem(storeID string, entry domain.MenuEntry, createdDate time.Time) (domain.MenuItemRow, bool) {
	price := entry.Price
	if price == nil || price.Min == nil || price.Max == nil || price.Default == nil {
		return domain.MenuItemRow{}, false
	}
	// zero means "no price" upstream
	if *price.Min == 0 || *price.Max == 0 || *price.Default == 0 {
		return domain.MenuItemRow{}, false
	}

	calories := entry.Calories
	if calories == nil || calories.Min == nil || calories.Max == nil {
		return domain.MenuItemRow{}, false
	}
	if *calories.Min == 0 && *calories.Max == 0 {
		return domain.MenuItemRow{}, false
	}

	available := entry.IsAvailable != nil && *entry.IsAvailable

	return domain.MenuItemRow{
		StoreID:      storeID,
		ItemID:       entry.ID,
		IsAvailable:  available,
		PriceMin:     *price.Min,
		PriceMax:     *price.Max,
		PriceDefault: *price.Default,
		AvgCalories:  (*calories.Min + *calories.Max) / 2,
		CreatedDate:  createdDate,
	}, true
}

// SimpleMenu keeps the rows of every entry that passes SimpleMenuItem.
func SimpleMenu(storeID string, menu []domain.MenuEntry, createdDate time.Time) []domain.MenuItemRow {
	rows := make([]domain.MenuItemRow, 0, len(menu))
	for _, entry := range menu {
		if row, ok := SimpleMenuItem(storeID, entry, createdDate); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// WeeklyHours sums close minus open over the dining room week. A day
// contributes nothing when either boundary is missing or unparsable.
func WeeklyHours(hours domain.Hours) float64 {
	total := 0.0
	for _, day := range weekdays {
		open, ok := minutesOfDay(hours.Boundary(day, "Open"))
		if !ok {
			continue
		}
		closing, ok := minutesOfDay(hours.Boundary(day, "Close"))
		if !ok {
			continue
		}
		total += float64(closing-open) / 60
	}
	return total
}

// minutesOfDay parses "HH:MM:SS" (seconds ignored) or "HH:MM".
func minutesOfDay(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	return h*60 + m, true
}

// SimpleRestaurant flattens a store record into a restaurant row. Missing
// attributes stay nil.
func SimpleRestaurant(store domain.StoreRecord) domain.RestaurantRow {
	row := domain.RestaurantRow{
		RestaurantID:      store.ID,
		StoreID:           store.Key(),
		Latitude:          store.Latitude,
		Longitude:         store.Longitude,
		Status:            store.Status,
		HasBreakfast:      store.HasBreakfast,
		HasDelivery:       store.HasDelivery,
		HasDineIn:         store.HasDineIn,
		HasDriveThru:      store.HasDriveThru,
		HasMobileOrdering: store.HasMobileOrdering,
		HasTakeOut:        store.HasTakeOut,
		PosVendor:         store.PosVendor,
		TotalWeeklyHours:  WeeklyHours(store.DiningRoomHours),
	}

	if row.RestaurantID == nil {
		row.RestaurantID = store.SanityID
	}
	if row.PosVendor == nil && store.Pos != nil {
		row.PosVendor = store.Pos.Vendor
	}
	if addr := store.PhysicalAddress; addr != nil {
		row.City = addr.City
		row.State = addr.StateProvince
		row.PostalCode = addr.PostalCode
	}

	return row
}

// SimpleItem flattens resolved item info into an item row.
func SimpleItem(info domain.ItemInfo) domain.ItemRow {
	return domain.ItemRow{
		ItemID:    info.ID,
		Name:      info.Name,
		ImageURL:  info.ImageURL,
		Nutrition: info.Nutrition,
		IsDummy:   info.IsDummy,
		Category:  info.Category,
	}
}
