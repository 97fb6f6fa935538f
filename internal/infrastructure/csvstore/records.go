package csvstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bkharvest/harvester/internal/domain"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func optBool(v *bool) string {
	if v == nil {
		return ""
	}
	return formatBool(*v)
}

func restaurantRecord(r domain.RestaurantRow) []string {
	return []string{
		optString(r.RestaurantID),
		r.StoreID,
		optString(r.City),
		optString(r.State),
		optString(r.PostalCode),
		optFloat(r.Latitude),
		optFloat(r.Longitude),
		optString(r.Status),
		optBool(r.HasBreakfast),
		optBool(r.HasDelivery),
		optBool(r.HasDineIn),
		optBool(r.HasDriveThru),
		optBool(r.HasMobileOrdering),
		optBool(r.HasTakeOut),
		optString(r.PosVendor),
		formatFloat(r.TotalWeeklyHours),
	}
}

func menuItemRecord(r domain.MenuItemRow) []string {
	return []string{
		r.StoreID,
		r.ItemID,
		formatBool(r.IsAvailable),
		formatFloat(r.PriceMin),
		formatFloat(r.PriceMax),
		formatFloat(r.PriceDefault),
		formatFloat(r.AvgCalories),
		r.CreatedDate.Format(dateLayout),
	}
}

func itemRecord(r domain.ItemRow) []string {
	rec := make([]string, 0, len(ItemColumns))
	rec = append(rec, r.ItemID, optString(r.Name), optString(r.ImageURL))
	for _, v := range r.Nutrition.Values() {
		rec = append(rec, optFloat(v))
	}
	return append(rec, formatBool(r.IsDummy), optString(r.Category))
}

// fieldParser collects the first conversion error of a record so parse
// functions read like a column list.
type fieldParser struct {
	rec     []string
	columns []string
	err     error
}

func (p *fieldParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s: %v", domain.ErrInvalidRow, p.columns[i], err)
	}
}

func (p *fieldParser) str(i int) string {
	return strings.TrimSpace(p.rec[i])
}

func (p *fieldParser) optStr(i int) *string {
	s := p.str(i)
	if s == "" {
		return nil
	}
	return &s
}

func (p *fieldParser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.str(i), 64)
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) optFloat(i int) *float64 {
	if p.str(i) == "" {
		return nil
	}
	v := p.float(i)
	return &v
}

// boolean accepts True/False in any case as well as 1/0.
func (p *fieldParser) boolean(i int) bool {
	v, err := strconv.ParseBool(strings.ToLower(p.str(i)))
	if err != nil {
		p.fail(i, err)
	}
	return v
}

func (p *fieldParser) optBool(i int) *bool {
	if p.str(i) == "" {
		return nil
	}
	v := p.boolean(i)
	return &v
}

func (p *fieldParser) date(i int) time.Time {
	t, err := time.Parse(dateLayout, p.str(i))
	if err != nil {
		p.fail(i, err)
	}
	return t
}

func parseRestaurant(rec []string) (domain.RestaurantRow, error) {
	p := &fieldParser{rec: rec, columns: RestaurantColumns}
	row := domain.RestaurantRow{
		RestaurantID:      p.optStr(0),
		StoreID:           p.str(1),
		City:              p.optStr(2),
		State:             p.optStr(3),
		PostalCode:        p.optStr(4),
		Latitude:          p.optFloat(5),
		Longitude:         p.optFloat(6),
		Status:            p.optStr(7),
		HasBreakfast:      p.optBool(8),
		HasDelivery:       p.optBool(9),
		HasDineIn:         p.optBool(10),
		HasDriveThru:      p.optBool(11),
		HasMobileOrdering: p.optBool(12),
		HasTakeOut:        p.optBool(13),
		PosVendor:         p.optStr(14),
	}
	if hours := p.optFloat(15); hours != nil {
		row.TotalWeeklyHours = *hours
	}
	return row, p.err
}

func parseMenuItem(rec []string) (domain.MenuItemRow, error) {
	p := &fieldParser{rec: rec, columns: MenuItemColumns}
	row := domain.MenuItemRow{
		StoreID:      p.str(0),
		ItemID:       p.str(1),
		IsAvailable:  p.boolean(2),
		PriceMin:     p.float(3),
		PriceMax:     p.float(4),
		PriceDefault: p.float(5),
		AvgCalories:  p.float(6),
		CreatedDate:  p.date(7),
	}
	return row, p.err
}

func parseItem(rec []string) (domain.ItemRow, error) {
	p := &fieldParser{rec: rec, columns: ItemColumns}
	row := domain.ItemRow{
		ItemID:   p.str(0),
		Name:     p.optStr(1),
		ImageURL: p.optStr(2),
		IsDummy:  p.boolean(13),
		Category: p.optStr(14),
	}

	n := domain.Nutrition{
		Calories:      p.optFloat(3),
		Fat:           p.optFloat(4),
		SaturatedFat:  p.optFloat(5),
		TransFat:      p.optFloat(6),
		Cholesterol:   p.optFloat(7),
		Sodium:        p.optFloat(8),
		Carbohydrates: p.optFloat(9),
		Fiber:         p.optFloat(10),
		Sugar:         p.optFloat(11),
		Proteins:      p.optFloat(12),
	}
	for _, v := range n.Values() {
		if v != nil {
			row.Nutrition = &n
			break
		}
	}
	return row, p.err
}
