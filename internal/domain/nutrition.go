package domain

// Nutrition holds the per-item nutrition facts published with an item.
// Any field may be missing upstream, so every value is optional.
type Nutrition struct {
	Calories      *float64 `json:"calories"`
	Fat           *float64 `json:"fat"`
	SaturatedFat  *float64 `json:"saturatedFat"`
	TransFat      *float64 `json:"transFat"`
	Cholesterol   *float64 `json:"cholesterol"`
	Sodium        *float64 `json:"sodium"`
	Carbohydrates *float64 `json:"carbohydrates"`
	Fiber         *float64 `json:"fiber"`
	Sugar         *float64 `json:"sugar"`
	Proteins      *float64 `json:"proteins"`
}

// Values returns the nutrition fields in CSV column order.
func (n *Nutrition) Values() []*float64 {
	if n == nil {
		return make([]*float64, 10)
	}
	return []*float64{
		n.Calories,
		n.Fat,
		n.SaturatedFat,
		n.TransFat,
		n.Cholesterol,
		n.Sodium,
		n.Carbohydrates,
		n.Fiber,
		n.Sugar,
		n.Proteins,
	}
}

// ItemInfo is a resolved menu item (a "Picker" upstream).
type ItemInfo struct {
	ID        string     `json:"id"`
	Name      *string    `json:"name,omitempty"`
	ImageURL  *string    `json:"imageUrl,omitempty"`
	Nutrition *Nutrition `json:"nutrition,omitempty"`
	IsDummy   bool       `json:"isDummy"`
	Category  *string    `json:"category,omitempty"`
}

// ItemRow is one line of bk_items.csv.
type ItemRow struct {
	ItemID    string
	Name      *string
	ImageURL  *string
	Nutrition *Nutrition
	IsDummy   bool
	Category  *string
}
