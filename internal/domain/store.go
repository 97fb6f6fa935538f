package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Coordinate is a latitude/longitude sample used for the nearby-stores search.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Region is a rectangular search area. Latitude is walked downward from
// LatStart to LatEnd, longitude upward from LonStart to LonEnd.
type Region struct {
	Name     string
	LatStart float64
	LatEnd   float64
	LonStart float64
	LonEnd   float64
}

// FlexString decodes from either a JSON string or a JSON number.
// Store identifiers show up as both depending on the endpoint.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Address is the physical address block of a store.
type Address struct {
	City          *string `json:"city"`
	StateProvince *string `json:"stateProvince"`
	PostalCode    *string `json:"postalCode"`
}

// POS identifies the point-of-sale system on sanity restaurant documents.
type POS struct {
	Vendor *string `json:"vendor"`
}

// Hours is a HoursOfOperation document: keys like "monOpen" / "monClose"
// holding HH:MM:SS strings, plus bookkeeping keys that are ignored.
type Hours map[string]any

// Boundary returns the time stored under day+edge ("mon"+"Open"), or "" when
// the key is missing, null or not a string.
func (h Hours) Boundary(day, edge string) string {
	if h == nil {
		return ""
	}
	s, _ := h[day+edge].(string)
	return strings.TrimSpace(s)
}

// StoreRecord is a restaurant as returned by the nearby-stores search
// (gateway) or the restaurant lookup (sanity). Fields missing on either
// shape stay nil.
type StoreRecord struct {
	ID                *string    `json:"id"`
	SanityID          *string    `json:"_id"`
	StoreID           FlexString `json:"storeId"`
	Number            FlexString `json:"number"`
	PhysicalAddress   *Address   `json:"physicalAddress"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	Status            *string    `json:"status"`
	HasBreakfast      *bool      `json:"hasBreakfast"`
	HasDelivery       *bool      `json:"hasDelivery"`
	HasDineIn         *bool      `json:"hasDineIn"`
	HasDriveThru      *bool      `json:"hasDriveThru"`
	HasMobileOrdering *bool      `json:"hasMobileOrdering"`
	HasTakeOut        *bool      `json:"hasTakeOut"`
	PosVendor         *string    `json:"posVendor"`
	Pos               *POS       `json:"pos"`
	DiningRoomHours   Hours      `json:"diningRoomHours"`
}

// Key returns the store identifier used to deduplicate discoveries.
func (s StoreRecord) Key() string {
	if s.StoreID != "" {
		return string(s.StoreID)
	}
	return string(s.Number)
}

// RestaurantRow is one line of bk_restaurants.csv.
type RestaurantRow struct {
	RestaurantID      *string  `json:"restaurant_id"`
	StoreID           string   `json:"store_id"`
	City              *string  `json:"city"`
	State             *string  `json:"state"`
	PostalCode        *string  `json:"postal_code"`
	Latitude          *float64 `json:"latitude"`
	Longitude         *float64 `json:"longitude"`
	Status            *string  `json:"status"`
	HasBreakfast      *bool    `json:"has_breakfast"`
	HasDelivery       *bool    `json:"has_delivery"`
	HasDineIn         *bool    `json:"has_dine_in"`
	HasDriveThru      *bool    `json:"has_drive_thru"`
	HasMobileOrdering *bool    `json:"has_mobile_ordering"`
	HasTakeOut        *bool    `json:"has_take_out"`
	PosVendor         *string  `json:"pos_vendor"`
	TotalWeeklyHours  float64  `json:"total_weekly_hours"`
}
