package bk

import (
	_ "embed"
	"encoding/json"
	"strconv"
	"strings"
)

// Persisted-query hashes registered on the gateway.
const (
	storeMenuHash      = "48a3fa9cd76ee8e29027ab0d4d13bf5bfb1eca856f312735fa572a2c3acec90b"
	nearbyStoresHash   = "1d288d2ae206ab197a3a9aff0d7cf8997b2842cbe21dea7fac94cc8a92acdb43"
	sanityGraphQLPath  = "/v1/graphql/prod_bk_us/default"
	gatewayGraphQLPath = "/graphql"
)

const (
	nearbyPageSize     = 100
	nearbySearchRadius = 10000000
)

// ImageCDNPrefix turns a sanity asset id ("image-<hash>-<w>x<h>.<ext>") into a URL.
const ImageCDNPrefix = "https://cdn.sanity.io/images/czqk28jt/prod_bk_us/"

//go:embed queries/item_info.gql
var itemInfoQuery string

//go:embed queries/restaurant_info.gql
var restaurantInfoQuery string

type persistedQuery struct {
	PersistedQuery struct {
		Version    int    `json:"version"`
		Sha256Hash string `json:"sha256Hash"`
	} `json:"persistedQuery"`
}

type storeMenuVariables struct {
	Channel     string `json:"channel"`
	Region      string `json:"region"`
	StoreID     string `json:"storeId"`
	ServiceMode string `json:"serviceMode"`
}

type nearbyVariables struct {
	Input struct {
		Pagination struct {
			First int `json:"first"`
		} `json:"pagination"`
		RadiusStrictMode bool `json:"radiusStrictMode"`
		Coordinates      struct {
			SearchRadius int         `json:"searchRadius"`
			UserLat      json.Number `json:"userLat"`
			UserLng      json.Number `json:"userLng"`
		} `json:"coordinates"`
	} `json:"input"`
}

type restaurantVariables struct {
	Filter struct {
		ID string `json:"_id"`
	} `json:"filter"`
	Limit int `json:"limit"`
}

type pickerVariables struct {
	ID string `json:"id"`
}

func extensions(hash string) string {
	var ext persistedQuery
	ext.PersistedQuery.Version = 1
	ext.PersistedQuery.Sha256Hash = hash
	return mustJSON(ext)
}

func storeMenuParams(storeID string) map[string]string {
	return map[string]string{
		"operationName": "storeMenu",
		"variables": mustJSON(storeMenuVariables{
			Channel:     "whitelabel",
			Region:      "US",
			StoreID:     storeID,
			ServiceMode: "pickup",
		}),
		"extensions": extensions(storeMenuHash),
	}
}

func nearbyStoresParams(lat, lon float64) map[string]string {
	var vars nearbyVariables
	vars.Input.Pagination.First = nearbyPageSize
	vars.Input.RadiusStrictMode = false
	vars.Input.Coordinates.SearchRadius = nearbySearchRadius
	vars.Input.Coordinates.UserLat = formatCoordinate(lat)
	vars.Input.Coordinates.UserLng = formatCoordinate(lon)

	return map[string]string{
		"operationName": "GetNearbyRestaurants",
		"variables":     mustJSON(vars),
		"extensions":    extensions(nearbyStoresHash),
	}
}

func restaurantInfoParams(restaurantID string) map[string]string {
	var vars restaurantVariables
	vars.Filter.ID = restaurantID
	vars.Limit = 1

	return map[string]string{
		"operationName": "GetRestaurants",
		"variables":     mustJSON(vars),
		"query":         compactQuery(restaurantInfoQuery),
	}
}

func itemInfoParams(itemID string) map[string]string {
	return map[string]string{
		"operationName": "GetPicker",
		"variables":     mustJSON(pickerVariables{ID: itemID}),
		"query":         compactQuery(itemInfoQuery),
	}
}

// formatCoordinate keeps full precision without exponent notation.
func formatCoordinate(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}

// compactQuery folds a query document onto one line for GET requests.
func compactQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
