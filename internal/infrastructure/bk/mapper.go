package bk

import (
	"strings"

	"github.com/bkharvest/harvester/internal/domain"
)

// firstOption is where variant data lives when the item record lacks it.
var firstOption = []any{"Picker", "options", 0, "option"}

// ResolveItem builds an ItemInfo from the data block of a GetPicker response.
// The name comes from the Picker; image, nutrition and category come from the
// Item record and each independently falls back to the first Picker option.
func ResolveItem(itemID string, data Node) domain.ItemInfo {
	info := domain.ItemInfo{ID: itemID}

	info.Name = lookupString(data, "Picker", "name", "locale")

	info.ImageURL = lookupString(data, "Item", "image", "asset", "url")
	if info.ImageURL == nil {
		info.ImageURL = lookupString(data, withOption("image", "asset", "url")...)
	}
	info.ImageURL = expandImageURL(info.ImageURL)

	info.Nutrition = lookupNutrition(data, "Item", "nutrition")
	if info.Nutrition == nil {
		info.Nutrition = lookupNutrition(data, withOption("nutrition")...)
	}

	info.Category = lookupString(data, "Item", "productHierarchy", "L2")
	if info.Category == nil {
		info.Category = lookupString(data, withOption("productHierarchy", "L2")...)
	}

	// is_dummy holds the upstream boolean; legacy files recorded only whether the field was present.
	if dummy, ok := data.Lookup("Item", "isDummyItem"); ok {
		info.IsDummy, _ = dummy.Bool()
	}

	return info
}

// ExpandImageURL rewrites a sanity asset id into its CDN URL and leaves
// anything else untouched.
func ExpandImageURL(raw string) string {
	if strings.HasPrefix(raw, "image-") {
		return ImageCDNPrefix + raw
	}
	return raw
}

func expandImageURL(raw *string) *string {
	if raw == nil {
		return nil
	}
	expanded := ExpandImageURL(*raw)
	return &expanded
}

func withOption(path ...any) []any {
	full := make([]any, 0, len(firstOption)+len(path))
	full = append(full, firstOption...)
	return append(full, path...)
}

func lookupString(data Node, path ...any) *string {
	node, ok := data.Lookup(path...)
	if !ok {
		return nil
	}
	s, ok := node.String()
	if !ok {
		return nil
	}
	return &s
}

func lookupNutrition(data Node, path ...any) *domain.Nutrition {
	node, ok := data.Lookup(path...)
	if !ok || node.Kind() != KindMapping {
		return nil
	}
	var n domain.Nutrition
	if err := node.Decode(&n); err != nil {
		return nil
	}
	return &n
}
