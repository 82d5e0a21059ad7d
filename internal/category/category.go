// Package category holds the static eBay clothing category taxonomy used by
// the category selection wizard.
package category

import (
	"sort"
	"strings"
)

var mens = map[int]string{
	57990:  "Casual Shirts",
	57991:  "Dress Shirts",
	15687:  "T-Shirts",
	11483:  "Jeans",
	11484:  "Pants",
	57988:  "Coats & Jackets",
	11511:  "Sweaters",
	57989:  "Shorts",
	3001:   "Suits & Blazers",
	93427:  "Shoes",
	137084: "Activewear",
}

var womens = map[int]string{
	53159:  "Tops & Blouses",
	11554:  "Jeans",
	63863:  "Pants & Capris",
	63862:  "Dresses",
	63866:  "Coats & Jackets",
	63864:  "Shorts",
	63865:  "Skirts",
	63869:  "Sweaters",
	3034:   "Shoes",
	185101: "Activewear",
}

// ForPreference returns the categories for a gender preference
// ("mens", "womens", or anything else meaning both).
func ForPreference(pref string) map[int]string {
	switch pref {
	case "mens":
		return copyMap(mens)
	case "womens":
		return copyMap(womens)
	default:
		merged := copyMap(mens)
		for id, name := range womens {
			merged[id] = name
		}
		return merged
	}
}

// Search filters categories by a case-insensitive keyword.
func Search(query, pref string) map[int]string {
	out := make(map[int]string)
	q := strings.ToLower(query)
	for id, name := range ForPreference(pref) {
		if strings.Contains(strings.ToLower(name), q) {
			out[id] = name
		}
	}
	return out
}

// SortedIDs returns category ids in ascending order for stable display.
func SortedIDs(cats map[int]string) []int {
	ids := make([]int, 0, len(cats))
	for id := range cats {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func copyMap(m map[int]string) map[int]string {
	out := make(map[int]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
