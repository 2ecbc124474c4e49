package scenario

import (
	"sort"
	"strings"
)

// tagKeywords maps a dietary tag to ingredient keywords that carry it.
var tagKeywords = map[string][]string{
	"dairy":          {"молоко", "сыр", "творог", "сметана", "кефир", "йогурт", "ряженка", "масло сливочное"},
	"meat":           {"курица", "говядина", "свинина", "баранина", "мясо", "фарш", "колбаса", "сосиски"},
	"fish":           {"рыба", "лосось", "треска", "тунец", "морепродукты", "креветки"},
	"gluten":         {"мука", "хлеб", "макароны", "паста", "лапша", "булка"},
	"no_sugar":       {"сахар", "мёд", "шоколад", "варенье"},
	"alcohol":        {"вино", "пиво", "водка", "коньяк"},
	"vegan":          {"овощи", "фрукты", "крупа", "бобовые", "нут", "чечевица", "тофу"},
	"vegetarian":     {"овощи", "фрукты", "яйца", "молоко", "сыр"},
	"halal":          {"курица", "говядина", "баранина", "овощи", "крупа"},
	"children_goods": {"каша", "молоко", "фрукты", "йогурт"},
}

// ingredientCosts is a rough price estimate per ingredient keyword, in rubles.
// The first keyword contained in a label wins.
var ingredientCosts = []struct {
	keyword string
	cost    float64
}{
	{"курица", 500},
	{"говядина", 600},
	{"рыба", 800},
	{"овощи", 300},
	{"крупа", 180},
	{"молоко", 190},
	{"сыр", 900},
	{"фрукты", 500},
}

const defaultIngredientCost = 150

// MatchesTag reports whether an ingredient label carries tag.
// Unknown tags match nothing.
func MatchesTag(ingredient, tag string) bool {
	keywords, ok := tagKeywords[strings.ToLower(tag)]
	if !ok {
		return false
	}
	label := strings.ToLower(ingredient)
	for _, kw := range keywords {
		if strings.Contains(label, kw) {
			return true
		}
	}
	return false
}

// MatchesAnyTag reports whether an ingredient label carries any of tags.
func MatchesAnyTag(ingredient string, tags []string) bool {
	for _, tag := range tags {
		if MatchesTag(ingredient, tag) {
			return true
		}
	}
	return false
}

// KnownTags returns the tags with keyword coverage, sorted.
func KnownTags() []string {
	tags := make([]string, 0, len(tagKeywords))
	for tag := range tagKeywords {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// EstimateIngredientCost returns the estimated price of one ingredient.
func EstimateIngredientCost(ingredient string) float64 {
	label := strings.ToLower(ingredient)
	for _, entry := range ingredientCosts {
		if strings.Contains(label, entry.keyword) {
			return entry.cost
		}
	}
	return defaultIngredientCost
}
