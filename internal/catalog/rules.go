package catalog

import (
	"sort"
	"strings"

	"github.com/foxxcyber/meal-basket/internal/models"
)

// MaxReasonablePrice is the highest accepted price per kg, l or piece.
const MaxReasonablePrice = 3000.0

// excludedCategories are non-food categories dropped on import.
var excludedCategories = []string{
	"гель для стирки", "стиральный порошок", "порошок", "гель",
	"пятновыводитель", "средство для мытья посуды", "моющее средство",
	"бытовая химия", "корм для кошек", "корм для собак", "корм для животных",
	"косметика", "шампунь", "бальзам", "кондиционер для волос",
	"мыло твердое", "мыло жидкое", "мыло", "дезодорант", "крем",
	"зубная паста", "зубная щетка", "бритва", "туалетная бумага",
	"салфетки", "подгузники", "прокладки",
}

// badKeywords drop a product when found in its name or category.
var badKeywords = []string{
	"палтус", "конфет", "шоколад", "чипс", "снек", "корм для", "мыло",
	"шампунь", "бытовая химия", "стиральный", "освежитель", "салфетки",
	"игрушк", "детское питание",
}

// tagRule assigns a tag when a name keyword is in the product name or a
// category keyword is in the category.
type tagRule struct {
	tag      string
	name     []string
	category []string
}

var tagRules = []tagRule{
	{
		tag:      "dairy",
		name:     []string{"молоко", "сыр", "творог", "сметана", "кефир", "йогурт", "ряженка", "сливки", "масло сливочное"},
		category: []string{"молочн", "сыр"},
	},
	{
		tag:      "meat",
		name:     []string{"курица", "куриное", "куриные", "говядина", "говяж", "свинина", "свиной", "баранина", "фарш", "колбаса", "сосиски", "ветчина", "бекон"},
		category: []string{"мясо", "птица", "колбас"},
	},
	{
		tag:      "fish",
		name:     []string{"рыба", "лосось", "семга", "треска", "тунец", "минтай", "сельдь", "креветки", "кальмар"},
		category: []string{"рыба", "морепродукты"},
	},
	{
		tag:      "gluten",
		name:     []string{"хлеб", "батон", "мука", "макароны", "спагетти", "лапша", "печенье", "булка", "сухари"},
		category: []string{"хлеб", "выпечка", "макарон", "мука"},
	},
	{
		tag:      "alcohol",
		name:     []string{"вино", "пиво", "водка", "коньяк", "виски", "сидр"},
		category: []string{"алкоголь", "вино", "пиво"},
	},
	{
		tag:      "no_sugar",
		name:     []string{"без сахара", "zero"},
	},
	{
		tag:      "vegan",
		name:     []string{"тофу", "нут", "чечевица", "фасоль", "гречка", "рис"},
		category: []string{"овощи", "фрукты", "крупы", "бобовые", "зелень", "орехи"},
	},
	{
		tag:      "vegetarian",
		name:     []string{"яйца", "тофу", "нут", "чечевица"},
		category: []string{"овощи", "фрукты", "крупы", "бобовые", "зелень", "молочн", "яйца"},
	},
	{
		tag:      "halal",
		name:     []string{"халяль"},
	},
	{
		tag:      "children_goods",
		name:     []string{"детск", "для детей"},
	},
}

// roleRule assigns meal roles when any keyword is in "name category".
type roleRule struct {
	keywords []string
	roles    []string
}

var roleRules = []roleRule{
	{[]string{"мясо", "курица", "куриное", "куриные", "говядина", "свинина", "фарш", "филе", "рыба", "треска", "лосось", "котлет", "пельмени", "яйца"}, []string{models.RoleMainCourse}},
	{[]string{"рис", "гречка", "крупа", "макароны", "спагетти", "картофель", "овощи", "морковь", "кабачки", "капуста", "нут", "чечевица"}, []string{models.RoleSideDish}},
	{[]string{"сок", "чай", "кофе", "вода", "напиток", "морс", "компот", "молоко", "кефир"}, []string{models.RoleBeverage}},
	{[]string{"салат", "огурц", "помидор", "томаты свежие", "зелень", "листья"}, []string{models.RoleSalad}},
	{[]string{"хлеб", "батон", "булка", "лаваш", "выпечка", "багет"}, []string{models.RoleBakery}},
	{[]string{"соус", "кетчуп", "майонез", "горчица", "лимон", "томаты в собственном соку", "паста томатная"}, []string{models.RoleSauce}},
	{[]string{"торт", "пирожн", "печенье", "вафли", "мороженое", "йогурт", "фрукты", "яблок", "десерт", "варенье"}, []string{models.RoleDessert}},
	{[]string{"сухарики", "орехи", "семечки", "крекер", "попкорн"}, []string{models.RoleSnack}},
}

// rolePriority orders roles when a product matches more than MaxRoles.
var rolePriority = []string{
	models.RoleMainCourse,
	models.RoleSideDish,
	models.RoleBeverage,
	models.RoleSalad,
	models.RoleBakery,
	models.RoleSauce,
	models.RoleDessert,
	models.RoleSnack,
}

// MaxRoles is the most meal roles assigned to one product.
const MaxRoles = 2

// IsExcluded reports whether a category or name marks a non-food product.
func IsExcluded(name, category string) bool {
	name = strings.ToLower(name)
	category = strings.ToLower(category)
	for _, excluded := range excludedCategories {
		if strings.Contains(category, excluded) {
			return true
		}
	}
	for _, kw := range badKeywords {
		if strings.Contains(name, kw) || strings.Contains(category, kw) {
			return true
		}
	}
	return false
}

// ExtractTags returns the sorted dietary tags for a product.
func ExtractTags(name, category string) []string {
	name = strings.ToLower(name)
	category = strings.ToLower(category)

	tags := []string{}
	for _, rule := range tagRules {
		if containsAny(name, rule.name) || containsAny(category, rule.category) {
			tags = append(tags, rule.tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// AssignMealRoles returns at most MaxRoles roles in priority order, or
// "other" when nothing matches.
func AssignMealRoles(name, category string) []string {
	text := strings.ToLower(name + " " + category)

	matched := make(map[string]bool)
	for _, rule := range roleRules {
		if containsAny(text, rule.keywords) {
			for _, role := range rule.roles {
				matched[role] = true
			}
		}
	}

	roles := make([]string, 0, MaxRoles)
	for _, role := range rolePriority {
		if matched[role] && len(roles) < MaxRoles {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return []string{models.RoleOther}
	}
	return roles
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
