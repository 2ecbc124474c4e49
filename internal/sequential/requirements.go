// Package sequential builds baskets one product at a time under an explicit
// state, action mask and reward model.
package sequential

import "github.com/foxxcyber/meal-basket/internal/models"

// Requirements describes what a complete meal of one type contains
type Requirements struct {
	MealType string   `json:"meal_type"`
	Required []string `json:"required"`
	Optional []string `json:"optional"`
	MinItems int      `json:"min_items"`
	MaxItems int      `json:"max_items"`
}

var mealRequirements = map[string]Requirements{
	"breakfast": {
		MealType: "breakfast",
		Required: []string{models.RoleBakery, models.RoleBeverage},
		Optional: []string{models.RoleDessert, models.RoleMainCourse},
		MinItems: 3,
		MaxItems: 8,
	},
	"lunch": {
		MealType: "lunch",
		Required: []string{models.RoleMainCourse, models.RoleSideDish, models.RoleBeverage},
		Optional: []string{models.RoleSalad, models.RoleDessert, models.RoleBakery},
		MinItems: 5,
		MaxItems: 12,
	},
	"dinner": {
		MealType: "dinner",
		Required: []string{models.RoleMainCourse, models.RoleSideDish, models.RoleBeverage},
		Optional: []string{models.RoleSalad, models.RoleSauce},
		MinItems: 5,
		MaxItems: 12,
	},
	"snack": {
		MealType: "snack",
		Required: []string{models.RoleBeverage},
		Optional: []string{models.RoleDessert, models.RoleBakery, models.RoleSnack},
		MinItems: 2,
		MaxItems: 5,
	},
}

// RequirementsFor returns the requirements of the first meal type.
// Unknown or missing meal types use lunch.
func RequirementsFor(mealTypes []string) Requirements {
	if len(mealTypes) > 0 {
		if r, ok := mealRequirements[mealTypes[0]]; ok {
			return r
		}
	}
	return mealRequirements["lunch"]
}
