package basket

import "github.com/foxxcyber/meal-basket/internal/models"

// CalculateTotal sums what the shopper pays for items. Items without a
// computed total fall back to packages times price.
func CalculateTotal(items []models.BasketItem) float64 {
	var total float64
	for _, item := range items {
		switch {
		case item.TotalPrice > 0:
			total += item.TotalPrice
		case item.PackagesToBuy > 0:
			total += float64(item.PackagesToBuy) * item.PricePerUnit
		default:
			total += item.Product.PricePerUnit
		}
	}
	return models.RoundMoney(total)
}

// CheckBudget compares items with a budget.
func CheckBudget(items []models.BasketItem, budget float64) models.BudgetCheck {
	total := CalculateTotal(items)
	overspend := total - budget
	if overspend < 0 {
		overspend = 0
	}
	return models.BudgetCheck{
		Fits:      total <= budget,
		Overspend: models.RoundMoney(overspend),
		Total:     total,
	}
}
