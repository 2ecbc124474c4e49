// Package catalog normalizes raw grocery rows into catalog products.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var (
	ErrInvalidPrice = errors.New("invalid price")
	ErrInvalidSize  = errors.New("invalid package size")
	ErrInvalidUnit  = errors.New("unknown unit")
	ErrTooExpensive = errors.New("price above reasonable limit")
	ErrExcluded     = errors.New("excluded category")
	ErrEmptyName    = errors.New("empty product name")
)

// sizeSuffix matches a package size such as "500г" or "1,5 л" and
// everything after it.
var sizeSuffix = regexp.MustCompile(`(?i)\s*\d+[.,]?\d*\s*(?:г|мл|л|кг|шт|уп|упаковка|пачка|бут|банка)(?:[^\p{L}].*)?$`)

// Record is one raw catalog row
type Record struct {
	Line        int
	Name        string
	Category    string
	Brand       string
	PackageSize float64
	Unit        string
	Price       float64
}

// CleanName strips the package size suffix from a product name.
func CleanName(name string) string {
	cleaned := strings.TrimSpace(sizeSuffix.ReplaceAllString(name, ""))
	if cleaned == "" {
		return strings.TrimSpace(name)
	}
	return cleaned
}

// NormalizeSize converts grams to kilograms and millilitres to litres.
// Kilograms, litres and pieces pass through.
func NormalizeSize(size float64, unit string) (float64, models.Unit, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return 0, "", ErrInvalidSize
	}
	switch u := models.ParseUnit(unit); u {
	case models.UnitGram:
		return size / 1000, models.UnitKilogram, nil
	case models.UnitMilli:
		return size / 1000, models.UnitLiter, nil
	case models.UnitKilogram, models.UnitLiter, models.UnitPiece:
		return size, u, nil
	default:
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}
}

// BasePrice is the price of one kg, l or piece for a package of the
// normalized size.
func BasePrice(price, size float64) float64 {
	if size <= 0 {
		return math.NaN()
	}
	return price / size
}

// Normalize validates a record and turns it into a product without an id
// or vector. The product price stays the package price.
func Normalize(r Record) (models.Product, error) {
	name := CleanName(r.Name)
	if name == "" {
		return models.Product{}, ErrEmptyName
	}
	if r.Price <= 0 || math.IsNaN(r.Price) || math.IsInf(r.Price, 0) {
		return models.Product{}, ErrInvalidPrice
	}

	size, unit, err := NormalizeSize(r.PackageSize, r.Unit)
	if err != nil {
		return models.Product{}, err
	}
	if base := BasePrice(r.Price, size); base > MaxReasonablePrice {
		return models.Product{}, fmt.Errorf("%w: %.2f per %s", ErrTooExpensive, base, unit)
	}
	if IsExcluded(name, r.Category) {
		return models.Product{}, ErrExcluded
	}

	category := strings.TrimSpace(r.Category)
	return models.Product{
		Name:         name,
		Category:     category,
		Brand:        strings.TrimSpace(r.Brand),
		PricePerUnit: models.RoundMoney(r.Price),
		Unit:         unit,
		PackageSize:  size,
		Tags:         ExtractTags(name, category),
		MealRoles:    AssignMealRoles(name, category),
	}, nil
}
