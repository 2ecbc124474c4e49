package basket

import (
	"errors"
	"math"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var ErrIncompatibleUnits = errors.New("incompatible units")

type dimension int

const (
	dimUnknown dimension = iota
	dimMass
	dimVolume
	dimCount
)

// base-unit factors: grams for mass, millilitres for volume
func unitInfo(u models.Unit) (dimension, float64) {
	switch u {
	case models.UnitGram:
		return dimMass, 1
	case models.UnitKilogram:
		return dimMass, 1000
	case models.UnitMilli:
		return dimVolume, 1
	case models.UnitLiter:
		return dimVolume, 1000
	case models.UnitPiece:
		return dimCount, 1
	default:
		return dimUnknown, 0
	}
}

// ConvertQuantity converts q from one unit into another. Mass and volume
// convert into each other at a density of 1 (1 l = 1 kg); pieces only
// convert to pieces.
func ConvertQuantity(q float64, from, to models.Unit) (float64, error) {
	if from == to {
		return q, nil
	}
	fromDim, fromFactor := unitInfo(from)
	toDim, toFactor := unitInfo(to)
	if fromDim == dimUnknown || toDim == dimUnknown {
		return 0, ErrIncompatibleUnits
	}
	if fromDim == dimCount || toDim == dimCount {
		return 0, ErrIncompatibleUnits
	}
	return q * fromFactor / toFactor, nil
}

// packageEpsilon absorbs float noise such as 0.1*3/0.1 = 3.0000000000000004.
const packageEpsilon = 1e-9

// PackagesToBuy is ceil(needed/packageSize), never below 1.
func PackagesToBuy(needed, packageSize float64) int {
	if packageSize <= 0 || needed <= 0 {
		return 1
	}
	n := int(math.Ceil(needed/packageSize - packageEpsilon))
	if n < 1 {
		return 1
	}
	return n
}

// NewItem builds a basket item for a product covering needed (in the
// product's unit).
func NewItem(p models.Product, needed float64, role, slotLabel string) models.BasketItem {
	packages := PackagesToBuy(needed, p.PackageSize)
	fractional := p.PricePerUnit
	if p.PackageSize > 0 {
		fractional = needed / p.PackageSize * p.PricePerUnit
	}
	if role == "" {
		role = p.PrimaryRole()
	}
	return models.BasketItem{
		Product:         p,
		QuantityNeeded:  needed,
		PackagesToBuy:   packages,
		PricePerUnit:    p.PricePerUnit,
		TotalPrice:      models.RoundMoney(float64(packages) * p.PricePerUnit),
		FractionalCost:  models.RoundMoney(fractional),
		MealRole:        role,
		SourceSlotLabel: slotLabel,
	}
}

// neededFor converts a slot requirement into the product's unit. When the
// units cannot be reconciled one whole package is assumed.
func neededFor(p models.Product, quantity float64, unit models.Unit) (float64, error) {
	needed, err := ConvertQuantity(quantity, unit, p.Unit)
	if err != nil {
		if p.PackageSize > 0 {
			return p.PackageSize, err
		}
		return 1, err
	}
	return needed, nil
}
