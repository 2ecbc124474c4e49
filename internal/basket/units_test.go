package basket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/testutil"
)

func TestConvertQuantity(t *testing.T) {
	cases := []struct {
		q        float64
		from, to models.Unit
		want     float64
	}{
		{250, models.UnitGram, models.UnitKilogram, 0.25},
		{1.5, models.UnitKilogram, models.UnitGram, 1500},
		{500, models.UnitMilli, models.UnitLiter, 0.5},
		{200, models.UnitMilli, models.UnitKilogram, 0.2},
		{3, models.UnitPiece, models.UnitPiece, 3},
	}
	for _, tc := range cases {
		got, err := ConvertQuantity(tc.q, tc.from, tc.to)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, "%v %s -> %s", tc.q, tc.from, tc.to)
	}

	_, err := ConvertQuantity(2, models.UnitPiece, models.UnitKilogram)
	assert.ErrorIs(t, err, ErrIncompatibleUnits)
	_, err = ConvertQuantity(2, models.Unit("ящик"), models.UnitKilogram)
	assert.ErrorIs(t, err, ErrIncompatibleUnits)
}

func TestPackagesToBuy(t *testing.T) {
	assert.Equal(t, 1, PackagesToBuy(0.25, 1.0))
	assert.Equal(t, 1, PackagesToBuy(1.0, 1.0))
	assert.Equal(t, 2, PackagesToBuy(1.01, 1.0))
	assert.Equal(t, 3, PackagesToBuy(0.1*3, 0.1))
	assert.Equal(t, 1, PackagesToBuy(0, 1))
	assert.Equal(t, 1, PackagesToBuy(5, 0))
}

func TestPackagesToBuyProperty(t *testing.T) {
	f := testutil.NewProductFactory(5, 4)
	for i := 0; i < 2000; i++ {
		needed := f.Float(0.001, 50)
		size := f.Float(0.01, 5)
		n := PackagesToBuy(needed, size)
		require.GreaterOrEqual(t, n, 1)
		assert.GreaterOrEqual(t, float64(n)*size, needed-1e-6)
		assert.Less(t, float64(n-1)*size, needed+1e-6)
	}
}

func TestNewItemFromGramSlot(t *testing.T) {
	p := models.Product{ID: 1, Name: "Курица", PricePerUnit: 400, Unit: models.ParseUnit("кг"), PackageSize: 1.0}

	needed, err := neededFor(p, 250, models.UnitGram)
	require.NoError(t, err)
	item := NewItem(p, needed, "main_course", "курица")

	assert.InDelta(t, 0.25, item.QuantityNeeded, 1e-9)
	assert.Equal(t, 1, item.PackagesToBuy)
	assert.Equal(t, 400.0, item.TotalPrice)
	assert.Equal(t, 100.0, item.FractionalCost)
	assert.Equal(t, "main_course", item.MealRole)
	assert.Equal(t, "курица", item.SourceSlotLabel)
}

func TestNeededForIncompatibleUnitsBuysOnePackage(t *testing.T) {
	p := models.Product{ID: 1, PricePerUnit: 100, Unit: models.UnitPiece, PackageSize: 10}
	needed, err := neededFor(p, 300, models.UnitGram)
	assert.ErrorIs(t, err, ErrIncompatibleUnits)
	assert.Equal(t, 10.0, needed)
}

func TestBudgetHelpers(t *testing.T) {
	items := []models.BasketItem{
		{TotalPrice: 300},
		{PackagesToBuy: 2, PricePerUnit: 50},
		{Product: models.Product{PricePerUnit: 20}},
	}
	assert.Equal(t, 420.0, CalculateTotal(items))

	check := CheckBudget(items, 400)
	assert.False(t, check.Fits)
	assert.Equal(t, 20.0, check.Overspend)
	assert.Equal(t, 420.0, check.Total)

	check = CheckBudget(items, 500)
	assert.True(t, check.Fits)
	assert.Equal(t, 0.0, check.Overspend)
}
