package sequential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/basket"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/testutil"
)

var _ basket.WindowedStrategy = (*Strategy)(nil)

func TestPriceWindow(t *testing.T) {
	lo, hi := PriceWindow(1500)
	assert.InDelta(t, 30.0, lo, 1e-9)
	assert.InDelta(t, 450.0, hi, 1e-9)
}

func TestStrategyBuildsDinnerFromCatalog(t *testing.T) {
	pool := testutil.Catalog(embedding.NewHashingEmbedder(32))
	budget := 1500.0
	c := models.Constraints{MealTypes: []string{"dinner"}, People: 2, Budget: &budget, ExcludeTags: []string{"dairy"}}

	s := NewStrategy()
	assert.Equal(t, "sequential", s.Name())

	result, err := s.Build(context.Background(), pool, c)
	require.NoError(t, err)
	require.NotEmpty(t, result.Basket.Items)
	assert.Empty(t, result.MissingRequired)
	assert.Nil(t, result.Basket.Scenario)
	assert.LessOrEqual(t, len(result.Basket.Items), RequirementsFor(c.MealTypes).MaxItems)
	assert.LessOrEqual(t, result.Basket.TotalPrice, budget*HardCapFactor)

	lo, hi := PriceWindow(budget)
	roles := map[string]bool{}
	for _, item := range result.Basket.Items {
		assert.Equal(t, 1, item.PackagesToBuy)
		assert.Equal(t, item.Product.PricePerUnit, item.TotalPrice)
		assert.False(t, item.Product.HasTag("dairy"))
		assert.GreaterOrEqual(t, item.Product.PricePerUnit, lo)
		assert.LessOrEqual(t, item.Product.PricePerUnit, hi)
		roles[item.MealRole] = true
	}
	for _, role := range RequirementsFor(c.MealTypes).Required {
		assert.True(t, roles[role], "role %s", role)
	}
}

func TestStrategyWindowFallsBackToWholePool(t *testing.T) {
	pool := []models.Product{
		p(1, "Икра", "Деликатесы", 5000, models.RoleMainCourse),
		p(2, "Шампанское", "Напитки", 4000, models.RoleBeverage),
	}
	budget := 1000.0
	result, err := NewStrategy().Build(context.Background(), pool, models.Constraints{MealTypes: []string{"snack"}, Budget: &budget})
	require.NoError(t, err)
	// both exceed the hard cap, nothing can be picked
	assert.Empty(t, result.Basket.Items)
	assert.Equal(t, []string{models.RoleBeverage}, result.MissingRequired)
}

func TestCandidateWindow(t *testing.T) {
	s := NewStrategy()

	budget := 1000.0
	lo, hi, ok := s.CandidateWindow(models.Constraints{Budget: &budget})
	require.True(t, ok)
	assert.InDelta(t, 20.0, lo, 1e-9)
	assert.InDelta(t, 300.0, hi, 1e-9)

	lo, hi, ok = s.CandidateWindow(models.Constraints{})
	require.True(t, ok)
	wantLo, wantHi := PriceWindow(DefaultBudget)
	assert.Equal(t, wantLo, lo)
	assert.Equal(t, wantHi, hi)

	zero := 0.0
	_, _, ok = s.CandidateWindow(models.Constraints{Budget: &zero})
	assert.False(t, ok)
}

func TestStrategyZeroBudgetBuildsNothing(t *testing.T) {
	zero := 0.0
	result, err := NewStrategy().Build(context.Background(), testutil.Catalog(embedding.NewHashingEmbedder(8)),
		models.Constraints{MealTypes: []string{"dinner"}, Budget: &zero})
	require.NoError(t, err)
	assert.Empty(t, result.Basket.Items)
	assert.Len(t, result.MissingRequired, 3)
}

func TestStrategyEmptyPool(t *testing.T) {
	result, err := NewStrategy().Build(context.Background(), nil, models.Constraints{MealTypes: []string{"dinner"}})
	require.NoError(t, err)
	assert.Empty(t, result.Basket.Items)
	assert.Len(t, result.MissingRequired, 3)
	require.Len(t, result.Warnings, 3)
	assert.Equal(t, models.WarnSlotUnfillable, result.Warnings[0].Code)
}

func TestStrategyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStrategy().Build(ctx, testutil.Catalog(embedding.NewHashingEmbedder(8)), models.Constraints{})
	assert.ErrorIs(t, err, context.Canceled)
}
