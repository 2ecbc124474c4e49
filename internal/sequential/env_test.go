package sequential

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/models"
)

func p(id int, name, category string, price float64, role string) models.Product {
	return models.Product{
		ID:           id,
		Name:         name,
		Category:     category,
		PricePerUnit: price,
		Unit:         models.UnitKilogram,
		PackageSize:  1,
		MealRoles:    []string{role},
	}
}

func dinnerPool() []models.Product {
	return []models.Product{
		p(1, "Курица", "Мясо", 300, models.RoleMainCourse),
		p(2, "Рис", "Крупы", 100, models.RoleSideDish),
		p(3, "Сок", "Соки", 120, models.RoleBeverage),
		p(4, "Салат", "Зелень", 80, models.RoleSalad),
		p(5, "Торт шоколадный", "Кондитерские", 400, models.RoleDessert),
		p(6, "Говядина", "Мясо", 700, models.RoleMainCourse),
		p(7, "Соус", "Соусы", 60, models.RoleSauce),
		p(8, "Хлеб", "Хлеб", 50, models.RoleBakery),
	}
}

func newEnv(t *testing.T, pool []models.Product, mealType string, budget float64, opts ...EnvOption) *Env {
	t.Helper()
	env, err := NewEnv(pool, models.Constraints{MealTypes: []string{mealType}, Budget: &budget}, opts...)
	require.NoError(t, err)
	return env
}

func TestRequirementsFor(t *testing.T) {
	assert.Equal(t, 3, RequirementsFor([]string{"breakfast"}).MinItems)
	assert.Equal(t, []string{"beverage"}, RequirementsFor([]string{"snack"}).Required)
	assert.Equal(t, "lunch", RequirementsFor(nil).MealType)
	assert.Equal(t, "lunch", RequirementsFor([]string{"brunch"}).MealType)
}

func TestNewEnvDefaults(t *testing.T) {
	_, err := NewEnv(nil, models.Constraints{})
	assert.ErrorIs(t, err, ErrEmptyPool)

	env, err := NewEnv(dinnerPool(), models.Constraints{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBudget, env.Budget())
	assert.InDelta(t, DefaultBudget*1.3, env.HardCap(), 1e-9)
	assert.Equal(t, "lunch", env.Requirements().MealType)
}

func TestZeroBudgetMasksEveryPick(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 0)
	assert.Zero(t, env.Budget())
	assert.Zero(t, env.HardCap())

	mask := env.Mask()
	for i := 0; i < env.Len(); i++ {
		assert.False(t, mask[i], env.Product(Action(i)).Name)
	}
	assert.True(t, mask[env.Len()])
	assert.Zero(t, env.Observation().BudgetRatio)

	_, err := env.Step(7)
	assert.ErrorIs(t, err, ErrActionMasked)

	episode, err := Run(context.Background(), env, GreedyPolicy{})
	require.NoError(t, err)
	assert.Empty(t, episode.Chosen)
	assert.Zero(t, env.Cost())
}

func TestMaskFocusesOnRequiredGap(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000)

	mask := env.Mask()
	require.Len(t, mask, 9)
	assert.Equal(t, []bool{true, true, true, false, false, true, false, false, true}, mask)

	_, err := env.Step(3)
	assert.ErrorIs(t, err, ErrActionMasked)
	assert.Equal(t, 0, env.Steps())

	res, err := env.Step(0)
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.Equal(t, RewardRequiredGap, res.Reward)

	// main course is covered, a second one no longer closes a gap
	_, err = env.Step(5)
	assert.ErrorIs(t, err, ErrActionMasked)
	assert.False(t, env.Mask()[0])
}

func TestMaskHardCap(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 500)
	mask := env.Mask()
	assert.False(t, mask[5], "700 exceeds 500 * 1.3")
	assert.True(t, mask[0])
	assert.True(t, env.Legal(Skip))
	assert.False(t, env.Legal(Action(42)))
}

func TestMaskRelaxesWhenNothingCoversGap(t *testing.T) {
	pool := []models.Product{
		p(1, "Курица", "Мясо", 300, models.RoleMainCourse),
		p(2, "Рис", "Крупы", 100, models.RoleSideDish),
		p(3, "Салат", "Зелень", 80, models.RoleSalad),
	}
	env := newEnv(t, pool, "dinner", 1000)
	assert.False(t, env.Mask()[2])

	_, err := env.Step(0)
	require.NoError(t, err)
	_, err = env.Step(1)
	require.NoError(t, err)

	assert.Equal(t, []string{models.RoleBeverage}, env.MissingRequired())
	assert.True(t, env.Mask()[2], "no beverage exists, gap rule is relaxed")
}

func TestMaskGapRuleNeedsHeadroom(t *testing.T) {
	req := Requirements{
		MealType: "custom",
		Required: []string{models.RoleBeverage, models.RoleBakery},
		MinItems: 1,
		MaxItems: 3,
	}
	env := newEnv(t, dinnerPool(), "dinner", 1000, WithRequirements(req))
	assert.False(t, env.Mask()[0])

	_, err := env.Step(2)
	require.NoError(t, err)
	assert.True(t, env.Mask()[0], "basket has no headroom left for the gap rule")
}

func TestStepRewardsAndTermination(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000)

	for _, a := range []Action{0, 1, 2} {
		res, err := env.Step(a)
		require.NoError(t, err)
		assert.Equal(t, RewardRequiredGap, res.Reward)
		assert.False(t, res.Terminated)
	}

	obs := env.Observation()
	assert.True(t, obs.RequiredDone)
	assert.False(t, obs.MinItemsMet)
	assert.InDelta(t, 0.52, obs.BudgetRatio, 1e-9)

	res, err := env.Step(3)
	require.NoError(t, err)
	assert.Equal(t, RewardOptionalGap+RewardNearBand, res.Reward)

	res, err = env.Step(6)
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, RewardOptionalGap+RewardNearBand+BonusComplete+BonusDiversityHigh, res.Reward)
	assert.True(t, env.Done())

	_, err = env.Step(Skip)
	assert.ErrorIs(t, err, ErrEpisodeDone)
}

func TestStepDuplicateAndSkip(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000)

	_, err := env.Step(0)
	require.NoError(t, err)
	assert.False(t, env.Mask()[0])
	assert.Equal(t, RewardDuplicate, env.Score(0))

	_, err = env.Step(0)
	assert.ErrorIs(t, err, ErrActionMasked)
	assert.Len(t, env.Chosen(), 1)
	assert.Equal(t, 300.0, env.Cost())
	assert.Equal(t, 1, env.Steps())

	res, err := env.Step(Skip)
	require.NoError(t, err)
	assert.Equal(t, RewardSkip, res.Reward)
	assert.Equal(t, 2, env.Steps())

	_, err = env.Step(Action(-7))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestTruncatedEmptyEpisode(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000, WithMaxSteps(2))

	res, err := env.Step(Skip)
	require.NoError(t, err)
	assert.False(t, res.Truncated)

	res, err = env.Step(Skip)
	require.NoError(t, err)
	assert.True(t, res.Truncated)
	assert.Equal(t, RewardSkip+PenaltyEmpty, res.Reward)
}

func TestScorePenalties(t *testing.T) {
	lunch := newEnv(t, dinnerPool(), "lunch", 1000)
	// optional dessert gap, early dessert at lunch
	assert.Equal(t, RewardOptionalGap+PenaltyEarlyDessert, lunch.Score(4))

	breakfast := newEnv(t, dinnerPool(), "breakfast", 1000)
	assert.Equal(t, RewardOptionalGap, breakfast.Score(4))

	tight := newEnv(t, dinnerPool(), "dinner", 500)
	assert.Equal(t, RewardRequiredGap+PenaltyFarOverBudget, tight.Score(5))

	env := newEnv(t, dinnerPool(), "dinner", 1000)
	_, err := env.Step(0)
	require.NoError(t, err)
	_, err = env.Step(1)
	require.NoError(t, err)
	_, err = env.Step(2)
	require.NoError(t, err)
	// same category as the chicken, cost 1220 is far over budget
	assert.Equal(t, PenaltyCategoryRepeat+PenaltyFarOverBudget, env.Score(5))
}

func TestObservationVector(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000)
	_, err := env.Step(0)
	require.NoError(t, err)
	_, err = env.Step(1)
	require.NoError(t, err)

	obs := env.Observation()
	assert.InDelta(t, 0.4, obs.BudgetRatio, 1e-9)
	assert.InDelta(t, 2.0/15, obs.CartFill, 1e-9)
	assert.InDelta(t, 2.0/15, obs.Progress, 1e-9)
	assert.InDelta(t, 2.0/3, obs.RequiredCoverage, 1e-9)
	assert.InDelta(t, 1.0, obs.Diversity, 1e-9)
	assert.True(t, obs.DiversityOK)
	assert.False(t, obs.RequiredDone)

	v := obs.Vector()
	require.Len(t, v, 10)
	assert.Equal(t, 1.0, v[9])
	assert.Equal(t, 0.0, v[6])
}

func TestGreedyRun(t *testing.T) {
	env := newEnv(t, dinnerPool(), "dinner", 1000)

	episode, err := Run(context.Background(), env, GreedyPolicy{})
	require.NoError(t, err)
	assert.True(t, episode.Terminated)
	assert.Empty(t, env.MissingRequired())
	assert.Equal(t, []int{5, 1, 2, 6, 3}, episode.Chosen)
	assert.InDelta(t, 1060.0, episode.Cost, 1e-9)
	assert.LessOrEqual(t, episode.Cost, env.HardCap())
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := newEnv(t, dinnerPool(), "dinner", 1000)
	_, err := Run(ctx, env, GreedyPolicy{})
	assert.ErrorIs(t, err, context.Canceled)
}
