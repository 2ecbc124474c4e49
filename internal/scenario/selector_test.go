package scenario

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/models"
)

func intPtr(v int) *int { return &v }

func template(id, mealType string, minutes int, ingredients ...string) models.ScenarioTemplate {
	t := models.ScenarioTemplate{
		ID:                   id,
		Name:                 id,
		MealType:             mealType,
		EstimatedTimeMinutes: intPtr(minutes),
		ServesBase:           2,
	}
	for _, ing := range ingredients {
		t.Slots = append(t.Slots, models.Slot{
			Ingredient:        ing,
			SearchQuery:       ing,
			Unit:              models.UnitGram,
			QuantityPerPerson: 100,
			Required:          true,
		})
	}
	return t
}

func TestRoundQuantity(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.2, 1},
		{0.5, 1},
		{2.4, 2},
		{7.6, 8},
		{12, 10},
		{13, 15},
		{97.4, 95},
		{100, 100},
		{123, 120},
		{400, 400},
		{1004, 1000},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundQuantity(tc.in), "RoundQuantity(%v)", tc.in)
	}
}

func TestRoundQuantityNeverBelowOne(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		q := r.Float64() * 500
		assert.GreaterOrEqual(t, RoundQuantity(q), 1.0)
	}
}

func TestScale(t *testing.T) {
	tmpl := template("dinner", "dinner", 30, "курица", "овощи")
	tmpl.Slots[0].QuantityPerPerson = 200
	tmpl.Slots[1].QuantityPerPerson = 0.25
	tmpl.Slots[1].Unit = models.UnitPiece

	scaled := Scale(tmpl, 3)
	require.Len(t, scaled.Slots, 2)
	assert.Equal(t, 600.0, scaled.Slots[0].QuantityScaled)
	assert.Equal(t, 1.0, scaled.Slots[1].QuantityScaled)
	assert.Equal(t, 1.5, scaled.ScaleFactor)
	assert.Equal(t, 3, scaled.People)
	assert.Equal(t, 30, scaled.EstimatedTimeMinutes)
}

func TestFilterExcludesTaggedIngredients(t *testing.T) {
	templates := []models.ScenarioTemplate{
		template("porridge", "breakfast", 15, "крупа овсяная", "молоко"),
		template("omelette", "breakfast", 15, "яйца", "овощи"),
		template("syrniki", "breakfast", 30, "творог", "мука"),
	}

	out := Filter(templates, models.Constraints{
		MealTypes:   []string{"breakfast"},
		ExcludeTags: []string{"dairy"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "omelette", out[0].ID)
}

func TestFilterOrder(t *testing.T) {
	templates := []models.ScenarioTemplate{
		template("slow_dinner", "dinner", 90, "говядина"),
		template("quick_dinner", "dinner", 20, "курица"),
		template("lunch", "lunch", 20, "курица"),
	}
	noTime := template("untimed", "dinner", 0, "рыба")
	noTime.EstimatedTimeMinutes = nil
	templates = append(templates, noTime)

	out := Filter(templates, models.Constraints{MealTypes: []string{"dinner"}, MaxTimeMinutes: intPtr(30)})
	require.Len(t, out, 1)
	assert.Equal(t, "quick_dinner", out[0].ID)

	out = Filter(templates, models.Constraints{MealTypes: []string{"dinner"}, IncludeTags: []string{"fish"}})
	require.Len(t, out, 1)
	assert.Equal(t, "untimed", out[0].ID)

	out = Filter(templates, models.Constraints{MealTypes: []string{"dinner", "lunch"}})
	assert.Len(t, out, 4)

	out = Filter(templates, models.Constraints{})
	assert.Empty(t, out)
}

func TestScore(t *testing.T) {
	quick := template("quick", "dinner", 10, "курица")
	slow := template("slow", "dinner", 60, "курица")

	c := models.Constraints{PreferQuick: true}
	assert.InDelta(t, 1.5, Score(quick, c), 1e-9)
	assert.InDelta(t, 0.8, Score(slow, c), 1e-9)

	// курица 500 + default 150 = 650 -> +0.2
	cheap := template("cheap", "dinner", 30, "курица", "лук")
	assert.InDelta(t, 1.2, Score(cheap, models.Constraints{PreferCheap: true}), 1e-9)

	// рыба 800 + сыр 900 -> -0.2
	pricey := template("pricey", "dinner", 30, "рыба", "сыр")
	assert.InDelta(t, 0.8, Score(pricey, models.Constraints{PreferCheap: true}), 1e-9)

	withTags := template("tags", "dinner", 30, "курица", "говядина", "лук")
	assert.InDelta(t, 1.2, Score(withTags, models.Constraints{IncludeTags: []string{"meat"}}), 1e-9)

	big := template("big", "dinner", 30, "a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k")
	assert.InDelta(t, 0.8, Score(big, models.Constraints{}), 1e-9)
}

func TestSelectNotFound(t *testing.T) {
	s := NewSelector(WithSeed(1))
	_, err := s.Select([]models.ScenarioTemplate{template("a", "lunch", 20, "курица")},
		models.Constraints{MealTypes: []string{"dinner"}, People: 2})
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestSelectWithoutMealTypes(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	_, err = NewSelector(WithSeed(1)).Select(lib.Templates(), models.Constraints{People: 2})
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestSelectIsDeterministicWithInjectedRand(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)
	c := models.Constraints{MealTypes: []string{"dinner"}, People: 2, PreferQuick: true}

	first := NewSelector(WithRand(rand.New(rand.NewSource(42))))
	second := NewSelector(WithRand(rand.New(rand.NewSource(42))))
	for i := 0; i < 10; i++ {
		a, err := first.Select(lib.Templates(), c)
		require.NoError(t, err)
		b, err := second.Select(lib.Templates(), c)
		require.NoError(t, err)
		assert.Equal(t, a.ID, b.ID)
	}
}

func TestSelectPicksWithinTopK(t *testing.T) {
	var templates []models.ScenarioTemplate
	// two quick templates outrank eight slow ones
	templates = append(templates, template("quick1", "dinner", 10, "курица"), template("quick2", "dinner", 10, "рыба"))
	for i := 0; i < 8; i++ {
		templates = append(templates, template("slow"+string(rune('a'+i)), "dinner", 90, "говядина"))
	}

	s := NewSelector(WithSeed(3), WithTopK(2))
	for i := 0; i < 50; i++ {
		scaled, err := s.Select(templates, models.Constraints{MealTypes: []string{"dinner"}, People: 1, PreferQuick: true})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(scaled.ID, "quick"), scaled.ID)
	}
}

func TestSelectStrategies(t *testing.T) {
	templates := []models.ScenarioTemplate{
		template("long", "dinner", 60, "a", "b"),
		template("short", "dinner", 20, "a", "b", "c"),
		template("small", "dinner", 40, "a"),
	}
	c := models.Constraints{MealTypes: []string{"dinner"}, People: 1}

	scaled, err := NewSelector(WithStrategy(StrategyFastest)).Select(templates, c)
	require.NoError(t, err)
	assert.Equal(t, "short", scaled.ID)

	scaled, err = NewSelector(WithStrategy(StrategySimplest)).Select(templates, c)
	require.NoError(t, err)
	assert.Equal(t, "small", scaled.ID)

	scaled, err = NewSelector(WithStrategy(StrategyRandom), WithSeed(9)).Select(templates, c)
	require.NoError(t, err)
	assert.Contains(t, []string{"long", "short", "small"}, scaled.ID)
}

func TestSelectNeverReturnsExcluded(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)
	s := NewSelector(WithSeed(11))
	for _, meal := range []string{"breakfast", "lunch", "dinner", "snack"} {
		for i := 0; i < 20; i++ {
			scaled, err := s.Select(lib.Templates(), models.Constraints{
				MealTypes:   []string{meal},
				People:      2,
				ExcludeTags: []string{"dairy"},
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrScenarioNotFound)
				continue
			}
			for _, slot := range scaled.Slots {
				assert.NotContains(t, slot.Ingredient, "молоко")
				assert.False(t, MatchesTag(slot.Ingredient, "dairy"), slot.Ingredient)
			}
		}
	}
}
