package scenario

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxxcyber/meal-basket/internal/models"
)

func TestDefaultLibrary(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)
	assert.Greater(t, lib.Len(), 0)

	for _, meal := range []string{"breakfast", "lunch", "dinner", "snack"} {
		assert.NotEmpty(t, lib.ByMealType(meal), meal)
	}
	assert.Len(t, lib.ByMealType(""), lib.Len())

	tmpl, err := lib.ByID("dinner_chicken_vegetables")
	require.NoError(t, err)
	assert.Equal(t, "dinner", tmpl.MealType)
	assert.Equal(t, models.UnitGram, tmpl.Slots[0].Unit)
	assert.Equal(t, models.RoleMainCourse, tmpl.Slots[0].MealRole)

	_, err = lib.ByID("missing")
	assert.ErrorIs(t, err, ErrScenarioNotFound)
}

func TestParseRejectsBadLibraries(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"scenarios": []}`))
	assert.ErrorIs(t, err, ErrEmptyLibrary)

	dup := `{"scenarios": [
		{"id": "a", "meal_type": "dinner", "components": [{"ingredient": "x", "quantity_per_person": 1, "unit": "г"}]},
		{"id": "a", "meal_type": "dinner", "components": [{"ingredient": "y", "quantity_per_person": 1, "unit": "г"}]}
	]}`
	_, err = Parse(strings.NewReader(dup))
	assert.ErrorIs(t, err, ErrDuplicateScenario)

	_, err = Parse(strings.NewReader(`{"scenarios": [{"id": "a", "meal_type": "dinner"}]}`))
	assert.ErrorIs(t, err, ErrInvalidScenario)

	_, err = Parse(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestTemplatesReturnsCopy(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)
	templates := lib.Templates()
	templates[0].ID = "mutated"
	assert.NotEqual(t, "mutated", lib.Templates()[0].ID)
}

type fakeObjects map[string]string

func (f fakeObjects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestLoadObject(t *testing.T) {
	src := fakeObjects{"scenarios.json": `{"scenarios": [
		{"id": "s1", "meal_type": "snack", "serves_base": 1, "components": [{"ingredient": "чай", "search_query": "чай", "quantity_per_person": 3, "unit": "г", "required": true}]}
	]}`}

	lib, err := LoadObject(context.Background(), src, "scenarios.json")
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())

	_, err = LoadObject(context.Background(), src, "missing.json")
	assert.Error(t, err)
}

func TestKeywords(t *testing.T) {
	assert.True(t, MatchesTag("Молоко", "dairy"))
	assert.True(t, MatchesTag("масло сливочное", "dairy"))
	assert.False(t, MatchesTag("курица", "dairy"))
	assert.False(t, MatchesTag("курица", "unknown"))
	assert.True(t, MatchesAnyTag("курица", []string{"fish", "meat"}))

	assert.Equal(t, 500.0, EstimateIngredientCost("курица"))
	assert.Equal(t, 180.0, EstimateIngredientCost("крупа гречневая"))
	assert.Equal(t, 150.0, EstimateIngredientCost("лук"))
	assert.Contains(t, KnownTags(), "dairy")
}
