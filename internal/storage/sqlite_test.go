package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/testutil"
)

var (
	_ planner.CandidatePool = (*SQLiteStore)(nil)
	_ planner.Archive       = (*SQLiteStore)(nil)
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "products.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func seeded(t *testing.T) (*SQLiteStore, []models.Product) {
	t.Helper()
	store := newStore(t)
	catalog := testutil.Catalog(embedding.NewHashingEmbedder(16))
	imported, updated, err := store.ImportProducts(context.Background(), catalog)
	require.NoError(t, err)
	require.Equal(t, len(catalog), imported)
	require.Zero(t, updated)
	return store, catalog
}

func TestImportIsIdempotent(t *testing.T) {
	store, catalog := seeded(t)

	catalog[0].PricePerUnit = 333
	imported, updated, err := store.ImportProducts(context.Background(), catalog)
	require.NoError(t, err)
	assert.Zero(t, imported)
	assert.Equal(t, len(catalog), updated)

	p, err := store.GetProductByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 333.0, p.PricePerUnit)
}

func TestFetchCandidates(t *testing.T) {
	store, catalog := seeded(t)
	ctx := context.Background()

	all, err := store.FetchCandidates(ctx, models.CandidateQuery{})
	require.NoError(t, err)
	require.Len(t, all, len(catalog))
	assert.Equal(t, catalog[0].Name, all[0].Name)
	assert.Equal(t, catalog[0].Vector, all[0].Vector)
	assert.Equal(t, catalog[0].MealRoles, all[0].MealRoles)

	noMeat, err := store.FetchCandidates(ctx, models.CandidateQuery{ExcludeTags: []string{"meat", "DAIRY"}})
	require.NoError(t, err)
	assert.NotEmpty(t, noMeat)
	for _, p := range noMeat {
		assert.False(t, p.HasTag("meat"), p.Name)
		assert.False(t, p.HasTag("dairy"), p.Name)
	}

	vegan, err := store.FetchCandidates(ctx, models.CandidateQuery{IncludeTags: []string{"vegan"}})
	require.NoError(t, err)
	assert.NotEmpty(t, vegan)
	for _, p := range vegan {
		assert.True(t, p.HasTag("vegan"), p.Name)
	}

	window, err := store.FetchCandidates(ctx, models.CandidateQuery{MinPrice: 100, MaxPrice: 200, Limit: 4, Shuffle: true})
	require.NoError(t, err)
	assert.Len(t, window, 4)
	for _, p := range window {
		assert.GreaterOrEqual(t, p.PricePerUnit, 100.0)
		assert.LessOrEqual(t, p.PricePerUnit, 200.0)
	}
}

func TestListProducts(t *testing.T) {
	store, _ := seeded(t)
	ctx := context.Background()

	juices, total, err := store.ListProducts(ctx, &models.ProductListParams{Search: "СОК", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 4, total, "three juices and tomatoes in juice")
	assert.Len(t, juices, 4)

	drinks, total, err := store.ListProducts(ctx, &models.ProductListParams{Role: "beverage", Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Len(t, drinks, 2)
	assert.Greater(t, total, 2)

	fish, _, err := store.ListProducts(ctx, &models.ProductListParams{Tag: "fish", Limit: 10})
	require.NoError(t, err)
	require.Len(t, fish, 1)
	assert.Equal(t, "Филе трески", fish[0].Name)
}

func TestUpsertAndDelete(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	created, err := store.UpsertProduct(ctx, &models.Product{
		Name:         "Гречка ядрица",
		Category:     "Крупы",
		PricePerUnit: 95,
		Unit:         models.UnitKilogram,
		PackageSize:  0.9,
		Tags:         []string{"Vegan"},
		MealRoles:    []string{"side_dish"},
		Vector:       []float32{0.1, 0.2, 0.3},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, []string{"vegan"}, created.Tags)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, created.Vector)

	merged, err := store.UpsertProduct(ctx, &models.Product{
		Name:         "Гречка ядрица",
		Category:     "Крупы",
		PricePerUnit: 89,
		Unit:         models.UnitKilogram,
		PackageSize:  0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, merged.ID)
	assert.Equal(t, 89.0, merged.PricePerUnit)
	assert.Equal(t, created.Vector, merged.Vector, "missing vector keeps the stored one")

	merged.Name = "Гречка"
	renamed, err := store.UpsertProduct(ctx, merged)
	require.NoError(t, err)
	assert.Equal(t, "Гречка", renamed.Name)

	_, err = store.UpsertProduct(ctx, &models.Product{ID: 999, Name: "x", Unit: models.UnitPiece, PackageSize: 1})
	assert.ErrorIs(t, err, database.ErrProductNotFound)

	require.NoError(t, store.DeleteProduct(ctx, created.ID))
	assert.ErrorIs(t, store.DeleteProduct(ctx, created.ID), database.ErrProductNotFound)
	_, err = store.GetProductByID(ctx, created.ID)
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestGetProductsByIDs(t *testing.T) {
	store, catalog := seeded(t)
	ctx := context.Background()

	products, err := store.GetProductsByIDs(ctx, []int{3, 1})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, catalog[2].Name, products[0].Name)
	assert.Equal(t, catalog[0].Name, products[1].Name)

	_, err = store.GetProductsByIDs(ctx, []int{1, 404})
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}

func TestUsers(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureAdminUser(ctx, "admin@example.com", "s3cret"))
	require.NoError(t, store.EnsureAdminUser(ctx, "admin@example.com", "other"), "existing admin is kept")

	user, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
	assert.Nil(t, user.LastLoginAt)

	require.NoError(t, store.UpdateUserLastLogin(ctx, user.ID))
	user, err = store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.NotNil(t, user.LastLoginAt)

	_, err = store.CreateUser(ctx, "admin@example.com", "hash", models.UserRoleUser)
	assert.ErrorIs(t, err, database.ErrEmailExists)

	_, err = store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}

func TestBasketArchive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	result := &models.BasketResult{
		ID:        "0b7c6f0e-1111-4c3b-9a55-2f1f3b9d0c11",
		Strategy:  "scenario",
		Warnings:  []models.Warning{{Code: models.WarnOverBudget, Message: "over"}},
		Summary:   models.BasketSummary{ItemsCount: 2, TotalPrice: 410},
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveBasket(ctx, result))

	got, err := store.LoadBasket(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Strategy, got.Strategy)
	assert.Equal(t, result.Summary, got.Summary)
	assert.Equal(t, result.Warnings, got.Warnings)
	assert.True(t, result.CreatedAt.Equal(got.CreatedAt))

	_, err = store.LoadBasket(ctx, "missing")
	assert.ErrorIs(t, err, planner.ErrBasketNotFound)
}
