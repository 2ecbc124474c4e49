package main

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

type flakyEmbedder struct {
	inner embedding.Embedder
	calls int
}

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls == 2 {
		return nil, errors.New("ollama unavailable")
	}
	return f.inner.Embed(ctx, texts)
}

func fakeProducts(n int) []models.Product {
	faker := gofakeit.New(42)
	products := make([]models.Product, n)
	for i := range products {
		products[i] = models.Product{
			Name:     faker.Fruit(),
			Category: faker.Word(),
		}
	}
	return products
}

func TestEmbedProducts(t *testing.T) {
	products := fakeProducts(10)

	n := embedProducts(context.Background(), embedding.NewHashingEmbedder(16), products, 3, zap.NewNop())
	assert.Equal(t, 10, n)
	for _, p := range products {
		assert.True(t, embedding.Valid(p.Vector), p.Name)
	}
}

func TestEmbedProductsSkipsFailedBatch(t *testing.T) {
	products := fakeProducts(7)
	e := &flakyEmbedder{inner: embedding.NewHashingEmbedder(16)}

	n := embedProducts(context.Background(), e, products, 3, zap.NewNop())
	assert.Equal(t, 3, e.calls)
	assert.Equal(t, 4, n)
	for i, p := range products {
		if i >= 3 && i < 6 {
			assert.Nil(t, p.Vector, "second batch failed")
		} else {
			assert.NotNil(t, p.Vector)
		}
	}
}

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys(map[string]int{"c": 1, "a": 2, "b": 3}))
}
