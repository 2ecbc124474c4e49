package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid([]float32{0.1, 0.2}))
	assert.False(t, Valid(nil))
	assert.False(t, Valid([]float32{}))
	assert.False(t, Valid([]float32{0, 0, 0}))
	assert.False(t, Valid([]float32{1, float32(math.NaN())}))
	assert.False(t, Valid([]float32{float32(math.Inf(1)), 1}))
}

func TestCosine(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{2, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)

	sim, err = Cosine([]float32{1, 0}, []float32{0, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-9)

	sim, err = Cosine([]float32{1, 1}, []float32{-1, -1})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestCosineRejectsInvalidVectors(t *testing.T) {
	_, err := Cosine([]float32{}, []float32{1})
	assert.ErrorIs(t, err, ErrInvalidVector)

	_, err = Cosine([]float32{0, 0}, []float32{1, 1})
	assert.ErrorIs(t, err, ErrInvalidVector)

	_, err = Cosine([]float32{1, 2, 3}, []float32{1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	n, err := Normalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, n[0], 1e-9)
	assert.InDelta(t, 0.8, n[1], 1e-9)
}

func TestHashingEmbedder(t *testing.T) {
	e := NewHashingEmbedder(128)
	vectors, err := e.Embed(context.Background(), []string{
		"курица филе охлажденное",
		"филе куриное",
		"молоко 3.2%",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for _, v := range vectors {
		assert.Len(t, v, 128)
		assert.True(t, Valid(v))
	}

	related, err := Cosine(vectors[0], vectors[1])
	require.NoError(t, err)
	unrelated, err := Cosine(vectors[0], vectors[2])
	require.NoError(t, err)
	assert.Greater(t, related, unrelated)

	again, err := EmbedOne(context.Background(), e, "курица филе охлажденное")
	require.NoError(t, err)
	assert.Equal(t, vectors[0], again)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1.5, -2, 0, 3.25}
	assert.Equal(t, v, DecodeVector(EncodeVector(v)))
	assert.Len(t, EncodeVector(v), 16)
	assert.Nil(t, EncodeVector(nil))
	assert.Nil(t, DecodeVector([]byte{1, 2, 3}))
}
