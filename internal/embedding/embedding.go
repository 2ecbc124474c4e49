// Package embedding defines the semantic vector contract and the vector math
// used for similarity ranking.
package embedding

import (
	"context"
	"errors"
	"math"
)

var (
	ErrInvalidVector     = errors.New("invalid vector")
	ErrDimensionMismatch = errors.New("vector dimensions differ")
)

// Embedder turns texts into semantic vectors, one vector per input text,
// in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, ErrInvalidVector
	}
	return vectors[0], nil
}

// Valid reports whether v is non-empty, finite and has a non-zero norm.
func Valid(v []float32) bool {
	if len(v) == 0 {
		return false
	}
	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		norm += f * f
	}
	return norm > 0
}

// Normalize returns an L2-normalized float64 copy of v.
func Normalize(v []float32) ([]float64, error) {
	if !Valid(v) {
		return nil, ErrInvalidVector
	}
	var norm float64
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Invalid vectors yield ErrInvalidVector rather than a zero similarity.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		if !Valid(a) || !Valid(b) {
			return 0, ErrInvalidVector
		}
		return 0, ErrDimensionMismatch
	}
	na, err := Normalize(a)
	if err != nil {
		return 0, err
	}
	nb, err := Normalize(b)
	if err != nil {
		return 0, err
	}
	return dot(na, nb), nil
}

// CosineNormalized is Cosine for vectors already passed through Normalize.
func CosineNormalized(a, b []float64) float64 {
	return dot(a, b)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	if sum > 1 {
		return 1
	}
	if sum < -1 {
		return -1
	}
	return sum
}
