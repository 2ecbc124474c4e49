package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashingEmbedder is a deterministic local embedder: character trigrams of
// each word are hashed into a fixed number of buckets. Texts sharing word
// fragments end up close, which is enough for offline catalogs and tests.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder producing vectors of size dim.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashingEmbedder{dim: dim}
}

// Dim returns the vector size.
func (h *HashingEmbedder) Dim() int {
	return h.dim
}

// Embed implements Embedder.
func (h *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashingEmbedder) vector(text string) []float32 {
	v := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		padded := []rune("^" + word + "$")
		// the whole word carries extra weight so exact matches dominate
		v[h.bucket(string(padded))] += 2
		for i := 0; i+3 <= len(padded); i++ {
			v[h.bucket(string(padded[i:i+3]))]++
		}
	}
	return v
}

func (h *HashingEmbedder) bucket(s string) int {
	f := fnv.New32a()
	f.Write([]byte(s))
	return int(f.Sum32() % uint32(h.dim))
}
