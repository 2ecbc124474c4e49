package planner

import (
	"context"

	"github.com/foxxcyber/meal-basket/internal/models"
)

// CandidatePool provides the products a basket is built from
type CandidatePool interface {
	FetchCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Product, error)
}

// StaticPool serves candidates from an in-memory product list.
// Shuffle is ignored; results keep list order.
type StaticPool []models.Product

// FetchCandidates implements CandidatePool.
func (s StaticPool) FetchCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Product, 0, len(s))
	for _, p := range s {
		if p.PricePerUnit <= 0 {
			continue
		}
		if len(q.ExcludeTags) > 0 && p.HasAnyTag(q.ExcludeTags) {
			continue
		}
		if len(q.IncludeTags) > 0 && !p.HasAnyTag(q.IncludeTags) {
			continue
		}
		if q.MinPrice > 0 && p.PricePerUnit < q.MinPrice {
			continue
		}
		if q.MaxPrice > 0 && p.PricePerUnit > q.MaxPrice {
			continue
		}
		out = append(out, p)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out, nil
}
