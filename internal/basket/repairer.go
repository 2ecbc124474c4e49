package basket

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

var ErrRepairExhausted = errors.New("budget repair exhausted")

// DefaultMinDiscount is the minimum relative price cut a substitute must offer.
const DefaultMinDiscount = 0.3

// Repairer brings an over-budget basket under budget by swapping expensive
// items for cheaper, semantically similar products with the same meal role.
// It is greedy and local: items are visited once, most expensive first.
type Repairer struct {
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewRepairer creates a repairer. embedder, when set, provides vectors for
// basket items whose product has none.
func NewRepairer(embedder embedding.Embedder, logger *zap.Logger) *Repairer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repairer{embedder: embedder, logger: logger}
}

type substitute struct {
	item       models.BasketItem
	similarity float64
}

// Repair returns a repaired copy of b and a report. b itself is not modified.
// Substitutes come from pool and must cost at most the replaced item's total
// times (1 - minDiscount). A minDiscount outside (0, 1] uses DefaultMinDiscount.
func (r *Repairer) Repair(ctx context.Context, b models.Basket, pool []models.Product, budget, minDiscount float64) (models.Basket, models.RepairReport) {
	if minDiscount <= 0 || minDiscount > 1 {
		minDiscount = DefaultMinDiscount
	}

	out := b.Clone()
	total := CalculateTotal(out.Items)
	report := models.RepairReport{
		Replacements:  []models.Replacement{},
		OriginalPrice: total,
		FinalPrice:    total,
		Budget:        budget,
	}

	if len(out.Items) == 0 {
		report.WithinBudget = true
		report.Message = "basket is empty"
		return out, report
	}
	if total <= budget {
		report.WithinBudget = true
		report.Message = "basket is within budget"
		return out, report
	}

	order := make([]int, len(out.Items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return out.Items[order[i]].TotalPrice > out.Items[order[j]].TotalPrice
	})

	for _, idx := range order {
		if total <= budget {
			break
		}
		tried := map[int]bool{out.Items[idx].Product.ID: true}
		for total > budget {
			current := out.Items[idx]
			sub, ok := r.findSubstitute(ctx, current, out, pool, minDiscount, tried)
			if !ok {
				break
			}
			tried[sub.item.Product.ID] = true
			out.Items[idx] = sub.item
			total = CalculateTotal(out.Items)

			report.Replacements = append(report.Replacements, models.Replacement{
				FromID:     current.Product.ID,
				From:       current.Product.Name,
				ToID:       sub.item.Product.ID,
				To:         sub.item.Product.Name,
				Saved:      models.RoundMoney(current.TotalPrice - sub.item.TotalPrice),
				Similarity: round4(sub.similarity),
			})
			r.logger.Debug("item substituted",
				zap.String("from", current.Product.Name),
				zap.String("to", sub.item.Product.Name),
				zap.Float64("similarity", sub.similarity))
		}
	}

	out.Recalculate()
	report.FinalPrice = out.TotalPrice
	report.Saved = models.RoundMoney(report.OriginalPrice - report.FinalPrice)
	report.WithinBudget = report.FinalPrice <= budget
	if report.WithinBudget {
		report.Message = fmt.Sprintf("within budget after %d replacements", len(report.Replacements))
	} else {
		report.Message = fmt.Sprintf("%v: %.2f over budget after %d replacements",
			ErrRepairExhausted, report.FinalPrice-budget, len(report.Replacements))
	}
	return out, report
}

func (r *Repairer) findSubstitute(ctx context.Context, current models.BasketItem, b models.Basket, pool []models.Product, minDiscount float64, tried map[int]bool) (substitute, bool) {
	if current.TotalPrice <= 0 {
		return substitute{}, false
	}
	origin, err := embedding.Normalize(r.vectorOf(ctx, current.Product))
	if err != nil {
		return substitute{}, false
	}

	role := current.MealRole
	if role == "" {
		role = current.Product.PrimaryRole()
	}
	maxPrice := current.TotalPrice * (1 - minDiscount)

	var found []substitute
	for _, p := range pool {
		if tried[p.ID] || b.ContainsProduct(p.ID) {
			continue
		}
		if role != "" && !p.HasRole(role) {
			continue
		}
		if len(p.Vector) != len(origin) {
			continue
		}
		v, err := embedding.Normalize(p.Vector)
		if err != nil {
			continue
		}
		needed, err := ConvertQuantity(current.QuantityNeeded, current.Product.Unit, p.Unit)
		if err != nil {
			continue
		}
		item := NewItem(p, needed, current.MealRole, current.SourceSlotLabel)
		if item.TotalPrice > maxPrice+1e-9 {
			continue
		}
		sim := embedding.CosineNormalized(origin, v)
		item.Similarity = sim
		found = append(found, substitute{item: item, similarity: sim})
	}
	if len(found) == 0 {
		return substitute{}, false
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].similarity != found[j].similarity {
			return found[i].similarity > found[j].similarity
		}
		if found[i].item.TotalPrice != found[j].item.TotalPrice {
			return found[i].item.TotalPrice < found[j].item.TotalPrice
		}
		return found[i].item.Product.ID < found[j].item.Product.ID
	})
	return found[0], true
}

func (r *Repairer) vectorOf(ctx context.Context, p models.Product) []float32 {
	if embedding.Valid(p.Vector) || r.embedder == nil {
		return p.Vector
	}
	v, err := embedding.EmbedOne(ctx, r.embedder, p.EmbeddingText())
	if err != nil {
		r.logger.Debug("could not embed basket item", zap.String("product", p.Name), zap.Error(err))
		return nil
	}
	return v
}
