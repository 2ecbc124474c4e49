package basket

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

// SuccessThreshold is the minimum compatibility for a successful basket.
const SuccessThreshold = 0.3

// Assembly is a basket together with what happened while building it
type Assembly struct {
	Basket          models.Basket
	Scenario        *models.ScaledScenario
	Warnings        []models.Warning
	MissingRequired []string
}

// Assembler fills every slot of a scaled scenario
type Assembler struct {
	filler   *SlotFiller
	embedder embedding.Embedder
	logger   *zap.Logger
}

// NewAssembler creates an assembler. embedder may be nil, in which case
// slots are matched by words.
func NewAssembler(filler *SlotFiller, embedder embedding.Embedder, logger *zap.Logger) *Assembler {
	if filler == nil {
		filler = NewSlotFiller()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		filler:   filler,
		embedder: embedder,
		logger:   logger,
	}
}

// Assemble fills the scenario's slots in template order from pool. It does
// not fail: unfillable slots and budget overruns are reported as warnings.
func (a *Assembler) Assemble(ctx context.Context, scenario *models.ScaledScenario, pool []models.Product, c models.Constraints) *Assembly {
	result := &Assembly{
		Basket:   models.Basket{Items: []models.BasketItem{}},
		Scenario: scenario,
	}
	summary := scenario.Summary()
	result.Basket.Scenario = &summary

	queries, warn := a.embedQueries(ctx, scenario)
	if warn != nil {
		result.Warnings = append(result.Warnings, *warn)
	}

	used := make(map[int]bool)
	for i, slot := range scenario.Slots {
		req := FillRequest{
			Slot:        slot,
			Pool:        pool,
			Constraints: c,
			Exclude:     used,
		}
		if queries != nil {
			req.Query = queries[i]
		}

		item, warnings := a.filler.Fill(req)
		result.Warnings = append(result.Warnings, warnings...)
		if item == nil {
			if slot.Required {
				result.MissingRequired = append(result.MissingRequired, slot.Ingredient)
				result.Warnings = append(result.Warnings, models.Warning{
					Code:     models.WarnSlotUnfillable,
					Message:  fmt.Sprintf("%v: %s", ErrSlotUnfillable, slot.Ingredient),
					Slot:     slot.Ingredient,
					Required: true,
				})
			}
			a.logger.Debug("slot not filled",
				zap.String("scenario", scenario.ID),
				zap.String("slot", slot.Ingredient),
				zap.Bool("required", slot.Required))
			continue
		}

		used[item.Product.ID] = true
		result.Basket.Items = append(result.Basket.Items, *item)
	}

	result.Basket.Recalculate()

	if w := BudgetWarning(result.Basket, c); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}
	return result
}

func (a *Assembler) embedQueries(ctx context.Context, scenario *models.ScaledScenario) ([][]float32, *models.Warning) {
	if a.embedder == nil || len(scenario.Slots) == 0 {
		return nil, nil
	}

	phrases := make([]string, len(scenario.Slots))
	for i, slot := range scenario.Slots {
		phrases[i] = phrase(slot.Slot)
	}

	vectors, err := a.embedder.Embed(ctx, phrases)
	if err == nil && len(vectors) != len(phrases) {
		err = fmt.Errorf("embedder returned %d vectors for %d phrases", len(vectors), len(phrases))
	}
	if err != nil {
		a.logger.Warn("embedding search phrases failed, matching by words", zap.Error(err))
		return nil, &models.Warning{
			Code:    models.WarnEmbeddingFallback,
			Message: "semantic search unavailable, products matched by name",
		}
	}
	return vectors, nil
}

// BudgetWarning reports an over-budget basket, or nil.
func BudgetWarning(b models.Basket, c models.Constraints) *models.Warning {
	if c.Budget == nil || b.TotalPrice <= *c.Budget {
		return nil
	}
	return &models.Warning{
		Code:    models.WarnOverBudget,
		Message: fmt.Sprintf("basket costs %.2f, budget is %.2f", b.TotalPrice, *c.Budget),
	}
}

// WithinBudget reports whether the basket fits the budget, if any.
func WithinBudget(b models.Basket, c models.Constraints) bool {
	return c.Budget == nil || b.TotalPrice <= *c.Budget
}

// IsSuccess is the informational success predicate of a finished basket.
func IsSuccess(b models.Basket, c models.Constraints, score models.ScoreReport, missingRequired int) bool {
	return len(b.Items) > 0 &&
		WithinBudget(b, c) &&
		score.Total >= SuccessThreshold &&
		missingRequired == 0
}
