package basket

import (
	"context"

	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/scenario"
)

// Strategy builds a basket from a candidate pool for the given constraints.
// Implementations return an error only when no basket can be attempted at
// all; partial results are reported through Assembly warnings.
type Strategy interface {
	Name() string
	Build(ctx context.Context, pool []models.Product, c models.Constraints) (*Assembly, error)
}

// WindowedStrategy is a Strategy that only considers products priced inside
// a window. The planner asks the candidate pool for that window directly.
type WindowedStrategy interface {
	Strategy
	CandidateWindow(c models.Constraints) (min, max float64, ok bool)
}

// TemplateSource provides scenario templates
type TemplateSource interface {
	Templates() []models.ScenarioTemplate
}

// ScenarioStrategy selects a scenario template and fills its slots.
type ScenarioStrategy struct {
	library   TemplateSource
	selector  *scenario.Selector
	assembler *Assembler
}

// NewScenarioStrategy creates the template-driven strategy.
func NewScenarioStrategy(library TemplateSource, selector *scenario.Selector, assembler *Assembler) *ScenarioStrategy {
	return &ScenarioStrategy{
		library:   library,
		selector:  selector,
		assembler: assembler,
	}
}

// Name implements Strategy.
func (s *ScenarioStrategy) Name() string {
	return "scenario"
}

// Build implements Strategy. It fails with scenario.ErrScenarioNotFound
// when no template matches the constraints.
func (s *ScenarioStrategy) Build(ctx context.Context, pool []models.Product, c models.Constraints) (*Assembly, error) {
	scaled, err := s.selector.Select(s.library.Templates(), c)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(ctx, scaled, pool, c), nil
}
