package sequential

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/basket"
	"github.com/foxxcyber/meal-basket/internal/models"
)

// Price window of a single pick, relative to the budget.
const (
	MinPriceShare = 0.02
	MaxPriceShare = 0.3
)

// PriceWindow returns the per-product price range considered for a budget.
func PriceWindow(budget float64) (float64, float64) {
	return budget * MinPriceShare, budget * MaxPriceShare
}

// Strategy assembles a basket by running a policy over an Env. Every pick
// buys one package of the product.
type Strategy struct {
	policy   Policy
	maxSteps int
	logger   *zap.Logger
}

// StrategyOption configures a Strategy
type StrategyOption func(*Strategy)

// WithPolicy replaces the greedy policy.
func WithPolicy(p Policy) StrategyOption {
	return func(s *Strategy) {
		if p != nil {
			s.policy = p
		}
	}
}

// WithEpisodeSteps sets the episode length.
func WithEpisodeSteps(n int) StrategyOption {
	return func(s *Strategy) {
		s.maxSteps = n
	}
}

// WithLogger sets the strategy logger.
func WithLogger(logger *zap.Logger) StrategyOption {
	return func(s *Strategy) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStrategy creates the sequential strategy.
func NewStrategy(opts ...StrategyOption) *Strategy {
	s := &Strategy{
		policy:   GreedyPolicy{},
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements basket.Strategy.
func (s *Strategy) Name() string {
	return "sequential"
}

// Build implements basket.Strategy. Products outside the tag constraints
// are never offered; the price window is dropped when nothing falls in it.
func (s *Strategy) Build(ctx context.Context, pool []models.Product, c models.Constraints) (*basket.Assembly, error) {
	req := RequirementsFor(c.MealTypes)
	candidates := s.candidates(pool, c)

	result := &basket.Assembly{Basket: models.Basket{Items: []models.BasketItem{}}}

	env, err := NewEnv(candidates, c, WithMaxSteps(s.maxSteps))
	if errors.Is(err, ErrEmptyPool) {
		s.addMissing(result, req.Required)
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	episode, err := Run(ctx, env, s.policy)
	if err != nil {
		return nil, fmt.Errorf("unable to run basket episode: %w", err)
	}

	for _, p := range env.Cart() {
		result.Basket.Items = append(result.Basket.Items, basket.NewItem(p, p.PackageSize, primaryRoleFor(p, req), ""))
	}
	result.Basket.Recalculate()
	s.addMissing(result, env.MissingRequired())

	if w := basket.BudgetWarning(result.Basket, c); w != nil {
		result.Warnings = append(result.Warnings, *w)
	}

	s.logger.Debug("sequential episode finished",
		zap.Int("items", len(episode.Chosen)),
		zap.Int("steps", episode.Steps),
		zap.Float64("cost", episode.Cost),
		zap.Float64("reward", episode.TotalReward))
	return result, nil
}

func (s *Strategy) candidates(pool []models.Product, c models.Constraints) []models.Product {
	filtered := basket.FilterByTags(pool, c)
	lo, hi, ok := s.CandidateWindow(c)
	if !ok {
		return filtered
	}

	var windowed []models.Product
	for _, p := range filtered {
		if p.PricePerUnit >= lo && p.PricePerUnit <= hi {
			windowed = append(windowed, p)
		}
	}
	if len(windowed) == 0 {
		return filtered
	}
	return windowed
}

// CandidateWindow implements basket.WindowedStrategy. There is no window
// for a zero budget.
func (s *Strategy) CandidateWindow(c models.Constraints) (float64, float64, bool) {
	budget := c.BudgetOr(DefaultBudget)
	if budget < 0 {
		budget = DefaultBudget
	}
	if budget == 0 {
		return 0, 0, false
	}
	lo, hi := PriceWindow(budget)
	return lo, hi, true
}

func (s *Strategy) addMissing(result *basket.Assembly, roles []string) {
	for _, role := range roles {
		result.MissingRequired = append(result.MissingRequired, role)
		result.Warnings = append(result.Warnings, models.Warning{
			Code:     models.WarnSlotUnfillable,
			Message:  fmt.Sprintf("%v: %s", basket.ErrSlotUnfillable, role),
			Slot:     role,
			Required: true,
		})
	}
}

// primaryRoleFor prefers the first product role the meal asks for.
func primaryRoleFor(p models.Product, req Requirements) string {
	for _, role := range p.MealRoles {
		for _, want := range req.Required {
			if role == want {
				return role
			}
		}
	}
	for _, role := range p.MealRoles {
		for _, want := range req.Optional {
			if role == want {
				return role
			}
		}
	}
	return p.PrimaryRole()
}
