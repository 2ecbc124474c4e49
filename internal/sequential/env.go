package sequential

import (
	"errors"
	"math"
	"strings"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var (
	ErrEmptyPool     = errors.New("no products to choose from")
	ErrInvalidAction = errors.New("action out of range")
	ErrActionMasked  = errors.New("action is masked")
	ErrEpisodeDone   = errors.New("episode already finished")
)

const (
	DefaultMaxSteps = 15
	DefaultBudget   = 1500.0
	HardCapFactor   = 1.3
)

// Skip is the action that adds nothing.
const Skip Action = -1

// Action picks the product at its index in the pool, or is Skip
type Action int

// Reward values of the construction model
const (
	RewardSkip            = -2.0
	RewardDuplicate       = -5.0
	RewardRequiredGap     = 10.0
	RewardOptionalGap     = 4.0
	PenaltyCategoryRepeat = -8.0
	PenaltyEarlyDessert   = -6.0
	PenaltyFarOverBudget  = -12.0
	PenaltyOverBudget     = -6.0
	RewardTargetBand      = 6.0
	RewardNearBand        = 3.0
	BonusComplete         = 30.0
	BonusDiversityHigh    = 20.0
	BonusDiversity        = 10.0
	PenaltyEmpty          = -20.0
)

// dessertKeywords mark products that should not open a lunch or dinner.
var dessertKeywords = []string{
	"сырок", "глазированный", "десерт", "мороженое", "конфеты",
	"шоколад", "печенье", "торт", "пирожное", "зефир",
}

// Observation is a compact view of the construction state
type Observation struct {
	BudgetRatio      float64 `json:"budget_ratio"`
	CartFill         float64 `json:"cart_fill"`
	Progress         float64 `json:"progress"`
	RequiredCoverage float64 `json:"required_coverage"`
	OptionalCoverage float64 `json:"optional_coverage"`
	Diversity        float64 `json:"diversity"`
	RequiredDone     bool    `json:"required_done"`
	BudgetOK         bool    `json:"budget_ok"`
	MinItemsMet      bool    `json:"min_items_met"`
	DiversityOK      bool    `json:"diversity_ok"`
}

// Vector flattens the observation into ten features.
func (o Observation) Vector() []float64 {
	return []float64{
		o.BudgetRatio,
		o.CartFill,
		o.Progress,
		o.RequiredCoverage,
		o.OptionalCoverage,
		o.Diversity,
		flag(o.RequiredDone),
		flag(o.BudgetOK),
		flag(o.MinItemsMet),
		flag(o.DiversityOK),
	}
}

// StepResult is the outcome of one transition
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Terminated  bool        `json:"terminated"`
	Truncated   bool        `json:"truncated"`
	Added       bool        `json:"added"`
}

// Env is the state machine of item-at-a-time basket construction.
// State is the chosen set, the running cost and the step index.
// An Env is not safe for concurrent use.
type Env struct {
	products []models.Product
	req      Requirements
	budget   float64
	maxSteps int

	chosen []int
	inCart map[int]bool
	cost   float64
	steps  int
	done   bool
}

// EnvOption configures an Env
type EnvOption func(*Env)

// WithMaxSteps sets the episode length.
func WithMaxSteps(n int) EnvOption {
	return func(e *Env) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithRequirements overrides the meal requirements derived from constraints.
func WithRequirements(r Requirements) EnvOption {
	return func(e *Env) {
		e.req = r
	}
}

// NewEnv creates an environment over products. Product prices are the
// price of one package. A missing or negative budget uses DefaultBudget; a
// zero budget masks every priced pick.
func NewEnv(products []models.Product, c models.Constraints, opts ...EnvOption) (*Env, error) {
	if len(products) == 0 {
		return nil, ErrEmptyPool
	}

	budget := c.BudgetOr(DefaultBudget)
	if budget < 0 {
		budget = DefaultBudget
	}

	e := &Env{
		products: products,
		req:      RequirementsFor(c.MealTypes),
		budget:   budget,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e, nil
}

// Reset empties the basket and rewinds the step counter.
func (e *Env) Reset() Observation {
	e.chosen = nil
	e.inCart = make(map[int]bool)
	e.cost = 0
	e.steps = 0
	e.done = false
	return e.Observation()
}

// Requirements returns the meal requirements in effect.
func (e *Env) Requirements() Requirements {
	return e.req
}

// Budget returns the target budget.
func (e *Env) Budget() float64 {
	return e.budget
}

// HardCap is the cost no pick may push the basket past.
func (e *Env) HardCap() float64 {
	return e.budget * HardCapFactor
}

// Len is the number of products in the pool.
func (e *Env) Len() int {
	return len(e.products)
}

// Product returns the product behind a pick action.
func (e *Env) Product(a Action) models.Product {
	return e.products[a]
}

// Chosen returns the picked pool indexes in pick order.
func (e *Env) Chosen() []int {
	out := make([]int, len(e.chosen))
	copy(out, e.chosen)
	return out
}

// Cart returns the picked products in pick order.
func (e *Env) Cart() []models.Product {
	out := make([]models.Product, len(e.chosen))
	for i, idx := range e.chosen {
		out[i] = e.products[idx]
	}
	return out
}

// Cost is the running cost of the basket.
func (e *Env) Cost() float64 {
	return e.cost
}

// Steps is the number of transitions taken.
func (e *Env) Steps() int {
	return e.steps
}

// Done reports whether the episode has terminated or been truncated.
func (e *Env) Done() bool {
	return e.done
}

// Coverage reports which required and optional roles the basket covers.
func (e *Env) Coverage() map[string]bool {
	coverage := make(map[string]bool, len(e.req.Required)+len(e.req.Optional))
	for _, role := range e.req.Required {
		coverage[role] = e.covers(role)
	}
	for _, role := range e.req.Optional {
		coverage[role] = e.covers(role)
	}
	return coverage
}

// MissingRequired lists the required roles not yet covered.
func (e *Env) MissingRequired() []string {
	var missing []string
	for _, role := range e.req.Required {
		if !e.covers(role) {
			missing = append(missing, role)
		}
	}
	return missing
}

// Mask returns one entry per product plus a final entry for Skip.
// true means the action is legal.
func (e *Env) Mask() []bool {
	n := len(e.products)
	mask := make([]bool, n+1)
	hardCap := e.HardCap()

	for i, p := range e.products {
		mask[i] = !e.inCart[i] && e.cost+p.PricePerUnit <= hardCap
	}

	missing := e.MissingRequired()
	if len(missing) > 0 && len(e.chosen) < e.req.MaxItems-2 {
		covering := make([]bool, n)
		found := false
		for i, p := range e.products {
			if mask[i] && coversAny(p, missing) {
				covering[i] = true
				found = true
			}
		}
		// with no covering product left the gap rule would dead-end the episode
		if found {
			copy(mask[:n], covering)
		}
	}

	mask[n] = true
	return mask
}

// Legal reports whether a is allowed in the current state.
func (e *Env) Legal(a Action) bool {
	if a == Skip {
		return true
	}
	if a < 0 || int(a) >= len(e.products) {
		return false
	}
	return e.Mask()[a]
}

// Score is the immediate reward a would earn, without the terminal bonus.
// A product already in the basket scores RewardDuplicate. The state is not
// changed.
func (e *Env) Score(a Action) float64 {
	if a == Skip {
		return RewardSkip
	}
	if e.inCart[int(a)] {
		return RewardDuplicate
	}
	return e.pickReward(int(a))
}

// Step applies a. Any pick Mask rejects, a product already in the basket
// included, fails with ErrActionMasked without consuming a step.
func (e *Env) Step(a Action) (StepResult, error) {
	if e.done {
		return StepResult{}, ErrEpisodeDone
	}
	if a != Skip && (a < 0 || int(a) >= len(e.products)) {
		return StepResult{}, ErrInvalidAction
	}

	var result StepResult
	if a == Skip {
		result.Reward = RewardSkip
	} else {
		if !e.Mask()[a] {
			return StepResult{}, ErrActionMasked
		}
		result.Reward = e.pickReward(int(a))
		e.add(int(a))
		result.Added = true
	}
	e.steps++

	result.Terminated = e.terminated()
	result.Truncated = e.steps >= e.maxSteps
	if result.Terminated || result.Truncated {
		result.Reward += e.terminalReward()
		e.done = true
	}
	result.Observation = e.Observation()
	return result, nil
}

// Observation summarizes the current state.
func (e *Env) Observation() Observation {
	size := len(e.chosen)
	obs := Observation{
		BudgetRatio: e.budgetRatio(e.cost),
		CartFill:    float64(size) / float64(e.maxSteps),
		Progress:    float64(e.steps) / float64(e.maxSteps),
		MinItemsMet: size >= e.req.MinItems,
	}

	obs.RequiredCoverage = e.coverageRatio(e.req.Required)
	obs.OptionalCoverage = e.coverageRatio(e.req.Optional)
	obs.RequiredDone = obs.RequiredCoverage >= 1
	if size > 1 {
		obs.Diversity = float64(e.uniqueCategories()) / float64(size)
	}
	obs.BudgetOK = obs.BudgetRatio >= 0.8 && obs.BudgetRatio <= 1.2
	obs.DiversityOK = obs.Diversity > 0.5
	return obs
}

func (e *Env) pickReward(idx int) float64 {
	p := e.products[idx]
	var reward float64

	if coversAny(p, e.MissingRequired()) {
		reward += RewardRequiredGap
	}
	var missingOptional []string
	for _, role := range e.req.Optional {
		if !e.covers(role) {
			missingOptional = append(missingOptional, role)
		}
	}
	if coversAny(p, missingOptional) {
		reward += RewardOptionalGap
	}

	for _, chosen := range e.chosen {
		if e.products[chosen].Category == p.Category {
			reward += PenaltyCategoryRepeat
			break
		}
	}

	if (e.req.MealType == "lunch" || e.req.MealType == "dinner") && len(e.chosen) < 2 && isDessert(p.Name) {
		reward += PenaltyEarlyDessert
	}

	cost := e.cost + p.PricePerUnit
	switch {
	case cost > e.budget*1.2:
		reward += PenaltyFarOverBudget
	case cost > e.budget:
		reward += PenaltyOverBudget
	}

	ratio := e.budgetRatio(cost)
	switch {
	case ratio >= 0.8 && ratio <= 1.0:
		reward += RewardTargetBand
	case ratio >= 0.6 && ratio <= 1.2:
		reward += RewardNearBand
	}
	return reward
}

// budgetRatio is cost relative to the budget. Any spend against a zero
// budget counts as far over it.
func (e *Env) budgetRatio(cost float64) float64 {
	if e.budget > 0 {
		return cost / e.budget
	}
	if cost > 0 {
		return math.MaxFloat64
	}
	return 0
}

func (e *Env) terminalReward() float64 {
	size := len(e.chosen)
	if len(e.MissingRequired()) == 0 && size >= e.req.MinItems {
		reward := BonusComplete
		switch unique := e.uniqueCategories(); {
		case unique >= 5:
			reward += BonusDiversityHigh
		case unique >= 3:
			reward += BonusDiversity
		}
		return reward
	}
	if size == 0 {
		return PenaltyEmpty
	}
	return 0
}

func (e *Env) terminated() bool {
	size := len(e.chosen)
	return size >= e.req.MaxItems ||
		e.cost > e.HardCap() ||
		(len(e.MissingRequired()) == 0 && size >= e.req.MinItems)
}

func (e *Env) add(idx int) {
	e.chosen = append(e.chosen, idx)
	e.inCart[idx] = true
	e.cost += e.products[idx].PricePerUnit
}

func (e *Env) covers(role string) bool {
	for _, idx := range e.chosen {
		if e.products[idx].HasRole(role) {
			return true
		}
	}
	return false
}

func (e *Env) coverageRatio(roles []string) float64 {
	if len(roles) == 0 {
		return 0
	}
	covered := 0
	for _, role := range roles {
		if e.covers(role) {
			covered++
		}
	}
	return float64(covered) / float64(len(roles))
}

func (e *Env) uniqueCategories() int {
	seen := make(map[string]bool)
	for _, idx := range e.chosen {
		seen[e.products[idx].Category] = true
	}
	return len(seen)
}

func coversAny(p models.Product, roles []string) bool {
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

func isDessert(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range dessertKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
