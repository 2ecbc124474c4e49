package models

import (
	"math"
	"time"
)

// Constraints are the structured request parameters for one basket build
type Constraints struct {
	MealTypes      []string `json:"meal_types"`
	People         int      `json:"people"`
	Budget         *float64 `json:"budget,omitempty"`
	ExcludeTags    []string `json:"exclude_tags,omitempty"`
	IncludeTags    []string `json:"include_tags,omitempty"`
	MaxTimeMinutes *int     `json:"max_time_min,omitempty"`
	PreferQuick    bool     `json:"prefer_quick"`
	PreferCheap    bool     `json:"prefer_cheap"`
}

// HasBudget reports whether a budget limit applies.
func (c *Constraints) HasBudget() bool {
	return c.Budget != nil
}

// BudgetOr returns the budget or def when no budget is set.
func (c *Constraints) BudgetOr(def float64) float64 {
	if c.Budget == nil {
		return def
	}
	return *c.Budget
}

// BasketItem is a product chosen for a slot together with package arithmetic
type BasketItem struct {
	Product         Product `json:"product"`
	QuantityNeeded  float64 `json:"quantity_needed"`
	PackagesToBuy   int     `json:"packages_to_buy"`
	PricePerUnit    float64 `json:"price_per_unit"`
	TotalPrice      float64 `json:"total_price"`
	FractionalCost  float64 `json:"fractional_cost"`
	MealRole        string  `json:"meal_role,omitempty"`
	SourceSlotLabel string  `json:"source_slot,omitempty"`
	Similarity      float64 `json:"similarity,omitempty"`
}

// Basket is an ordered list of items; order is slot-fill order
type Basket struct {
	ID             string           `json:"id,omitempty"`
	Items          []BasketItem     `json:"items"`
	TotalPrice     float64          `json:"total_price"`
	FractionalCost float64          `json:"fractional_cost"`
	Scenario       *ScenarioSummary `json:"scenario,omitempty"`
	Compatibility  *ScoreReport     `json:"compatibility,omitempty"`
}

// Recalculate refreshes the basket totals from its items.
func (b *Basket) Recalculate() {
	var total, fractional float64
	for _, item := range b.Items {
		total += item.TotalPrice
		fractional += item.FractionalCost
	}
	b.TotalPrice = RoundMoney(total)
	b.FractionalCost = RoundMoney(fractional)
}

// Clone returns a copy whose item slice can be modified independently.
func (b Basket) Clone() Basket {
	items := make([]BasketItem, len(b.Items))
	copy(items, b.Items)
	b.Items = items
	return b
}

// ContainsProduct reports whether a product id is already in the basket.
func (b *Basket) ContainsProduct(id int) bool {
	for _, item := range b.Items {
		if item.Product.ID == id {
			return true
		}
	}
	return false
}

// ScoreWeights are the blend weights of the compatibility score
type ScoreWeights struct {
	Embedding float64 `json:"embedding"`
	Rules     float64 `json:"rules"`
	Balance   float64 `json:"balance"`
}

// ScoreReport explains a compatibility score
type ScoreReport struct {
	Total          float64      `json:"total"`
	Embedding      float64      `json:"embedding"`
	Rules          float64      `json:"rules"`
	Balance        float64      `json:"balance"`
	PositivePairs  int          `json:"positive_pairs"`
	NegativePairs  int          `json:"negative_pairs"`
	NumProducts    int          `json:"num_products"`
	Interpretation string       `json:"interpretation"`
	Weights        ScoreWeights `json:"weights"`
}

// Replacement records one substitution done by budget repair
type Replacement struct {
	FromID     int     `json:"from_id"`
	From       string  `json:"from"`
	ToID       int     `json:"to_id"`
	To         string  `json:"to"`
	Saved      float64 `json:"saved"`
	Similarity float64 `json:"similarity"`
}

// RepairReport summarizes a budget repair
type RepairReport struct {
	Replacements  []Replacement `json:"replacements"`
	Saved         float64       `json:"saved"`
	OriginalPrice float64       `json:"original_price"`
	FinalPrice    float64       `json:"final_price"`
	Budget        float64       `json:"budget"`
	WithinBudget  bool          `json:"within_budget"`
	Message       string        `json:"message"`
}

// BudgetCheck is the result of comparing items with a budget
type BudgetCheck struct {
	Fits      bool    `json:"fits"`
	Overspend float64 `json:"overspend"`
	Total     float64 `json:"total"`
}

// Warning codes
const (
	WarnScenarioNotFound  = "scenario_not_found"
	WarnSlotUnfillable    = "slot_unfillable"
	WarnOverBudget        = "over_budget"
	WarnRepairExhausted   = "repair_exhausted"
	WarnInvalidVector     = "invalid_vector"
	WarnEmbeddingFallback = "embedding_unavailable"
	WarnIncompatibleUnits = "incompatible_units"
)

// Warning is a non-fatal problem recorded while building a basket
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Slot     string `json:"slot,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// StageTimings records the duration of each pipeline stage
type StageTimings struct {
	Fetch    time.Duration `json:"fetch"`
	Assembly time.Duration `json:"assembly"`
	Scoring  time.Duration `json:"scoring"`
	Repair   time.Duration `json:"repair"`
	Total    time.Duration `json:"total"`
}

// BasketSummary is the headline numbers of a build
type BasketSummary struct {
	ItemsCount    int     `json:"items_count"`
	TotalPrice    float64 `json:"total_price"`
	OriginalPrice float64 `json:"original_price"`
	Savings       float64 `json:"savings"`
	WithinBudget  bool    `json:"within_budget"`
	Success       bool    `json:"success"`
}

// BasketResult is everything returned to a caller for one build
type BasketResult struct {
	ID          string        `json:"id"`
	Strategy    string        `json:"strategy"`
	Constraints Constraints   `json:"constraints"`
	Basket      Basket        `json:"basket"`
	Score       ScoreReport   `json:"score"`
	Repair      *RepairReport `json:"repair,omitempty"`
	Warnings    []Warning     `json:"warnings"`
	Summary     BasketSummary `json:"summary"`
	Timings     StageTimings  `json:"timings"`
	CreatedAt   time.Time     `json:"created_at"`
}

// BuildBasketRequest is the request body for building a basket
type BuildBasketRequest struct {
	MealTypes      []string `json:"meal_types" validate:"omitempty,dive,oneof=breakfast lunch dinner snack"`
	People         int      `json:"people" validate:"omitempty,min=1,max=50"`
	Budget         *float64 `json:"budget,omitempty" validate:"omitempty,gte=0"`
	ExcludeTags    []string `json:"exclude_tags,omitempty"`
	IncludeTags    []string `json:"include_tags,omitempty"`
	MaxTimeMinutes *int     `json:"max_time_min,omitempty" validate:"omitempty,min=1"`
	PreferQuick    bool     `json:"prefer_quick"`
	PreferCheap    *bool    `json:"prefer_cheap,omitempty"`
	Strategy       string   `json:"strategy,omitempty" validate:"omitempty,oneof=scenario sequential"`
	MinDiscount    *float64 `json:"min_discount,omitempty" validate:"omitempty,gt=0,lte=1"`
	SkipRepair     bool     `json:"skip_repair"`
}

// ScoreBasketRequest scores an ad-hoc set of catalog products
type ScoreBasketRequest struct {
	ProductIDs []int `json:"product_ids" validate:"required,min=1,max=100"`
}

// RoundMoney rounds a monetary amount to kopecks.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
