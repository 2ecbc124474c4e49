package scenario

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/foxxcyber/meal-basket/internal/models"
)

// Strategy decides how one template is picked among the survivors of filtering
type Strategy string

const (
	StrategySmart    Strategy = "smart"
	StrategyRandom   Strategy = "random"
	StrategyFastest  Strategy = "fastest"
	StrategySimplest Strategy = "simplest"
)

// DefaultTopK bounds the randomized pick of the smart strategy.
const DefaultTopK = 6

// Selector filters, scores and scales scenario templates.
// The random source is guarded so a Selector can be shared between requests.
type Selector struct {
	mu       sync.Mutex
	rng      *rand.Rand
	topK     int
	strategy Strategy
}

// Option configures a Selector
type Option func(*Selector)

// WithRand injects the random source used for tie-breaking.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) {
		s.rng = r
	}
}

// WithSeed seeds the random source; zero keeps a time-based seed.
func WithSeed(seed int64) Option {
	return func(s *Selector) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed))
		}
	}
}

// WithStrategy sets the selection strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Selector) {
		s.strategy = strategy
	}
}

// WithTopK sets how many best-scored templates take part in the random pick.
func WithTopK(k int) Option {
	return func(s *Selector) {
		if k > 0 {
			s.topK = k
		}
	}
}

// NewSelector creates a selector using the smart strategy by default.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		topK:     DefaultTopK,
		strategy: StrategySmart,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select picks a template for the constraints and scales it to the party size.
// It returns ErrScenarioNotFound when no template survives filtering,
// including when c names no meal type.
func (s *Selector) Select(templates []models.ScenarioTemplate, c models.Constraints) (*models.ScaledScenario, error) {
	candidates := Filter(templates, c)
	if len(candidates) == 0 {
		return nil, ErrScenarioNotFound
	}

	var chosen models.ScenarioTemplate
	switch s.strategy {
	case StrategyRandom:
		chosen = candidates[s.intn(len(candidates))]
	case StrategyFastest:
		chosen = fastest(candidates)
	case StrategySimplest:
		chosen = simplest(candidates)
	default:
		chosen = s.pickSmart(candidates, c)
	}

	return Scale(chosen, c.People), nil
}

func (s *Selector) pickSmart(candidates []models.ScenarioTemplate, c models.Constraints) models.ScenarioTemplate {
	if len(candidates) == 1 {
		return candidates[0]
	}

	ranked := Rank(candidates, c)
	k := s.topK
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[s.intn(k)].Template
}

func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Filter applies meal type, time and tag filters in that order.
// An empty meal type list matches no template.
func Filter(templates []models.ScenarioTemplate, c models.Constraints) []models.ScenarioTemplate {
	var out []models.ScenarioTemplate
	for _, t := range templates {
		if !containsString(c.MealTypes, t.MealType) {
			continue
		}
		if c.MaxTimeMinutes != nil {
			// templates without a time estimate never pass a time limit
			if t.EstimatedTimeMinutes == nil || *t.EstimatedTimeMinutes > *c.MaxTimeMinutes {
				continue
			}
		}
		if hasExcludedIngredient(t, c.ExcludeTags) {
			continue
		}
		if len(c.IncludeTags) > 0 && countIncludedSlots(t, c.IncludeTags) == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Ranked is a template with its preference score
type Ranked struct {
	Template models.ScenarioTemplate
	Score    float64
}

// Rank scores templates and orders them best first. Equal scores keep
// library order.
func Rank(templates []models.ScenarioTemplate, c models.Constraints) []Ranked {
	ranked := make([]Ranked, len(templates))
	for i, t := range templates {
		ranked[i] = Ranked{Template: t, Score: Score(t, c)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Score is the preference heuristic for one template.
func Score(t models.ScenarioTemplate, c models.Constraints) float64 {
	score := 1.0

	if c.PreferQuick {
		switch minutes := t.TimeOrDefault(); {
		case minutes <= 15:
			score += 0.5
		case minutes <= 30:
			score += 0.3
		case minutes <= 45:
			score += 0.1
		default:
			score -= 0.2
		}
	}

	if c.PreferCheap {
		switch cost := EstimateTemplateCost(t); {
		case cost < 500:
			score += 0.4
		case cost < 800:
			score += 0.2
		case cost > 1200:
			score -= 0.2
		}
	}

	if len(c.IncludeTags) > 0 {
		score += 0.1 * float64(countIncludedSlots(t, c.IncludeTags))
	}

	if len(t.Slots) > 10 {
		score -= 0.2
	}

	return score
}

// EstimateTemplateCost sums the static per-ingredient cost estimates.
func EstimateTemplateCost(t models.ScenarioTemplate) float64 {
	var total float64
	for _, slot := range t.Slots {
		total += EstimateIngredientCost(slot.Ingredient)
	}
	return total
}

// Scale multiplies slot quantities by the number of people and rounds them.
func Scale(t models.ScenarioTemplate, people int) *models.ScaledScenario {
	if people < 1 {
		people = 1
	}
	servesBase := t.ServesBase
	if servesBase <= 0 {
		servesBase = 1
	}

	scaled := &models.ScaledScenario{
		ID:                   t.ID,
		Name:                 t.Name,
		MealType:             t.MealType,
		EstimatedTimeMinutes: t.TimeOrDefault(),
		People:               people,
		ScaleFactor:          float64(people) / float64(servesBase),
		Slots:                make([]models.ScaledSlot, len(t.Slots)),
	}
	for i, slot := range t.Slots {
		scaled.Slots[i] = models.ScaledSlot{
			Slot:           slot,
			QuantityScaled: RoundQuantity(slot.QuantityPerPerson * float64(people)),
		}
	}
	return scaled
}

// RoundQuantity rounds by magnitude: whole units below 10, steps of 5 below
// 100, steps of 10 above. The result is never below 1.
func RoundQuantity(q float64) float64 {
	var rounded float64
	switch {
	case q < 10:
		rounded = math.Round(q)
	case q < 100:
		rounded = math.Round(q/5) * 5
	default:
		rounded = math.Round(q/10) * 10
	}
	return math.Max(rounded, 1)
}

func fastest(candidates []models.ScenarioTemplate) models.ScenarioTemplate {
	best := candidates[0]
	bestTime := timeOr(best, 999)
	for _, t := range candidates[1:] {
		if tm := timeOr(t, 999); tm < bestTime {
			best, bestTime = t, tm
		}
	}
	return best
}

func simplest(candidates []models.ScenarioTemplate) models.ScenarioTemplate {
	best := candidates[0]
	for _, t := range candidates[1:] {
		if len(t.Slots) < len(best.Slots) {
			best = t
		}
	}
	return best
}

func timeOr(t models.ScenarioTemplate, def int) int {
	if t.EstimatedTimeMinutes == nil {
		return def
	}
	return *t.EstimatedTimeMinutes
}

func hasExcludedIngredient(t models.ScenarioTemplate, excludeTags []string) bool {
	if len(excludeTags) == 0 {
		return false
	}
	for _, slot := range t.Slots {
		if MatchesAnyTag(slot.Ingredient, excludeTags) {
			return true
		}
	}
	return false
}

func countIncludedSlots(t models.ScenarioTemplate, includeTags []string) int {
	n := 0
	for _, slot := range t.Slots {
		if MatchesAnyTag(slot.Ingredient, includeTags) {
			n++
		}
	}
	return n
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
