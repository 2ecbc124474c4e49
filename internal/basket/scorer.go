package basket

import (
	"math"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

// DefaultWeights blend the three compatibility terms.
var DefaultWeights = models.ScoreWeights{Embedding: 0.5, Rules: 0.3, Balance: 0.2}

// neutralEmbedding is used when fewer than two items have usable vectors.
const neutralEmbedding = 0.5

// Scorer computes the 0..1 compatibility of a basket
type Scorer struct {
	rules   PairRules
	weights models.ScoreWeights
}

// ScorerOption configures a Scorer
type ScorerOption func(*Scorer)

// WithPairRules replaces the compatibility matrix.
func WithPairRules(rules PairRules) ScorerOption {
	return func(s *Scorer) {
		s.rules = rules
	}
}

// WithWeights replaces the term weights.
func WithWeights(w models.ScoreWeights) ScorerOption {
	return func(s *Scorer) {
		s.weights = w
	}
}

// NewScorer creates a scorer with the default rules and weights.
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		rules:   DefaultPairRules(),
		weights: DefaultWeights,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score rates the items of a basket. An empty basket scores zero everywhere.
func (s *Scorer) Score(items []models.BasketItem) models.ScoreReport {
	report := models.ScoreReport{
		NumProducts: len(items),
		Weights:     s.weights,
	}
	if len(items) == 0 {
		report.Interpretation = Interpret(0)
		return report
	}

	report.Embedding = embeddingCoherence(items)
	report.Rules, report.PositivePairs, report.NegativePairs = s.ruleScore(items)
	report.Balance = RoleBalance(items)

	total := s.weights.Embedding*report.Embedding +
		s.weights.Rules*report.Rules +
		s.weights.Balance*report.Balance
	report.Total = round4(clamp01(total))
	report.Embedding = round4(report.Embedding)
	report.Rules = round4(report.Rules)
	report.Balance = round4(report.Balance)
	report.Interpretation = Interpret(report.Total)
	return report
}

// embeddingCoherence is the mean pairwise cosine similarity of the items
// that have usable vectors.
func embeddingCoherence(items []models.BasketItem) float64 {
	var vectors [][]float64
	dim := -1
	for _, item := range items {
		v, err := embedding.Normalize(item.Product.Vector)
		if err != nil {
			continue
		}
		if dim == -1 {
			dim = len(v)
		}
		if len(v) != dim {
			continue
		}
		vectors = append(vectors, v)
	}
	if len(vectors) < 2 {
		return neutralEmbedding
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			sum += embedding.CosineNormalized(vectors[i], vectors[j])
			pairs++
		}
	}
	return sum / float64(pairs)
}

func (s *Scorer) ruleScore(items []models.BasketItem) (float64, int, int) {
	if len(items) < 2 {
		return 0.5, 0, 0
	}

	var sum float64
	pairs, positive, negative := 0, 0, 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			v := s.rules.Check(items[i].Product.Name, items[j].Product.Name)
			switch {
			case v > 0:
				positive++
			case v < 0:
				negative++
			}
			sum += v
			pairs++
		}
	}
	avg := sum / float64(pairs)
	return clamp01(0.5 + avg*2.5), positive, negative
}

// RoleBalance rewards a main course, a side or salad and the extras.
func RoleBalance(items []models.BasketItem) float64 {
	has := make(map[string]bool)
	mains := 0
	for _, item := range items {
		for _, role := range itemRoles(item) {
			has[role] = true
		}
		if hasRole(item, models.RoleMainCourse) {
			mains++
		}
	}

	var score float64
	if has[models.RoleMainCourse] {
		score += 0.4
	}
	if has[models.RoleSideDish] || has[models.RoleSalad] {
		score += 0.3
	}
	for _, extra := range []string{models.RoleBeverage, models.RoleSauce, models.RoleBakery} {
		if has[extra] {
			score += 0.1
		}
	}
	if mains > 2 {
		score -= 0.2
	}
	return clamp01(score)
}

// Interpret maps a total score onto a label.
func Interpret(total float64) string {
	switch {
	case total >= 0.8:
		return "excellent"
	case total >= 0.6:
		return "good"
	case total >= 0.4:
		return "acceptable"
	case total >= 0.2:
		return "weak"
	default:
		return "poor"
	}
}

// itemRoles is the slot role when set, plus the product's own roles.
func itemRoles(item models.BasketItem) []string {
	roles := make([]string, 0, len(item.Product.MealRoles)+1)
	if item.MealRole != "" {
		roles = append(roles, item.MealRole)
	}
	return append(roles, item.Product.MealRoles...)
}

func hasRole(item models.BasketItem, role string) bool {
	for _, r := range itemRoles(item) {
		if r == role {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
