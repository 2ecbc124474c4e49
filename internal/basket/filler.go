package basket

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
)

var ErrSlotUnfillable = errors.New("no candidate for slot")

// Candidate is a product ranked for a slot
type Candidate struct {
	Product    models.Product
	Similarity float64
}

// FillRequest is the input of a single slot fill
type FillRequest struct {
	Slot        models.ScaledSlot
	Pool        []models.Product
	Constraints models.Constraints
	// Query is the semantic vector of the slot's search phrase; nil falls
	// back to word matching.
	Query []float32
	// Exclude holds product ids that are already in the basket.
	Exclude map[int]bool
}

// SlotFiller picks the best product for one ingredient slot
type SlotFiller struct {
	matchRole     bool
	minSimilarity float64
	logger        *zap.Logger
}

// FillerOption configures a SlotFiller
type FillerOption func(*SlotFiller)

// WithRoleMatching restricts candidates to the slot's meal role when any
// candidate carries it.
func WithRoleMatching(enabled bool) FillerOption {
	return func(f *SlotFiller) {
		f.matchRole = enabled
	}
}

// WithMinSimilarity drops candidates below a similarity floor.
func WithMinSimilarity(min float64) FillerOption {
	return func(f *SlotFiller) {
		f.minSimilarity = min
	}
}

// WithFillerLogger sets the logger.
func WithFillerLogger(logger *zap.Logger) FillerOption {
	return func(f *SlotFiller) {
		f.logger = logger
	}
}

// NewSlotFiller creates a slot filler. Role matching is on and there is no
// similarity floor by default.
func NewSlotFiller(opts ...FillerOption) *SlotFiller {
	f := &SlotFiller{
		matchRole:     true,
		minSimilarity: -1,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candidates applies the tag and meal-role filters to the pool.
func (f *SlotFiller) Candidates(req FillRequest) []models.Product {
	var out []models.Product
	for _, p := range FilterByTags(req.Pool, req.Constraints) {
		if req.Exclude[p.ID] {
			continue
		}
		out = append(out, p)
	}

	role := req.Slot.MealRole
	if !f.matchRole || role == "" {
		return out
	}
	var withRole []models.Product
	for _, p := range out {
		if p.HasRole(role) {
			withRole = append(withRole, p)
		}
	}
	if len(withRole) == 0 {
		return out
	}
	return withRole
}

// Rank orders candidates by cosine similarity to query, best first.
// Candidates with unusable vectors are skipped and counted.
func (f *SlotFiller) Rank(query []float32, candidates []models.Product) ([]Candidate, int, error) {
	q, err := embedding.Normalize(query)
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]Candidate, 0, len(candidates))
	skipped := 0
	for _, p := range candidates {
		if len(p.Vector) != len(q) {
			skipped++
			continue
		}
		v, err := embedding.Normalize(p.Vector)
		if err != nil {
			skipped++
			continue
		}
		sim := embedding.CosineNormalized(q, v)
		if sim < f.minSimilarity {
			continue
		}
		ranked = append(ranked, Candidate{Product: p, Similarity: sim})
	}
	sortCandidates(ranked)
	return ranked, skipped, nil
}

// RankByWords orders candidates by word overlap with phrase. Candidates
// sharing no word are dropped.
func (f *SlotFiller) RankByWords(phrase string, candidates []models.Product) []Candidate {
	queryWords := wordStems(phrase)
	if len(queryWords) == 0 {
		return nil
	}

	var ranked []Candidate
	for _, p := range candidates {
		productWords := wordStems(p.EmbeddingText())
		shared := 0
		for w := range queryWords {
			if productWords[w] {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		ranked = append(ranked, Candidate{
			Product:    p,
			Similarity: float64(shared) / float64(len(queryWords)+len(productWords)-shared),
		})
	}
	sortCandidates(ranked)
	return ranked
}

// Fill picks the top candidate for the slot and converts the slot quantity
// into whole packages. A nil item means the slot could not be filled.
func (f *SlotFiller) Fill(req FillRequest) (*models.BasketItem, []models.Warning) {
	var warnings []models.Warning
	label := req.Slot.Ingredient
	candidates := f.Candidates(req)

	var ranked []Candidate
	if req.Query != nil {
		r, skipped, err := f.Rank(req.Query, candidates)
		if err == nil {
			ranked = r
			if skipped > 0 {
				warnings = append(warnings, models.Warning{
					Code:    models.WarnInvalidVector,
					Message: fmt.Sprintf("%d candidates skipped: unusable vectors", skipped),
					Slot:    label,
				})
			}
		} else {
			f.logger.Debug("query vector unusable, matching by words", zap.String("slot", label), zap.Error(err))
			ranked = f.RankByWords(phrase(req.Slot.Slot), candidates)
		}
	} else {
		ranked = f.RankByWords(phrase(req.Slot.Slot), candidates)
	}

	if len(ranked) == 0 {
		return nil, warnings
	}

	best := ranked[0]
	needed, err := neededFor(best.Product, req.Slot.QuantityScaled, req.Slot.Unit)
	if err != nil {
		warnings = append(warnings, models.Warning{
			Code:    models.WarnIncompatibleUnits,
			Message: fmt.Sprintf("cannot convert %s to %s, buying one package", req.Slot.Unit, best.Product.Unit),
			Slot:    label,
		})
	}

	item := NewItem(best.Product, needed, req.Slot.MealRole, label)
	item.Similarity = best.Similarity
	return &item, warnings
}

// FilterByTags drops products carrying an excluded tag and, when include
// tags are given, products carrying none of them.
func FilterByTags(pool []models.Product, c models.Constraints) []models.Product {
	out := make([]models.Product, 0, len(pool))
	for _, p := range pool {
		if len(c.ExcludeTags) > 0 && p.HasAnyTag(c.ExcludeTags) {
			continue
		}
		if len(c.IncludeTags) > 0 && !p.HasAnyTag(c.IncludeTags) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func phrase(slot models.Slot) string {
	if slot.SearchQuery != "" {
		return slot.SearchQuery
	}
	return slot.Ingredient
}

// sortCandidates orders by similarity, then cheaper, then lower id.
func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Similarity != c[j].Similarity {
			return c[i].Similarity > c[j].Similarity
		}
		if c[i].Product.PricePerUnit != c[j].Product.PricePerUnit {
			return c[i].Product.PricePerUnit < c[j].Product.PricePerUnit
		}
		return c[i].Product.ID < c[j].Product.ID
	})
}

// wordStems lowercases words and keeps their first four letters, which
// is enough to match most Russian inflections.
func wordStems(s string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	stems := make(map[string]bool, len(words))
	for _, w := range words {
		r := []rune(w)
		if len(r) < 3 {
			continue
		}
		if len(r) > 4 {
			r = r[:4]
		}
		stems[string(r)] = true
	}
	return stems
}
