// Package planner runs the basket pipeline: fetch candidates, build with a
// strategy, score, repair and report.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/basket"
	"github.com/foxxcyber/meal-basket/internal/metrics"
	"github.com/foxxcyber/meal-basket/internal/models"
)

var (
	ErrUnknownStrategy  = errors.New("unknown basket strategy")
	ErrArchiveDisabled  = errors.New("basket archive is not configured")
	ErrNoStrategies     = errors.New("no basket strategy registered")
	ErrProductsNotFound = errors.New("no products to score")
)

// Pipeline defaults applied to missing request fields
const (
	DefaultBudget        = 3000.0
	DefaultPeople        = 2
	DefaultMealType      = "dinner"
	CheapBudgetThreshold = 1000.0
	DefaultCandidates    = 5000
)

// Planner runs basket builds
type Planner struct {
	pool            CandidatePool
	strategies      map[string]basket.Strategy
	defaultStrategy string
	scorer          *basket.Scorer
	repairer        *basket.Repairer
	archive         Archive
	metrics         *metrics.Metrics
	logger          *zap.Logger
	candidateLimit  int
	shuffle         bool
	minDiscount     float64
	now             func() time.Time
}

// Option configures a Planner
type Option func(*Planner)

// WithStrategy registers a strategy under its name. The first registered
// strategy is the default unless WithDefaultStrategy says otherwise.
func WithStrategy(s basket.Strategy) Option {
	return func(p *Planner) {
		if p.defaultStrategy == "" {
			p.defaultStrategy = s.Name()
		}
		p.strategies[s.Name()] = s
	}
}

// WithDefaultStrategy selects the strategy used when a request names none.
func WithDefaultStrategy(name string) Option {
	return func(p *Planner) {
		if name != "" {
			p.defaultStrategy = name
		}
	}
}

// WithArchive stores every result in a.
func WithArchive(a Archive) Option {
	return func(p *Planner) {
		p.archive = a
	}
}

// WithMetrics records build metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Planner) {
		p.metrics = m
	}
}

// WithLogger sets the planner logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithCandidateLimit caps the number of candidates fetched per build.
func WithCandidateLimit(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.candidateLimit = n
		}
	}
}

// WithShuffledCandidates asks the pool for candidates in random order, so
// a capped fetch samples the whole catalog instead of its oldest rows.
func WithShuffledCandidates(enabled bool) Option {
	return func(p *Planner) {
		p.shuffle = enabled
	}
}

// WithMinDiscount sets the default repair discount.
func WithMinDiscount(d float64) Option {
	return func(p *Planner) {
		if d > 0 && d <= 1 {
			p.minDiscount = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		p.now = now
	}
}

// New creates a planner. scorer and repairer default to their zero-option
// constructors when nil.
func New(pool CandidatePool, scorer *basket.Scorer, repairer *basket.Repairer, opts ...Option) (*Planner, error) {
	p := &Planner{
		pool:           pool,
		strategies:     make(map[string]basket.Strategy),
		scorer:         scorer,
		repairer:       repairer,
		logger:         zap.NewNop(),
		candidateLimit: DefaultCandidates,
		minDiscount:    basket.DefaultMinDiscount,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.scorer == nil {
		p.scorer = basket.NewScorer()
	}
	if p.repairer == nil {
		p.repairer = basket.NewRepairer(nil, p.logger)
	}
	if len(p.strategies) == 0 {
		return nil, ErrNoStrategies
	}
	if _, ok := p.strategies[p.defaultStrategy]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, p.defaultStrategy)
	}
	return p, nil
}

// Strategies lists the registered strategy names.
func (p *Planner) Strategies() []string {
	names := make([]string, 0, len(p.strategies))
	for name := range p.strategies {
		names = append(names, name)
	}
	return names
}

// Constraints applies pipeline defaults to a request. Cheap templates are
// preferred for small budgets unless the request decides explicitly.
func Constraints(req models.BuildBasketRequest) models.Constraints {
	c := models.Constraints{
		MealTypes:      req.MealTypes,
		People:         req.People,
		Budget:         req.Budget,
		ExcludeTags:    req.ExcludeTags,
		IncludeTags:    req.IncludeTags,
		MaxTimeMinutes: req.MaxTimeMinutes,
		PreferQuick:    req.PreferQuick,
	}
	if len(c.MealTypes) == 0 {
		c.MealTypes = []string{DefaultMealType}
	}
	if c.People < 1 {
		c.People = DefaultPeople
	}
	if c.Budget == nil {
		budget := DefaultBudget
		c.Budget = &budget
	}

	if req.PreferCheap != nil {
		c.PreferCheap = *req.PreferCheap
	} else {
		c.PreferCheap = *c.Budget < CheapBudgetThreshold
	}
	return c
}

// Plan builds, scores and repairs one basket. Only a failed candidate
// fetch, an unknown strategy or a strategy that cannot start, such as no
// scenario matching the constraints, is an error; everything else is
// reported through warnings.
func (p *Planner) Plan(ctx context.Context, req models.BuildBasketRequest) (*models.BasketResult, error) {
	start := p.now()
	c := Constraints(req)

	name := req.Strategy
	if name == "" {
		name = p.defaultStrategy
	}
	strategy, ok := p.strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}

	var timings models.StageTimings

	stage := p.now()
	pool, err := p.fetchCandidates(ctx, strategy, c)
	if err != nil {
		p.metrics.ObserveBuild(name, false, err)
		return nil, fmt.Errorf("unable to fetch candidates: %w", err)
	}
	timings.Fetch = p.now().Sub(stage)
	p.metrics.ObserveStage("fetch", timings.Fetch)

	stage = p.now()
	assembly, err := strategy.Build(ctx, pool, c)
	if err != nil {
		p.metrics.ObserveBuild(name, false, err)
		return nil, fmt.Errorf("unable to build basket: %w", err)
	}
	timings.Assembly = p.now().Sub(stage)
	p.metrics.ObserveStage("assembly", timings.Assembly)

	stage = p.now()
	b := assembly.Basket
	score := p.scorer.Score(b.Items)
	timings.Scoring = p.now().Sub(stage)
	p.metrics.ObserveStage("scoring", timings.Scoring)

	warnings := withoutCode(assembly.Warnings, models.WarnOverBudget)
	originalPrice := b.TotalPrice

	var repair *models.RepairReport
	if !req.SkipRepair && b.TotalPrice > *c.Budget {
		stage = p.now()
		minDiscount := p.minDiscount
		if req.MinDiscount != nil {
			minDiscount = *req.MinDiscount
		}

		repaired, report := p.repairer.Repair(ctx, b, basket.FilterByTags(pool, c), *c.Budget, minDiscount)
		b = repaired
		repair = &report
		if len(report.Replacements) > 0 {
			score = p.scorer.Score(b.Items)
		}
		if !report.WithinBudget {
			warnings = append(warnings, models.Warning{
				Code:    models.WarnRepairExhausted,
				Message: report.Message,
			})
		}
		timings.Repair = p.now().Sub(stage)
		p.metrics.ObserveStage("repair", timings.Repair)
	}
	if w := basket.BudgetWarning(b, c); w != nil {
		warnings = append(warnings, *w)
	}

	id := uuid.NewString()
	b.ID = id
	b.Compatibility = &score

	success := basket.IsSuccess(b, c, score, len(assembly.MissingRequired))
	timings.Total = p.now().Sub(start)

	result := &models.BasketResult{
		ID:          id,
		Strategy:    name,
		Constraints: c,
		Basket:      b,
		Score:       score,
		Repair:      repair,
		Warnings:    warnings,
		Summary: models.BasketSummary{
			ItemsCount:    len(b.Items),
			TotalPrice:    b.TotalPrice,
			OriginalPrice: originalPrice,
			Savings:       models.RoundMoney(originalPrice - b.TotalPrice),
			WithinBudget:  basket.WithinBudget(b, c),
			Success:       success,
		},
		Timings:   timings,
		CreatedAt: p.now().UTC(),
	}
	if result.Warnings == nil {
		result.Warnings = []models.Warning{}
	}

	if p.archive != nil {
		if err := p.archive.SaveBasket(ctx, result); err != nil {
			p.logger.Warn("failed to archive basket", zap.String("id", id), zap.Error(err))
		}
	}

	p.metrics.ObserveBuild(name, success, nil)
	p.metrics.ObserveBasket(b.TotalPrice, score.Total, replacements(repair))
	for _, w := range result.Warnings {
		p.metrics.Warning(w.Code)
	}

	p.logger.Info("basket built",
		zap.String("id", id),
		zap.String("strategy", name),
		zap.Int("items", len(b.Items)),
		zap.Float64("total", b.TotalPrice),
		zap.Float64("budget", *c.Budget),
		zap.Float64("score", score.Total),
		zap.Bool("success", success),
		zap.Duration("took", timings.Total))

	return result, nil
}

// fetchCandidates narrows the pool by the request tags and, for a windowed
// strategy, by its price window. An empty window falls back to the
// unwindowed fetch.
func (p *Planner) fetchCandidates(ctx context.Context, strategy basket.Strategy, c models.Constraints) ([]models.Product, error) {
	q := models.CandidateQuery{
		ExcludeTags: c.ExcludeTags,
		IncludeTags: c.IncludeTags,
		Limit:       p.candidateLimit,
		Shuffle:     p.shuffle,
	}

	if w, ok := strategy.(basket.WindowedStrategy); ok {
		if lo, hi, ok := w.CandidateWindow(c); ok {
			windowed := q
			windowed.MinPrice, windowed.MaxPrice = lo, hi
			pool, err := p.pool.FetchCandidates(ctx, windowed)
			if err != nil || len(pool) > 0 {
				return pool, err
			}
			p.logger.Debug("price window is empty, fetching without it",
				zap.String("strategy", strategy.Name()),
				zap.Float64("min_price", lo),
				zap.Float64("max_price", hi))
		}
	}
	return p.pool.FetchCandidates(ctx, q)
}

// Get returns an archived result.
func (p *Planner) Get(ctx context.Context, id string) (*models.BasketResult, error) {
	if p.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return p.archive.LoadBasket(ctx, id)
}

// ScoreProducts scores a basket holding one package of each product.
func (p *Planner) ScoreProducts(products []models.Product) (models.ScoreReport, error) {
	if len(products) == 0 {
		return models.ScoreReport{}, ErrProductsNotFound
	}
	items := make([]models.BasketItem, len(products))
	for i, product := range products {
		items[i] = basket.NewItem(product, product.PackageSize, "", "")
	}
	return p.scorer.Score(items), nil
}

func withoutCode(warnings []models.Warning, code string) []models.Warning {
	out := make([]models.Warning, 0, len(warnings))
	for _, w := range warnings {
		if w.Code != code {
			out = append(out, w)
		}
	}
	return out
}

func replacements(repair *models.RepairReport) int {
	if repair == nil {
		return 0
	}
	return len(repair.Replacements)
}
