package planner

import (
	"context"
	"errors"
	"sync"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var ErrBasketNotFound = errors.New("basket not found")

// Archive stores finished basket results
type Archive interface {
	SaveBasket(ctx context.Context, result *models.BasketResult) error
	LoadBasket(ctx context.Context, id string) (*models.BasketResult, error)
}

// DefaultMemoryArchiveSize is the number of results a MemoryArchive keeps.
const DefaultMemoryArchiveSize = 1000

// MemoryArchive keeps the most recent results in memory.
type MemoryArchive struct {
	mu      sync.RWMutex
	size    int
	order   []string
	results map[string]*models.BasketResult
}

// NewMemoryArchive creates an archive holding at most size results.
func NewMemoryArchive(size int) *MemoryArchive {
	if size <= 0 {
		size = DefaultMemoryArchiveSize
	}
	return &MemoryArchive{
		size:    size,
		results: make(map[string]*models.BasketResult),
	}
}

// SaveBasket implements Archive. The oldest result is evicted when full.
func (a *MemoryArchive) SaveBasket(_ context.Context, result *models.BasketResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.results[result.ID]; !ok {
		a.order = append(a.order, result.ID)
	}
	a.results[result.ID] = result

	for len(a.order) > a.size {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.results, oldest)
	}
	return nil
}

// LoadBasket implements Archive.
func (a *MemoryArchive) LoadBasket(_ context.Context, id string) (*models.BasketResult, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	result, ok := a.results[id]
	if !ok {
		return nil, ErrBasketNotFound
	}
	return result, nil
}
