package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
)

// SaveBasket stores a finished result. It implements planner.Archive.
func (db *DB) SaveBasket(ctx context.Context, result *models.BasketResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode basket: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
		INSERT INTO baskets (id, strategy, total_price, success, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET result = EXCLUDED.result
	`, result.ID, result.Strategy, result.Summary.TotalPrice, result.Summary.Success, payload, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save basket %s: %w", result.ID, err)
	}
	return nil
}

// LoadBasket reads an archived result back.
func (db *DB) LoadBasket(ctx context.Context, id string) (*models.BasketResult, error) {
	var payload []byte
	err := db.Pool.QueryRow(ctx, `SELECT result FROM baskets WHERE id::text = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, planner.ErrBasketNotFound
		}
		return nil, err
	}

	result := &models.BasketResult{}
	if err := json.Unmarshal(payload, result); err != nil {
		return nil, fmt.Errorf("failed to decode basket %s: %w", id, err)
	}
	return result, nil
}
