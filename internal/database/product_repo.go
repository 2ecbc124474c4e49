package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/foxxcyber/meal-basket/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

const productColumns = `id, name, category, brand, price_per_unit, unit, package_size,
	tags, meal_roles, vector, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	p := &models.Product{}
	var unit string
	err := row.Scan(
		&p.ID, &p.Name, &p.Category, &p.Brand, &p.PricePerUnit, &unit, &p.PackageSize,
		&p.Tags, &p.MealRoles, &p.Vector, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Unit = models.Unit(unit)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.MealRoles == nil {
		p.MealRoles = []string{}
	}
	return p, nil
}

// ListProducts returns a paginated list of products with optional filtering
func (db *DB) ListProducts(ctx context.Context, params *models.ProductListParams) ([]*models.Product, int, error) {
	var whereClauses []string
	var args []interface{}
	argIndex := 1

	if params.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(LOWER(name) LIKE LOWER($%d) OR LOWER(category) LIKE LOWER($%d) OR LOWER(brand) LIKE LOWER($%d))",
			argIndex, argIndex, argIndex,
		))
		args = append(args, "%"+params.Search+"%")
		argIndex++
	}

	if params.Tag != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("$%d = ANY(tags)", argIndex))
		args = append(args, strings.ToLower(params.Tag))
		argIndex++
	}

	if params.Role != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("$%d = ANY(meal_roles)", argIndex))
		args = append(args, strings.ToLower(params.Role))
		argIndex++
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Get total count
	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	if err := db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY name ASC, id ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argIndex, argIndex+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProductByID retrieves a product by ID
func (db *DB) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	row := db.Pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns), id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetProductsByIDs returns the products in ids order. Unknown ids are
// reported with ErrProductNotFound.
func (db *DB) GetProductsByIDs(ctx context.Context, ids []int) ([]models.Product, error) {
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM products WHERE id = ANY($1)`, productColumns), ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[int]models.Product, len(ids))
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		byID[p.ID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrProductNotFound, id)
		}
		products = append(products, p)
	}
	return products, nil
}

// UpsertProduct updates the product with p.ID, or inserts it and merges
// with an existing row of the same name, brand and package when p.ID is 0.
func (db *DB) UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.ID != 0 {
		row := db.Pool.QueryRow(ctx, fmt.Sprintf(`
			UPDATE products SET
				name = $2, category = $3, brand = $4, price_per_unit = $5, unit = $6,
				package_size = $7, tags = $8, meal_roles = $9, vector = $10, updated_at = NOW()
			WHERE id = $1
			RETURNING %s
		`, productColumns), p.ID, p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit),
			p.PackageSize, lowerAll(p.Tags), lowerAll(p.MealRoles), p.Vector)
		updated, err := scanProduct(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return updated, err
	}

	row := db.Pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO products (name, category, brand, price_per_unit, unit, package_size, tags, meal_roles, vector)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name, brand, unit, package_size) DO UPDATE SET
			category = EXCLUDED.category,
			price_per_unit = EXCLUDED.price_per_unit,
			tags = EXCLUDED.tags,
			meal_roles = EXCLUDED.meal_roles,
			vector = COALESCE(EXCLUDED.vector, products.vector),
			updated_at = NOW()
		RETURNING %s
	`, productColumns), p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit),
		p.PackageSize, lowerAll(p.Tags), lowerAll(p.MealRoles), p.Vector)
	return scanProduct(row)
}

// ImportProducts upserts products in batched transactions and reports how
// many rows were new.
func (db *DB) ImportProducts(ctx context.Context, products []models.Product, batchSize int) (imported, updated int, err error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	for i := 0; i < len(products); i += batchSize {
		end := i + batchSize
		if end > len(products) {
			end = len(products)
		}

		batchImported, batchUpdated, err := db.importBatch(ctx, products[i:end])
		if err != nil {
			return imported, updated, err
		}
		imported += batchImported
		updated += batchUpdated
	}
	return imported, updated, nil
}

func (db *DB) importBatch(ctx context.Context, products []models.Product) (imported, updated int, err error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range products {
		var inserted bool
		err := tx.QueryRow(ctx, `
			INSERT INTO products (name, category, brand, price_per_unit, unit, package_size, tags, meal_roles, vector)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (name, brand, unit, package_size) DO UPDATE SET
				category = EXCLUDED.category,
				price_per_unit = EXCLUDED.price_per_unit,
				tags = EXCLUDED.tags,
				meal_roles = EXCLUDED.meal_roles,
				vector = COALESCE(EXCLUDED.vector, products.vector),
				updated_at = NOW()
			RETURNING (xmax = 0)
		`, p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit),
			p.PackageSize, lowerAll(p.Tags), lowerAll(p.MealRoles), p.Vector).Scan(&inserted)
		if err != nil {
			return imported, updated, fmt.Errorf("failed to import %s: %w", p.Name, err)
		}
		if inserted {
			imported++
		} else {
			updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return imported, updated, nil
}

// DeleteProduct deletes a product
func (db *DB) DeleteProduct(ctx context.Context, id int) error {
	result, err := db.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// FetchCandidates returns priced products narrowed by q. It implements
// the planner's candidate pool.
func (db *DB) FetchCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	whereClauses := []string{"price_per_unit > 0"}
	var args []interface{}
	argIndex := 1

	if len(q.ExcludeTags) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("NOT (tags && $%d)", argIndex))
		args = append(args, lowerAll(q.ExcludeTags))
		argIndex++
	}
	if len(q.IncludeTags) > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("tags && $%d", argIndex))
		args = append(args, lowerAll(q.IncludeTags))
		argIndex++
	}
	if q.MinPrice > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("price_per_unit >= $%d", argIndex))
		args = append(args, q.MinPrice)
		argIndex++
	}
	if q.MaxPrice > 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("price_per_unit <= $%d", argIndex))
		args = append(args, q.MaxPrice)
		argIndex++
	}

	order := "id ASC"
	if q.Shuffle {
		order = "RANDOM()"
	}
	query := fmt.Sprintf("SELECT %s FROM products WHERE %s ORDER BY %s",
		productColumns, strings.Join(whereClauses, " AND "), order)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query candidates: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
