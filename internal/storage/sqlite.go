// Package storage keeps a file-backed product catalog in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/planner"
)

// listSeparator joins tags and meal roles in a single column
const listSeparator = "|"

// SQLiteStore is a product catalog, user table and basket archive in one
// SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database for health probes.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS products (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT NOT NULL,
        category TEXT NOT NULL DEFAULT '',
        brand TEXT NOT NULL DEFAULT '',
        price_per_unit REAL NOT NULL,
        unit TEXT NOT NULL,
        package_size REAL NOT NULL,
        tags TEXT NOT NULL DEFAULT '',
        meal_roles TEXT NOT NULL DEFAULT '',
        vector BLOB,
        search_text TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        UNIQUE (name, brand, unit, package_size)
    );

    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        email TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        role TEXT NOT NULL DEFAULT 'user',
        created_at TEXT NOT NULL,
        updated_at TEXT NOT NULL,
        last_login_at TEXT
    );

    CREATE TABLE IF NOT EXISTS baskets (
        id TEXT PRIMARY KEY,
        strategy TEXT NOT NULL,
        total_price REAL NOT NULL,
        success INTEGER NOT NULL,
        result TEXT NOT NULL,
        created_at TEXT NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_products_price ON products(price_per_unit);
    CREATE INDEX IF NOT EXISTS idx_baskets_created_at ON baskets(created_at);
    `

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const productColumns = `id, name, category, brand, price_per_unit, unit, package_size,
	tags, meal_roles, vector, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*models.Product, error) {
	p := &models.Product{}
	var unit, tags, roles, createdAt, updatedAt string
	var vector []byte
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Brand, &p.PricePerUnit, &unit, &p.PackageSize,
		&tags, &roles, &vector, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Unit = models.Unit(unit)
	p.Tags = splitList(tags)
	p.MealRoles = splitList(roles)
	p.Vector = embedding.DecodeVector(vector)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// ListProducts returns a paginated list of products with optional filtering
func (s *SQLiteStore) ListProducts(ctx context.Context, params *models.ProductListParams) ([]*models.Product, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}

	if params.Search != "" {
		where += " AND search_text LIKE ?"
		args = append(args, "%"+strings.ToLower(params.Search)+"%")
	}
	if params.Tag != "" {
		where += " AND ('|' || tags || '|') LIKE ?"
		args = append(args, listPattern(params.Tag))
	}
	if params.Role != "" {
		where += " AND ('|' || meal_roles || '|') LIKE ?"
		args = append(args, listPattern(params.Role))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY name ASC, id ASC LIMIT ? OFFSET ?"
	args = append(args, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// GetProductByID retrieves a product by ID
func (s *SQLiteStore) GetProductByID(ctx context.Context, id int) (*models.Product, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetProductsByIDs returns the products in ids order.
func (s *SQLiteStore) GetProductsByIDs(ctx context.Context, ids []int) ([]models.Product, error) {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetProductByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %d", database.ErrProductNotFound, id)
			}
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

// UpsertProduct updates the product with p.ID, or inserts it and merges
// with an existing row of the same name, brand and package when p.ID is 0.
func (s *SQLiteStore) UpsertProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	now := formatTime(time.Now())

	if p.ID != 0 {
		result, err := s.db.ExecContext(ctx, `
			UPDATE products SET
				name = ?, category = ?, brand = ?, price_per_unit = ?, unit = ?,
				package_size = ?, tags = ?, meal_roles = ?, vector = ?, search_text = ?, updated_at = ?
			WHERE id = ?
		`, p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit), p.PackageSize,
			joinList(p.Tags), joinList(p.MealRoles), vectorArg(p.Vector), searchText(p), now, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, database.ErrProductNotFound
		}
		return s.GetProductByID(ctx, p.ID)
	}

	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, category, brand, price_per_unit, unit, package_size, tags, meal_roles, vector, search_text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name, brand, unit, package_size) DO UPDATE SET
			category = excluded.category,
			search_text = excluded.search_text,
			price_per_unit = excluded.price_per_unit,
			tags = excluded.tags,
			meal_roles = excluded.meal_roles,
			vector = COALESCE(excluded.vector, products.vector),
			updated_at = excluded.updated_at
		RETURNING id
	`, p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit), p.PackageSize,
		joinList(p.Tags), joinList(p.MealRoles), vectorArg(p.Vector), searchText(p), now, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}
	return s.GetProductByID(ctx, id)
}

// ImportProducts upserts products in one transaction and reports how many
// rows were new.
func (s *SQLiteStore) ImportProducts(ctx context.Context, products []models.Product) (imported, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for _, p := range products {
		var existingID int
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM products WHERE name = ? AND brand = ? AND unit = ? AND package_size = ?
		`, p.Name, p.Brand, string(p.Unit), p.PackageSize).Scan(&existingID)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `
				INSERT INTO products (name, category, brand, price_per_unit, unit, package_size, tags, meal_roles, vector, search_text, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, p.Name, p.Category, p.Brand, p.PricePerUnit, string(p.Unit), p.PackageSize,
				joinList(p.Tags), joinList(p.MealRoles), vectorArg(p.Vector), searchText(&p), now, now)
			if err != nil {
				return imported, updated, fmt.Errorf("failed to insert %s: %w", p.Name, err)
			}
			imported++
		case err != nil:
			return imported, updated, fmt.Errorf("failed to check existing %s: %w", p.Name, err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE products SET category = ?, price_per_unit = ?, tags = ?, meal_roles = ?,
					vector = COALESCE(?, vector), search_text = ?, updated_at = ?
				WHERE id = ?
			`, p.Category, p.PricePerUnit, joinList(p.Tags), joinList(p.MealRoles),
				vectorArg(p.Vector), searchText(&p), now, existingID)
			if err != nil {
				return imported, updated, fmt.Errorf("failed to update %s: %w", p.Name, err)
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return imported, updated, nil
}

// DeleteProduct deletes a product
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return database.ErrProductNotFound
	}
	return nil
}

// FetchCandidates returns priced products narrowed by q. It implements
// the planner's candidate pool.
func (s *SQLiteStore) FetchCandidates(ctx context.Context, q models.CandidateQuery) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE price_per_unit > 0"
	args := []interface{}{}

	for _, tag := range q.ExcludeTags {
		query += " AND ('|' || tags || '|') NOT LIKE ?"
		args = append(args, listPattern(tag))
	}
	if len(q.IncludeTags) > 0 {
		clauses := make([]string, len(q.IncludeTags))
		for i, tag := range q.IncludeTags {
			clauses[i] = "('|' || tags || '|') LIKE ?"
			args = append(args, listPattern(tag))
		}
		query += " AND (" + strings.Join(clauses, " OR ") + ")"
	}
	if q.MinPrice > 0 {
		query += " AND price_per_unit >= ?"
		args = append(args, q.MinPrice)
	}
	if q.MaxPrice > 0 {
		query += " AND price_per_unit <= ?"
		args = append(args, q.MaxPrice)
	}

	if q.Shuffle {
		query += " ORDER BY RANDOM()"
	} else {
		query += " ORDER BY id ASC"
	}
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// CreateUser creates a new user
func (s *SQLiteStore) CreateUser(ctx context.Context, email, passwordHash string, role models.UserRole) (*models.User, error) {
	now := formatTime(time.Now())
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
	`, email, passwordHash, string(role), now, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, database.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           int(id),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    parseTime(now),
		UpdatedAt:    parseTime(now),
	}, nil
}

// GetUserByEmail retrieves a user by email
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	var role, createdAt, updatedAt string
	var lastLogin sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at, updated_at, last_login_at
		FROM users WHERE email = ?
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &role, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, err
	}
	user.Role = models.UserRole(role)
	user.CreatedAt = parseTime(createdAt)
	user.UpdatedAt = parseTime(updatedAt)
	if lastLogin.Valid {
		t := parseTime(lastLogin.String)
		user.LastLoginAt = &t
	}
	return user, nil
}

// UpdateUserLastLogin updates the user's last login timestamp
func (s *SQLiteStore) UpdateUserLastLogin(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login_at = ? WHERE id = ?", formatTime(time.Now()), id)
	return err
}

// EnsureAdminUser creates the admin account when password is set and the
// email is unknown.
func (s *SQLiteStore) EnsureAdminUser(ctx context.Context, email, password string) error {
	if password == "" {
		return nil
	}
	if _, err := s.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	if _, err := s.CreateUser(ctx, email, string(hashedPassword), models.UserRoleAdmin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}

// SaveBasket stores a finished result. It implements planner.Archive.
func (s *SQLiteStore) SaveBasket(ctx context.Context, result *models.BasketResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode basket: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO baskets (id, strategy, total_price, success, result, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET result = excluded.result
	`, result.ID, result.Strategy, result.Summary.TotalPrice, result.Summary.Success,
		string(payload), formatTime(result.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save basket %s: %w", result.ID, err)
	}
	return nil
}

// LoadBasket reads an archived result back.
func (s *SQLiteStore) LoadBasket(ctx context.Context, id string) (*models.BasketResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT result FROM baskets WHERE id = ?", id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, planner.ErrBasketNotFound
		}
		return nil, err
	}

	result := &models.BasketResult{}
	if err := json.Unmarshal([]byte(payload), result); err != nil {
		return nil, fmt.Errorf("failed to decode basket %s: %w", id, err)
	}
	return result, nil
}

// vectorArg binds empty vectors as NULL.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return embedding.EncodeVector(v)
}

// searchText is the lowercased text matched by product search. SQLite's
// LOWER only folds ASCII.
func searchText(p *models.Product) string {
	return strings.ToLower(strings.Join([]string{p.Name, p.Category, p.Brand}, " "))
}

func joinList(values []string) string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return strings.Join(cleaned, listSeparator)
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, listSeparator)
}

func listPattern(value string) string {
	return "%" + listSeparator + strings.ToLower(strings.TrimSpace(value)) + listSeparator + "%"
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
