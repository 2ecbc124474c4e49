package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/catalog"
	"github.com/foxxcyber/meal-basket/internal/config"
	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/embedding"
	"github.com/foxxcyber/meal-basket/internal/logger"
	"github.com/foxxcyber/meal-basket/internal/models"
	"github.com/foxxcyber/meal-basket/internal/services"
	"github.com/foxxcyber/meal-basket/internal/storage"
)

func main() {
	// Command line flags
	dryRun := flag.Bool("dry-run", false, "Preview changes without writing to database")
	localFile := flag.String("file", "", "Product CSV file to import")
	remoteURL := flag.String("url", "", "Download the product CSV from this URL instead of a local file")
	embedBatch := flag.Int("embed-batch", 64, "Texts per embedding request")
	dbBatch := flag.Int("db-batch", 500, "Products per database transaction")
	noVectors := flag.Bool("no-vectors", false, "Skip computing semantic vectors")
	flag.Parse()

	// Load .env
	godotenv.Load()

	cfg := config.Load()
	log := logger.Must(logger.Config{
		Level:       cfg.LogLevel,
		Format:      "console",
		Development: cfg.IsDevelopment(),
	})
	defer log.Sync()

	ctx := context.Background()

	// Get CSV data
	var reader io.Reader
	switch {
	case *localFile != "":
		file, err := os.Open(*localFile)
		if err != nil {
			log.Fatal("Failed to open local file", zap.Error(err))
		}
		defer file.Close()
		reader = file
		log.Info("Reading from local file", zap.String("file", *localFile))
	case *remoteURL != "":
		log.Info("Downloading product data", zap.String("url", *remoteURL))
		resp, err := http.Get(*remoteURL)
		if err != nil {
			log.Fatal("Failed to download product data", zap.Error(err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			log.Fatal("Failed to download", zap.Int("status", resp.StatusCode))
		}
		reader = resp.Body
	default:
		fmt.Fprintln(os.Stderr, "usage: seeder -file products.csv [-dry-run]")
		os.Exit(2)
	}

	products, stats, err := catalog.Load(reader)
	if err != nil {
		log.Fatal("Failed to parse product data", zap.Error(err))
	}
	log.Info("Catalog parsed",
		zap.Int("rows", stats.Rows),
		zap.Int("products", stats.Imported),
		zap.Any("skipped", stats.Skipped))

	if *dryRun {
		log.Info("DRY RUN - No changes will be made")
		printPreview(products, stats, 20)
		return
	}

	if !*noVectors {
		embedder, cleanup, err := services.NewEmbedder(ctx, cfg, log, nil)
		if err != nil {
			log.Fatal("Failed to initialize embedder", zap.Error(err))
		}
		start := time.Now()
		embedded := embedProducts(ctx, embedder, products, *embedBatch, log)
		cleanup()
		log.Info("Vectors computed",
			zap.Int("embedded", embedded),
			zap.Int("total", len(products)),
			zap.Duration("took", time.Since(start)))
	}

	imported, updated, err := importProducts(ctx, cfg, products, *dbBatch, log)
	if err != nil {
		log.Fatal("Failed to import products", zap.Error(err))
	}

	log.Info("Import complete", zap.Int("new", imported), zap.Int("updated", updated))
}

// embedProducts fills product vectors batch by batch. A failed batch is
// logged and left without vectors. It returns how many products got one.
func embedProducts(ctx context.Context, e embedding.Embedder, products []models.Product, batchSize int, log *zap.Logger) int {
	if batchSize < 1 {
		batchSize = 1
	}

	embedded := 0
	for i := 0; i < len(products); i += batchSize {
		end := i + batchSize
		if end > len(products) {
			end = len(products)
		}
		batch := products[i:end]

		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].EmbeddingText()
		}

		vectors, err := e.Embed(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("%w: got %d, want %d", services.ErrEmbeddingCount, len(vectors), len(batch))
		}
		if err != nil {
			log.Warn("Embedding batch failed", zap.Int("from", i), zap.Int("to", end), zap.Error(err))
			continue
		}

		for j, v := range vectors {
			if embedding.Valid(v) {
				batch[j].Vector = v
				embedded++
			}
		}
		log.Debug("Embedding progress", zap.Int("done", end), zap.Int("total", len(products)))
	}
	return embedded
}

// importProducts writes products to the configured database
func importProducts(ctx context.Context, cfg *config.Config, products []models.Product, batchSize int, log *zap.Logger) (imported, updated int, err error) {
	if cfg.UseSQLite() {
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return 0, 0, err
		}
		defer store.Close()
		log.Info("Importing into SQLite", zap.String("path", cfg.SQLitePath))
		return store.ImportProducts(ctx, products)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db); err != nil {
		return 0, 0, err
	}
	return db.ImportProducts(ctx, products, batchSize)
}

// printPreview shows a sample of the data to be imported
func printPreview(products []models.Product, stats catalog.Stats, limit int) {
	fmt.Println("\n=== Preview of products to import ===")
	fmt.Printf("Total: %d products from %d rows\n\n", len(products), stats.Rows)

	if len(stats.Skipped) > 0 {
		fmt.Println("Skipped rows:")
		for _, reason := range sortedKeys(stats.Skipped) {
			fmt.Printf("  %s: %d\n", reason, stats.Skipped[reason])
		}
		fmt.Println()
	}

	roleCount := make(map[string]int)
	for _, p := range products {
		roleCount[p.PrimaryRole()]++
	}
	fmt.Println("Products per meal role:")
	for _, role := range sortedKeys(roleCount) {
		fmt.Printf("  %s: %d\n", role, roleCount[role])
	}

	fmt.Printf("\nSample products (first %d):\n", limit)
	for i, p := range products {
		if i >= limit {
			break
		}
		fmt.Printf("  %s - %.2f ₽ / %g %s [%s]\n",
			p.Name, p.PricePerUnit, p.PackageSize, p.Unit, strings.Join(p.Tags, ", "))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
