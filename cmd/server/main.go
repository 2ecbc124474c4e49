package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/foxxcyber/meal-basket/internal/basket"
	"github.com/foxxcyber/meal-basket/internal/config"
	"github.com/foxxcyber/meal-basket/internal/database"
	"github.com/foxxcyber/meal-basket/internal/handlers"
	"github.com/foxxcyber/meal-basket/internal/logger"
	"github.com/foxxcyber/meal-basket/internal/mcpserver"
	"github.com/foxxcyber/meal-basket/internal/metrics"
	"github.com/foxxcyber/meal-basket/internal/planner"
	"github.com/foxxcyber/meal-basket/internal/scenario"
	"github.com/foxxcyber/meal-basket/internal/sequential"
	"github.com/foxxcyber/meal-basket/internal/services"
	"github.com/foxxcyber/meal-basket/internal/storage"
)

// catalogStore is what the server needs from a database backend
type catalogStore interface {
	handlers.Store
	planner.CandidatePool
	planner.Archive
}

func main() {
	// Load .env file if it exists
	godotenv.Load()

	cfg := config.Load()

	log := logger.Must(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.IsDevelopment(),
	})
	defer log.Sync()

	ctx := context.Background()

	// Connect to database
	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	// Object storage for the scenario library and basket archive
	var storageService *services.StorageService
	if cfg.S3Enabled {
		svc, err := services.NewStorageService(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL)
		if err != nil {
			log.Fatal("Failed to initialize storage service", zap.Error(err))
		}
		if err := svc.EnsureBucket(ctx); err != nil {
			log.Warn("Failed to ensure S3 bucket exists", zap.Error(err))
		}
		storageService = svc
		log.Info("Object storage enabled", zap.String("bucket", svc.GetBucketName()))
	}

	library := loadLibrary(ctx, cfg, storageService, log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	embedder, closeEmbedder, err := services.NewEmbedder(ctx, cfg, log, m)
	if err != nil {
		log.Fatal("Failed to initialize embedder", zap.Error(err))
	}
	defer closeEmbedder()

	var archive planner.Archive = store
	if storageService != nil {
		archive = storageService
	}

	selector := scenario.NewSelector(scenario.WithSeed(cfg.SelectorSeed))
	assembler := basket.NewAssembler(
		basket.NewSlotFiller(basket.WithFillerLogger(log.Named("filler"))),
		embedder,
		log.Named("assembler"),
	)
	p, err := planner.New(store, basket.NewScorer(), basket.NewRepairer(embedder, log.Named("repair")),
		planner.WithStrategy(basket.NewScenarioStrategy(library, selector, assembler)),
		planner.WithStrategy(sequential.NewStrategy(sequential.WithLogger(log.Named("sequential")))),
		planner.WithDefaultStrategy(cfg.DefaultStrategy),
		planner.WithArchive(archive),
		planner.WithMetrics(m),
		planner.WithLogger(log),
		planner.WithCandidateLimit(cfg.CandidateLimit),
		planner.WithShuffledCandidates(cfg.CandidateShuffle),
		planner.WithMinDiscount(cfg.RepairMinDiscount),
	)
	if err != nil {
		log.Fatal("Failed to create planner", zap.Error(err))
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	h := handlers.New(store, cfg, p, library, embedder, log)
	h.RegisterRoutes(app)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if cfg.MCPEnabled {
		mcp := mcpserver.New(p, library, cfg.RequestTimeout, log)
		app.Post("/mcp", adaptor.HTTPHandler(mcp))
		log.Info("MCP endpoint enabled", zap.Strings("tools", mcp.Tools()))
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Server starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.String("db_driver", cfg.DBDriver),
		zap.Int("scenarios", library.Len()))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (catalogStore, func()) {
	if cfg.UseSQLite() {
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatal("Failed to open SQLite database", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		if err := store.EnsureAdminUser(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Warn("Could not ensure admin user", zap.Error(err))
		}
		log.Info("Using SQLite catalog", zap.String("path", cfg.SQLitePath))
		return store, func() { store.Close() }
	}

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Create admin user if it doesn't exist
	if err := database.EnsureAdminUser(ctx, db, cfg); err != nil {
		log.Warn("Could not ensure admin user", zap.Error(err))
	}
	return db, db.Close
}

func loadLibrary(ctx context.Context, cfg *config.Config, src *services.StorageService, log *zap.Logger) *scenario.Library {
	var (
		library *scenario.Library
		err     error
		origin  string
	)
	switch {
	case cfg.ScenariosObjectKey != "" && src != nil:
		origin = "s3://" + cfg.S3Bucket + "/" + cfg.ScenariosObjectKey
		library, err = scenario.LoadObject(ctx, src, cfg.ScenariosObjectKey)
	case cfg.ScenariosPath != "":
		origin = cfg.ScenariosPath
		library, err = scenario.LoadFile(cfg.ScenariosPath)
	default:
		origin = "built-in"
		library, err = scenario.Default()
	}
	if err != nil {
		log.Fatal("Failed to load scenario library", zap.String("source", origin), zap.Error(err))
	}

	log.Info("Scenario library loaded", zap.String("source", origin), zap.Int("scenarios", library.Len()))
	return library
}
