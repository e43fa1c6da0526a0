package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tidewater-labs/harvest-core/internal/adapters/driven/postgres"
	redisadapter "github.com/tidewater-labs/harvest-core/internal/adapters/driven/redis"
	"github.com/tidewater-labs/harvest-core/internal/config"
	"github.com/tidewater-labs/harvest-core/internal/core/domain"
	"github.com/tidewater-labs/harvest-core/internal/core/ports/driven"
	"github.com/tidewater-labs/harvest-core/internal/core/services"
	"github.com/tidewater-labs/harvest-core/internal/runtime"
	"github.com/tidewater-labs/harvest-core/internal/worker"
)

var version = "dev"

// Exit codes: 1 for hard failures, 2 when a run makes no progress at
// all (zero items, zero queue movement), signalling upstream breakage
// to the scheduler.
const exitNoProgress = 2

func main() {
	_ = godotenv.Load()

	// Run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "run")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("harvest-core %s starting in %s mode", version, mode)

	cfg, err := config.Load(getEnv("CONFIG_FILE", ""))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	dbConfig := postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvInt("DB_CONN_MAX_IDLE_SEC", 60)) * time.Second,
	}
	db, err := postgres.Connect(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== PostgreSQL Stores =====
	itemStore := postgres.NewItemStore(db)
	chunkStore := postgres.NewChunkStore(db)
	frontierStore := postgres.NewFrontierStore(db)

	// ===== Distributed Lock (Redis if available, otherwise PostgreSQL advisory locks) =====
	var distributedLock driven.DistributedLock
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		log.Println("Using Redis distributed lock")
	} else {
		distributedLock = postgres.NewAdvisoryLock(db)
		log.Println("Using PostgreSQL advisory lock")
	}

	// ===== Dedupe Cache (Redis only; nil disables the fast path) =====
	var dedupeCache driven.DedupeCache
	if redisClient != nil {
		dedupeCache = redisadapter.NewDedupeCache(redisClient, 0)
		log.Println("Using Redis dedupe cache")
	}

	// Runtime registry; an embedding service is attached by deployments
	// that run one, enrichment stays best-effort either way
	runtimeServices := runtime.NewServices()
	defer runtimeServices.Close()

	// ===== Services (core business logic) =====
	logger := slog.Default()

	frontier := services.NewFrontier(services.FrontierConfig{
		Store:      frontierStore,
		Items:      itemStore,
		Logger:     logger,
		MaxRetries: cfg.Queue.MaxRetries,
		Retention:  cfg.Retention(),
		StaleAfter: cfg.StaleAfter(),
	})

	reconciler := services.NewReconciler(services.ReconcilerConfig{
		Items:  itemStore,
		Chunks: chunkStore,
		Dedupe: services.NewDeduplicator(services.DeduplicatorConfig{
			Items:         itemStore,
			Cache:         dedupeCache,
			MinHashLength: cfg.Pipeline.MinHashLength,
			Logger:        logger,
		}),
		Slugs:            services.NewSlugAllocator(itemStore, 0),
		Services:         runtimeServices,
		Logger:           logger,
		QualityThreshold: cfg.Pipeline.QualityThreshold,
		DuplicatePolicy:  domain.DuplicatePolicy(cfg.Pipeline.DuplicatePolicy),
		MinChunkLength:   cfg.Pipeline.MinChunkLength,
		MaxChunks:        cfg.Pipeline.MaxChunks,
		EmbedTimeout:     cfg.EmbedTimeout(),
	})

	// Scraper adapters are registered by platform-specific builds;
	// the core binary ships without any.
	var scrapers []driven.Scraper

	w := worker.New(worker.Config{
		Frontier:       frontier,
		Reconciler:     reconciler,
		Scrapers:       scrapers,
		Lock:           distributedLock,
		Logger:         logger,
		BatchSize:      cfg.Queue.BatchSize,
		RequestTimeout: cfg.RequestTimeout(),
		RequestDelay:   cfg.RequestDelay(),
	})

	switch mode {
	case "run":
		runOnce(ctx, w)

	case "seed":
		seedFrontier(ctx, frontier, cfg.Seeds)

	case "housekeep":
		if err := w.Housekeep(ctx); err != nil {
			log.Fatalf("Housekeeping failed: %v", err)
		}
		log.Println("Housekeeping complete")

	case "stats":
		printStats(ctx, frontier)

	default:
		log.Fatalf("Unknown mode: %s (use: run, seed, housekeep, or stats)", mode)
	}
}

// runOnce executes a single ingestion pass: reclaim and sweep first,
// then drain the frontier.
func runOnce(ctx context.Context, w *worker.Worker) {
	if err := w.Housekeep(ctx); err != nil {
		log.Printf("Warning: housekeeping failed: %v", err)
	}

	summary, err := w.Run(ctx)
	if errors.Is(err, domain.ErrNoProgress) {
		log.Printf("Run made no progress (claimed=%d): possible upstream breakage", summary.ItemsClaimed)
		os.Exit(exitNoProgress)
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	log.Printf("Run complete: claimed=%d completed=%d failed=%d created=%d updated=%d skipped=%d duration=%s",
		summary.ItemsClaimed,
		summary.ItemsCompleted,
		summary.ItemsFailed,
		summary.Stats.Created,
		summary.Stats.Updated,
		summary.Stats.Skipped,
		summary.Duration.Round(time.Millisecond),
	)
}

// seedFrontier enqueues the configured seed URLs. Already-known URLs
// are silent no-ops.
func seedFrontier(ctx context.Context, frontier *services.Frontier, seeds []config.Seed) {
	if len(seeds) == 0 {
		log.Println("No seeds configured")
		return
	}

	added := 0
	for _, seed := range seeds {
		itemType := domain.QueueItemType(seed.Type)
		if itemType == "" {
			itemType = domain.QueueItemCategory
		}
		ok, err := frontier.Enqueue(ctx, seed.URL, seed.Platform, itemType, seed.Priority)
		if err != nil {
			log.Printf("Warning: seed %s: %v", seed.URL, err)
			continue
		}
		if ok {
			added++
		}
	}
	log.Printf("Seeded frontier: %d of %d URLs added", added, len(seeds))
}

func printStats(ctx context.Context, frontier *services.Frontier) {
	stats, err := frontier.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to load stats: %v", err)
	}
	out, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode stats: %v", err)
	}
	os.Stdout.Write(append(out, '\n'))
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
