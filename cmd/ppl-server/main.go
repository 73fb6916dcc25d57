package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrwolf/ppl-server/internal/api"
	"github.com/mrwolf/ppl-server/internal/attendance"
	"github.com/mrwolf/ppl-server/internal/catalog"
	"github.com/mrwolf/ppl-server/internal/config"
	"github.com/mrwolf/ppl-server/internal/db"
	"github.com/mrwolf/ppl-server/internal/ingest"
	"github.com/mrwolf/ppl-server/internal/lifecycle"
	"github.com/mrwolf/ppl-server/internal/llm"
	"github.com/mrwolf/ppl-server/internal/logger"
	"github.com/mrwolf/ppl-server/internal/matcher"
	"github.com/mrwolf/ppl-server/internal/models"
	"github.com/mrwolf/ppl-server/internal/promotion"
	"github.com/mrwolf/ppl-server/internal/scheduler"
	"github.com/mrwolf/ppl-server/internal/venues"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Starting ppl-server...")

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load catalog", "path", cfg.CatalogPath, "error", err)
	}

	// Open database
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database", "error", err)
	}
	if err := seedActivityTypes(database, cat); err != nil {
		log.Fatal("Failed to seed activity types", "error", err)
	}

	// Create LLM client
	llmClient := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel)

	// Validate Ollama connection at startup
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := llmClient.HealthCheck(ctx); err != nil {
		log.Warn("Ollama health check failed, semantic matching will fall back to the static table", "error", err)
	} else {
		log.Info("Ollama connected", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
	}
	cancel()

	engineOpts := []promotion.Option{
		promotion.WithLocation(cfg.Location()),
		promotion.WithDescriber(llmClient),
		promotion.WithLogger(log.With("component", "promotion")),
	}
	var redisLocker *promotion.RedisLocker
	if cfg.RedisAddr != "" {
		redisLocker, err = promotion.NewRedisLocker(context.Background(), cfg.RedisAddr)
		if err != nil {
			log.Fatal("Failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
		}
		engineOpts = append(engineOpts, promotion.WithLocker(redisLocker))
		log.Info("Using redis promotion leases", "addr", cfg.RedisAddr)
	}

	engine := promotion.NewEngine(database, venues.NewResolver(database, cat), engineOpts...)
	manager := lifecycle.NewManager(database, nil, log.With("component", "lifecycle"))
	pipeline := ingest.New(database, matcher.New(cat.Interests), engine,
		ingest.WithSemanticMatcher(llmClient, cfg.SemanticTimeout),
		ingest.WithExtractor(llmClient),
		ingest.WithLogger(log.With("component", "ingest")),
	)

	// Create router
	router := api.NewRouter(cfg, api.Deps{
		Store:      database,
		Ingest:     pipeline,
		Promoter:   engine,
		Lifecycle:  manager,
		Attendance: attendance.New(database),
		Ollama:     llmClient,
		Log:        log.With("component", "http"),
	})

	// Create and start scheduler
	schedCfg := scheduler.Config{
		Location:        cfg.Location(),
		PromoteInterval: cfg.PromoteInterval,
	}
	var sweeper scheduler.Sweeper
	if cfg.SweepEnabled {
		sweeper = manager
		schedCfg.SweepInterval = cfg.SweepInterval
	}
	sched, err := scheduler.New(engine, sweeper, llmClient, schedCfg, log.With("component", "scheduler"))
	if err != nil {
		log.Fatal("Failed to create scheduler", "error", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatal("Failed to start scheduler", "error", err)
	}

	// Start server
	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("Listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error", "error", err)
		}
	}()

	<-done
	log.Info("Shutting down gracefully...")

	// Give ongoing requests 10 seconds to complete
	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("Stopping scheduler...")
	if err := sched.Stop(); err != nil {
		log.Error("Scheduler shutdown error", "error", err)
	}

	// Let in-flight activity descriptions finish before the database closes
	engine.Wait()

	if redisLocker != nil {
		if err := redisLocker.Close(); err != nil {
			log.Error("Redis close error", "error", err)
		}
	}

	log.Info("Closing database...")
	if err := database.Close(); err != nil {
		log.Error("Database close error", "error", err)
	}

	log.Info("Shutdown complete")
}

// seedActivityTypes makes sure every catalog activity type exists. Existing
// rows keep their ids
func seedActivityTypes(database *db.DB, cat *catalog.Catalog) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, seed := range cat.ActivityTypes {
		_, err := database.EnsureActivityType(ctx, models.ActivityType{
			Name:         seed.Name,
			DisplayName:  seed.DisplayName,
			VenueType:    seed.VenueType,
			MinAttendees: seed.MinAttendees,
			Description:  seed.Description,
		})
		if err != nil {
			return fmt.Errorf("seeding %s: %w", seed.Name, err)
		}
	}
	return nil
}
