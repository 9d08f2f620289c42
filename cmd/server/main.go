package main

import (
	"fmt"
	"net/http"
	"os"

	"census/internal/census"
	"census/internal/config"
	"census/internal/formatter"
	"census/internal/handlers"
	"census/internal/logging"
	"census/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("CENSUS_CONFIG")
	if configPath == "" {
		configPath = "census.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Ensure data directory exists
	if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	opts, err := cfg.Census.ClientOptions()
	if err != nil {
		return err
	}
	client, err := census.NewClient(cfg.Census.APIKey, append(opts, census.WithLogger(logger.Named("census")))...)
	if err != nil {
		return fmt.Errorf("failed to create census client: %w", err)
	}

	store, err := storage.NewPocketBaseStore(cfg.Server.DataDir, cfg.Server.PocketBaseAddr, logger.Named("storage"))
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	exporter := formatter.New(store.GetPocketBase(), logger.Named("export"))

	handler := handlers.NewCensusHandler(client, exporter, store, logger.Named("http"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	handler.RegisterRoutes(r)

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.Int("batch_size", client.BatchSize()))
	return http.ListenAndServe(":"+cfg.Server.Port, r)
}
