package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/voice-budget/internal/api/handlers"
	"github.com/dvloznov/voice-budget/internal/api/middleware"
	"github.com/dvloznov/voice-budget/internal/config"
	"github.com/dvloznov/voice-budget/internal/extraction"
	infraBQ "github.com/dvloznov/voice-budget/internal/infra/bigquery"
	"github.com/dvloznov/voice-budget/internal/jobs"
	"github.com/dvloznov/voice-budget/internal/jobs/inmemory"
	"github.com/dvloznov/voice-budget/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $VOICEBUDGET_CONFIG or ~/.config/voicebudget/config.yaml)")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadWithFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.WithFields(
		logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}),
		map[string]interface{}{"service": "voice-budget-api", "model": cfg.Gemini.Model},
	)
	ctx := logger.WithContext(context.Background(), log)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewHTTPMetrics(reg)

	// Run recording: metrics always, BigQuery when configured
	recorders := extraction.MultiRecorder{extraction.NewMetricsRecorder(reg)}
	var auditRecorder *extraction.AsyncRecorder
	if cfg.BigQuery.Enabled() {
		repo, err := newRunRepository(ctx, cfg.BigQuery, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create run repository")
		}
		defer repo.Close()

		auditRecorder = extraction.NewAsyncRecorder(repo, 256, 30*time.Second, log)
		recorders = append(recorders, auditRecorder)
	} else {
		log.Info().Msg("No BigQuery project configured - extraction runs will not be audited")
	}

	engine := extraction.NewEngine(
		extraction.WithSessionFactory(extraction.NewGeminiSessionFactory(extraction.GeminiOptions{
			Model:             cfg.Gemini.Model,
			Temperature:       cfg.Gemini.Temperature,
			RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
			Burst:             cfg.Gemini.Burst,
		})),
		extraction.WithLogger(log),
		extraction.WithRecorder(recorders),
	)
	if cfg.Gemini.APIKey != "" {
		if !engine.Configure(ctx, cfg.Gemini.APIKey) {
			log.Warn().Msg("Configured Gemini API key was rejected - extraction requires POST /api/config")
		}
	} else {
		log.Warn().Msg("No Gemini API key configured - extraction requires POST /api/config")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Jobs.BufferSize, jobStore,
		inmemory.WithWorkers(cfg.Jobs.Workers),
		inmemory.WithMaxRetries(cfg.Jobs.MaxRetries),
		inmemory.WithBackoff(cfg.Jobs.Backoff),
		inmemory.WithLogger(log),
	)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.Jobs.Workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.NewExtractionHandler(engine)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Router
	mux := handlers.NewRouter(engine, jobStore, jobQueue, log)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					httpMetrics.Handler(mux),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	cancelWorker()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if auditRecorder != nil {
		if err := auditRecorder.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Pending extraction runs were not recorded")
		}
	}

	log.Info().Msg("Server exited")
}

// newRunRepository opens the BigQuery audit table and creates it when missing.
func newRunRepository(ctx context.Context, cfg config.BigQueryConfig, log zerolog.Logger) (*infraBQ.RunRepository, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	repo, err := infraBQ.NewRunRepository(ctx, infraBQ.TableRef{
		ProjectID: cfg.ProjectID,
		DatasetID: cfg.Dataset,
		TableID:   cfg.Table,
	}, opts...)
	if err != nil {
		return nil, err
	}

	if err := repo.EnsureTable(ctx); err != nil {
		log.Warn().Err(err).Msg("Could not ensure extraction run table exists")
	}
	return repo, nil
}
