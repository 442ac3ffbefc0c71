package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/gate"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/pipeline"
	"server/internal/providers/publish"
	"server/internal/providers/render"
	"server/internal/providers/textgen"
	"server/internal/quota"
	"server/internal/retry"
	"server/internal/scheduler"
	"server/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	sql := infra.NewSQLRunner(pool, logger)

	jobs := repo.NewJobRepository(sql)
	brands := repo.NewBrandCache(repo.NewBrandRepository(sql), cfg.BrandCacheTTL)
	schedules := repo.NewScheduleRepository(sql)
	creds := credentials.NewStore(sql)

	fileStore, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	renderGate := gate.New(cfg.GatePermits, cfg.GateWaitTimeout, logger)
	renderer, err := render.NewHTTPRenderer(render.Options{
		BaseURL: cfg.RenderBaseURL,
		APIKey:  cfg.RenderAPIKey,
		Gate:    renderGate,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure renderer")
	}

	generator := buildGenerator(ctx, cfg, creds, logger)

	coordinator := pipeline.NewCoordinator(jobs, brands, renderer, generator, cfg.BrandTimeout, logger)
	runner := pipeline.NewRunner(logger)

	launch, err := cfg.LaunchTime()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid launch date")
	}
	allocator := scheduler.NewAllocator(schedules, launch, cfg.SlotTimezone)

	publishers, err := buildPublishers(cfg, creds, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure publishers")
	}
	publisher := scheduler.NewPublisher(schedules, jobs, publishers, logger)

	app := &handlers.App{
		Jobs:        jobs,
		Brands:      brands,
		Schedules:   schedules,
		Coordinator: coordinator,
		Runner:      runner,
		Allocator:   allocator,
		Publisher:   publisher,
		Files:       fileStore,
		Credentials: creds,
		Logger:      logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StoragePath,
	})

	resumeInterrupted(ctx, jobs, coordinator, runner, logger)

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if err := runner.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to drain running jobs")
	}
	logger.Info().Msg("server stopped")
}

// buildGenerator prefers the configured key, then the stored integration
// token; without either, content falls back to deterministic templates.
func buildGenerator(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) textgen.Generator {
	apiKey := strings.TrimSpace(cfg.TextGenAPIKey)
	if apiKey == "" {
		stored, err := creds.GeminiAPIKey(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load gemini api key from store")
		} else {
			apiKey = stored
		}
	}
	if apiKey == "" {
		logger.Warn().Msg("no gemini api key configured, using static content generation")
		return textgen.NewStaticGenerator()
	}
	generator, err := textgen.NewGeminiGenerator(textgen.GeminiOptions{
		APIKey:  apiKey,
		Model:   cfg.TextGenModel,
		BaseURL: cfg.TextGenBaseURL,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to configure gemini, using static content generation")
		return textgen.NewStaticGenerator()
	}
	return generator
}

func buildPublishers(cfg *infra.Config, creds *credentials.Store, logger infra.Logger) (publish.Set, error) {
	metaOpts := publish.MetaOptions{BaseURL: cfg.MetaBaseURL, Credentials: creds}
	instagram, err := publish.NewInstagramPublisher(metaOpts)
	if err != nil {
		return nil, err
	}
	facebook, err := publish.NewFacebookPublisher(metaOpts)
	if err != nil {
		return nil, err
	}
	youtube, err := publish.NewYouTubePublisher(publish.YouTubeOptions{
		BaseURL: cfg.YouTubeBaseURL,
		Token:   creds,
		Ledger:  quota.New(cfg.QuotaDailyLimit, cfg.QuotaResetHour, cfg.QuotaTimezone),
		Retry:   retry.New(5, 2*time.Second, 30*time.Second, logger),
	})
	if err != nil {
		return nil, err
	}
	return publish.NewSet(instagram, facebook, youtube), nil
}

// resumeInterrupted relaunches jobs that were mid-generation when the last
// process died. Brands that already finished keep their artifacts.
func resumeInterrupted(ctx context.Context, jobs domain.JobRepository, coordinator *pipeline.Coordinator, runner *pipeline.Runner, logger infra.Logger) {
	stale, err := jobs.ListByStatus(ctx, domain.JobStatusGenerating)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list interrupted jobs")
		return
	}
	for _, job := range stale {
		jobID := job.ID
		err := runner.Launch(jobID, func(jctx context.Context) error {
			return coordinator.Resume(jctx, jobID)
		})
		if err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("failed to resume job")
			continue
		}
		logger.Info().Str("job_id", jobID).Msg("resuming interrupted job")
	}
}
