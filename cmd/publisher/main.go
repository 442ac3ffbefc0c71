package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/providers/publish"
	"server/internal/quota"
	"server/internal/retry"
	"server/internal/scheduler"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "publisher")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: db connection failed")
	}
	defer pool.Close()

	sql := infra.NewSQLRunner(pool, logger)

	jobs := repo.NewJobRepository(sql)
	schedules := repo.NewScheduleRepository(sql)
	creds := credentials.NewStore(sql)

	metaOpts := publish.MetaOptions{BaseURL: cfg.MetaBaseURL, Credentials: creds}
	instagram, err := publish.NewInstagramPublisher(metaOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: instagram setup failed")
	}
	facebook, err := publish.NewFacebookPublisher(metaOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: facebook setup failed")
	}
	youtube, err := publish.NewYouTubePublisher(publish.YouTubeOptions{
		BaseURL: cfg.YouTubeBaseURL,
		Token:   creds,
		Ledger:  quota.New(cfg.QuotaDailyLimit, cfg.QuotaResetHour, cfg.QuotaTimezone),
		Retry:   retry.New(5, 2*time.Second, 30*time.Second, logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("publisher: youtube setup failed")
	}

	publisher := scheduler.NewPublisher(
		schedules,
		jobs,
		publish.NewSet(instagram, facebook, youtube),
		logger,
	)

	publisher.Run(ctx, cfg.PublishPollInterval)
	logger.Info().Msg("publisher: stopped")
}
