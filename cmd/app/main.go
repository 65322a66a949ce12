// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-video-orchestrator/internal/config"
	"social-video-orchestrator/internal/domain/ports/adapter"
	storageAdapters "social-video-orchestrator/internal/infra/adapters/storage"
	synthAdapters "social-video-orchestrator/internal/infra/adapters/synthesis"
	pg "social-video-orchestrator/internal/infra/db/postgres"
	"social-video-orchestrator/internal/infra/logging"
	"social-video-orchestrator/internal/infra/metrics"
	red "social-video-orchestrator/internal/infra/redis"
	"social-video-orchestrator/internal/infra/sched"
	"social-video-orchestrator/internal/infra/web"
	"social-video-orchestrator/internal/infra/worker"
	"social-video-orchestrator/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop synthesis provider)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("postgres schema")
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Object storage ----
	store, err := storageAdapters.NewGCSAdapter(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage")
	}
	defer store.Close()

	// ---- Synthesis provider ----
	var synth adapter.VideoSynthesizer
	if cfg.Synthesis.APIKey != "" {
		synth, err = synthAdapters.NewVeoAdapter(ctx, cfg.Synthesis.APIKey, cfg.Synthesis.BaseURL, cfg.Synthesis.Model)
		if err != nil {
			logger.Fatal().Err(err).Msg("veo adapter")
		}
		logger.Info().Str("model", cfg.Synthesis.Model).Msg("synthesis provider: Veo")
	} else {
		synth = synthAdapters.NewNoopSynthesizer()
		logger.Warn().Msg("synthesis provider: noop (no api key configured)")
	}

	// ---- Repositories ----
	jobRepo := pg.NewJobRepoCacheDecorator(pg.NewGenerationJobRepo(pool), redisClient, cfg.Redis.TTL)
	txm := pg.NewTxManager(pool)

	// ---- Worker pool ----
	pool2 := worker.NewPool(cfg.Synthesis.Workers, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Use cases ----
	videoUC := usecase.NewVideoUseCase(jobRepo, txm, synth, store, pool2, locker, usecase.Options{
		PollInterval:  cfg.Synthesis.PollInterval,
		MaxAttempts:   cfg.Synthesis.MaxAttempts,
		SignedURLTTL:  cfg.Storage.SignedURLTTL,
		OutputPrefix:  cfg.Storage.OutputPrefix,
		UploadsPrefix: cfg.Storage.UploadsPrefix,
		EnhancePrompt: cfg.Synthesis.EnhancePrompt,
	}, logger)

	// ---- Recovery worker ----
	recovery := sched.NewRecoveryWorker(cfg.Recovery.SweepInterval, videoUC, logger)
	go func() { _ = recovery.Run(ctx) }()

	// ---- HTTP server ----
	srv := web.NewServer(videoUC, cfg.Web.AdminKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	cancel()
}
